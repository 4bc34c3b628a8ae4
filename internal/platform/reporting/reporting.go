package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/mmh/hms/internal/platform/auth"
	"github.com/mmh/hms/internal/platform/session"
)

// MeasureDefinition defines a reporting measure with its SQL query.
// Parameters name the query-string values bound to the SQL placeholders
// in order. DepartmentScoped marks measures whose result set exposes a
// department column and can therefore be filtered to the caller's own
// department.
type MeasureDefinition struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	SQL              string   `json:"sql"`
	Parameters       []string `json:"parameters"`
	DepartmentScoped bool     `json:"department_scoped"`
}

// ExportLogger records that a report was served. Satisfied by
// auditexport.Service; logging is best-effort and never fails the report.
type ExportLogger interface {
	LogBestEffort(ctx context.Context, p *session.Principal, exportType string)
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "census-by-department",
		Name:        "Census by Department",
		Description: "Admitted (not yet discharged) patients grouped by department",
		SQL:         `SELECT department, COUNT(*) AS total FROM patients WHERE discharged_at IS NULL GROUP BY department ORDER BY total DESC`,
		Parameters:  []string{},
		DepartmentScoped: true,
	},
	{
		ID:          "critical-patients",
		Name:        "Critical Patients",
		Description: "Admitted patients currently flagged critical, grouped by department",
		SQL:         `SELECT department, COUNT(*) AS total FROM patients WHERE discharged_at IS NULL AND critical GROUP BY department ORDER BY total DESC`,
		Parameters:  []string{},
		DepartmentScoped: true,
	},
	{
		ID:          "test-backlog",
		Name:        "Test Backlog",
		Description: "Diagnostic test requests grouped by category and status",
		SQL:         `SELECT category, request_status, COUNT(*) AS total FROM test_results GROUP BY category, request_status ORDER BY category, request_status`,
		Parameters:  []string{},
	},
	{
		ID:          "medication-schedule-status",
		Name:        "Medication Schedule Status",
		Description: "Medication orders grouped by status",
		SQL:         `SELECT status, COUNT(*) AS total FROM medications GROUP BY status ORDER BY total DESC`,
		Parameters:  []string{},
	},
	{
		ID:          "admissions-by-day",
		Name:        "Admissions by Day",
		Description: "Admissions per day over the last 30 days for one department",
		SQL:         `SELECT date_trunc('day', admitted_at) AS day, COUNT(*) AS total FROM patients WHERE department = $1 AND admitted_at > now() - interval '30 days' GROUP BY day ORDER BY day`,
		Parameters:  []string{"department"},
	},
	{
		ID:          "deaths-by-month",
		Name:        "Deaths by Month",
		Description: "Recorded deaths per calendar month",
		SQL:         `SELECT date_trunc('month', died_at) AS month, COUNT(*) AS total FROM deaths GROUP BY month ORDER BY month`,
		Parameters:  []string{},
	},
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	pool    *pgxpool.Pool
	exports ExportLogger
}

// NewHandler creates a new reporting handler. exports may be nil, in which
// case served reports are not written to the export log.
func NewHandler(pool *pgxpool.Pool, exports ExportLogger) *Handler {
	return &Handler{pool: pool, exports: exports}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports", auth.Require(auth.ActionViewReports))
	reportGroup.GET("/measures", h.ListMeasures)
	reportGroup.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
// Non-admin callers only ever see their own department: a declared
// department parameter is overridden with the caller's, department-scoped
// measures get a filter wrapped around them, and measures that can do
// neither are admin only.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	principal := session.PrincipalFromContext(c.Request().Context())
	isAdmin := principal != nil && principal.Role == string(auth.RoleAdmin)

	// Bind query-string values to SQL placeholders, in declaration order.
	params := map[string]string{}
	args := make([]any, 0, len(measure.Parameters))
	hasDeptParam := false
	for _, p := range measure.Parameters {
		v := c.QueryParam(p)
		if p == "department" {
			hasDeptParam = true
			if !isAdmin {
				v = principal.Department
			}
		}
		if v == "" {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("missing parameter %q", p))
		}
		params[p] = v
		args = append(args, v)
	}

	sqlText := measure.SQL
	if !isAdmin && !hasDeptParam {
		if !measure.DepartmentScoped {
			return echo.NewHTTPError(http.StatusForbidden, "measure is restricted to administrators")
		}
		args = append(args, principal.Department)
		sqlText = fmt.Sprintf("SELECT * FROM (%s) scoped WHERE department = $%d", sqlText, len(args))
	}

	results, err := h.executeSQL(c.Request().Context(), sqlText, args...)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	if h.exports != nil && principal != nil {
		h.exports.LogBestEffort(c.Request().Context(), principal, "report:"+measure.ID)
	}

	report := MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		Results:     results,
		Parameters:  params,
	}

	return c.JSON(http.StatusOK, report)
}

// executeSQL runs a SQL query and returns results as a slice of maps.
func (h *Handler) executeSQL(ctx context.Context, sql string, args ...any) ([]map[string]interface{}, error) {
	rows, err := h.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]interface{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}

	if results == nil {
		results = []map[string]interface{}{}
	}

	return results, nil
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
