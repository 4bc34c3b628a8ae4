package vitals

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reading is an immutable vitals observation. Prior readings are never
// edited; corrections append a new reading.
type Reading struct {
	ID              uuid.UUID `json:"id" db:"id"`
	PatientID       uuid.UUID `json:"patient_id" db:"patient_id"`
	BloodPressure   string    `json:"blood_pressure" db:"blood_pressure"`
	Systolic        int       `json:"systolic" db:"systolic"`
	Diastolic       int       `json:"diastolic" db:"diastolic"`
	HeartRate       int       `json:"heart_rate" db:"heart_rate"`
	TemperatureC    float64   `json:"temperature_c" db:"temperature_c"`
	RespiratoryRate int       `json:"respiratory_rate" db:"respiratory_rate"`
	Critical        bool      `json:"critical" db:"critical"`
	RecordedBy      uuid.UUID `json:"recorded_by" db:"recorded_by"`
	RecordedAt      time.Time `json:"recorded_at" db:"recorded_at"`
}

var bpPattern = regexp.MustCompile(`^\d{2,3}/\d{2,3}$`)

// ParseBloodPressure splits a systolic/diastolic pair. Each component must
// be two or three digits.
func ParseBloodPressure(bp string) (systolic, diastolic int, err error) {
	if !bpPattern.MatchString(bp) {
		return 0, 0, fmt.Errorf("%w: blood_pressure must be systolic/diastolic, e.g. 120/80", ErrInvalid)
	}
	parts := strings.SplitN(bp, "/", 2)
	systolic, _ = strconv.Atoi(parts[0])
	diastolic, _ = strconv.Atoi(parts[1])
	return systolic, diastolic, nil
}

// Classify applies the critical predicate. Boundary values are normal;
// only strict threshold violations flag a reading.
func Classify(systolic, diastolic, heartRate int, temperatureC float64, respiratoryRate int) bool {
	switch {
	case systolic > 180 || systolic < 90:
		return true
	case diastolic > 120 || diastolic < 60:
		return true
	case heartRate > 100 || heartRate < 60:
		return true
	case temperatureC > 38 || temperatureC < 36:
		return true
	case respiratoryRate > 20 || respiratoryRate < 12:
		return true
	}
	return false
}
