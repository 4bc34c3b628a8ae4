package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error)

	// UpdateAdmitted, AssignBed and Discharge only touch open records; a
	// closed record yields ErrDischarged, a missing one ErrNotFound.
	UpdateAdmitted(ctx context.Context, p *Patient) error
	AssignBed(ctx context.Context, id uuid.UUID, bed string) error
	Discharge(ctx context.Context, id uuid.UUID, notes string) error
	// DischargeAt closes the record at a caller-supplied time; used by death
	// recording where discharged-at must equal the date of death.
	DischargeAt(ctx context.Context, id uuid.UUID, at time.Time, notes string) error
	SetCritical(ctx context.Context, id uuid.UUID, critical bool) error

	CreateDeath(ctx context.Context, d *DeathRecord) error
	GetDeathByPatient(ctx context.Context, patientID uuid.UUID) (*DeathRecord, error)
	// ListDeaths joins through patients when a department is given; an empty
	// department lists across wards.
	ListDeaths(ctx context.Context, department string, limit, offset int) ([]*DeathRecord, int, error)
}
