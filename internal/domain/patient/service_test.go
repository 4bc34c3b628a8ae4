package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mmh/hms/internal/platform/session"
)

// -- Mock Repository --

type mockRepo struct {
	patients map[uuid.UUID]*Patient
	deaths   map[uuid.UUID]*DeathRecord

	failCreateDeath bool
	failDischarge   bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients: make(map[uuid.UUID]*Patient),
		deaths:   make(map[uuid.UUID]*DeathRecord),
	}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if f.Department != "" && p.Department != f.Department {
			continue
		}
		if f.CriticalOnly && !p.Critical {
			continue
		}
		if f.AdmittedOnly && !p.Admitted() {
			continue
		}
		result = append(result, p)
	}
	return result, len(result), nil
}

func (m *mockRepo) UpdateAdmitted(_ context.Context, p *Patient) error {
	cur, ok := m.patients[p.ID]
	if !ok {
		return ErrNotFound
	}
	if !cur.Admitted() {
		return ErrDischarged
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) AssignBed(_ context.Context, id uuid.UUID, bed string) error {
	p, ok := m.patients[id]
	if !ok {
		return ErrNotFound
	}
	if !p.Admitted() {
		return ErrDischarged
	}
	p.BedNumber = &bed
	return nil
}

func (m *mockRepo) Discharge(_ context.Context, id uuid.UUID, notes string) error {
	if m.failDischarge {
		return errors.New("discharge failed")
	}
	p, ok := m.patients[id]
	if !ok {
		return ErrNotFound
	}
	if !p.Admitted() {
		return ErrDischarged
	}
	now := time.Now()
	p.DischargedAt = &now
	p.DischargeNotes = &notes
	return nil
}

func (m *mockRepo) DischargeAt(_ context.Context, id uuid.UUID, at time.Time, notes string) error {
	if m.failDischarge {
		return errors.New("discharge failed")
	}
	p, ok := m.patients[id]
	if !ok {
		return ErrNotFound
	}
	if !p.Admitted() {
		return ErrDischarged
	}
	p.DischargedAt = &at
	p.DischargeNotes = &notes
	return nil
}

func (m *mockRepo) SetCritical(_ context.Context, id uuid.UUID, critical bool) error {
	p, ok := m.patients[id]
	if !ok {
		return ErrNotFound
	}
	if !p.Admitted() {
		return ErrDischarged
	}
	p.Critical = critical
	return nil
}

func (m *mockRepo) CreateDeath(_ context.Context, d *DeathRecord) error {
	if m.failCreateDeath {
		return errors.New("insert failed")
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	m.deaths[d.PatientID] = d
	return nil
}

func (m *mockRepo) GetDeathByPatient(_ context.Context, patientID uuid.UUID) (*DeathRecord, error) {
	d, ok := m.deaths[patientID]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *mockRepo) ListDeaths(_ context.Context, department string, limit, offset int) ([]*DeathRecord, int, error) {
	var result []*DeathRecord
	for _, d := range m.deaths {
		if department != "" {
			pt, ok := m.patients[d.PatientID]
			if !ok || pt.Department != department {
				continue
			}
		}
		result = append(result, d)
	}
	return result, len(result), nil
}

// -- Helpers --

func nursePrincipal(dept string) *session.Principal {
	return &session.Principal{
		UserID:     uuid.New(),
		SessionID:  uuid.New(),
		Username:   "nurse.okafor",
		Role:       "nurse",
		Department: dept,
	}
}

func admit(t *testing.T, svc *Service, dept string) *Patient {
	t.Helper()
	pt, err := svc.Admit(context.Background(), nursePrincipal(dept), AdmitInput{
		FullName:    "Amara Eze",
		DateOfBirth: "1984-03-12",
		Gender:      "female",
		Department:  dept,
	})
	if err != nil {
		t.Fatalf("Admit() error: %v", err)
	}
	return pt
}

// -- Tests --

func TestAdmit(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	pt := admit(t, svc, "cardiology")

	if pt.ID == uuid.Nil {
		t.Error("expected generated patient id")
	}
	if !pt.Admitted() {
		t.Error("new patient must be admitted")
	}
	if pt.Critical {
		t.Error("new patient must not be critical")
	}
	if pt.Department != "cardiology" {
		t.Errorf("unexpected department %q", pt.Department)
	}
}

func TestAdmit_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	p := nursePrincipal("cardiology")

	cases := []AdmitInput{
		{DateOfBirth: "1984-03-12", Gender: "female", Department: "cardiology"}, // no name
		{FullName: "A", DateOfBirth: "1984-03-12", Gender: "unknown", Department: "cardiology"},
		{FullName: "A", DateOfBirth: "12/03/1984", Gender: "male", Department: "cardiology"},
		{FullName: "A", DateOfBirth: "2999-01-01", Gender: "male", Department: "cardiology"},
		{FullName: "A", DateOfBirth: "1984-03-12", Gender: "male"}, // no department
	}
	for i, in := range cases {
		if _, err := svc.Admit(context.Background(), p, in); !errors.Is(err, ErrInvalid) {
			t.Errorf("case %d: expected ErrInvalid, got %v", i, err)
		}
	}
}

func TestAdmit_OtherDepartmentDenied(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	_, err := svc.Admit(context.Background(), nursePrincipal("cardiology"), AdmitInput{
		FullName:    "Amara Eze",
		DateOfBirth: "1984-03-12",
		Gender:      "female",
		Department:  "oncology",
	})
	if !errors.Is(err, ErrWrongDepartment) {
		t.Errorf("expected ErrWrongDepartment, got %v", err)
	}
}

func TestEdit(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	pt := admit(t, svc, "cardiology")

	updated, err := svc.Edit(context.Background(), nursePrincipal("cardiology"), pt.ID, EditInput{
		FullName:  "Amara Eze-Obi",
		BedNumber: "C-12",
	})
	if err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if updated.FullName != "Amara Eze-Obi" {
		t.Errorf("expected name update, got %q", updated.FullName)
	}
	if updated.BedNumber == nil || *updated.BedNumber != "C-12" {
		t.Error("expected bed number update")
	}
	// Untouched fields keep their values.
	if updated.Gender != "female" {
		t.Errorf("gender must be preserved, got %q", updated.Gender)
	}
}

func TestEdit_CrossDepartmentDenied(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	pt := admit(t, svc, "cardiology")

	_, err := svc.Edit(context.Background(), nursePrincipal("oncology"), pt.ID, EditInput{FullName: "X"})
	if !errors.Is(err, ErrWrongDepartment) {
		t.Errorf("expected ErrWrongDepartment, got %v", err)
	}
}

func TestDischarge(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	pt := admit(t, svc, "cardiology")
	p := nursePrincipal("cardiology")

	if err := svc.Discharge(context.Background(), p, pt.ID, "recovered"); err != nil {
		t.Fatalf("Discharge() error: %v", err)
	}

	got, _ := repo.GetByID(context.Background(), pt.ID)
	if got.Admitted() {
		t.Error("expected patient to be discharged")
	}

	// A second discharge conflicts.
	if err := svc.Discharge(context.Background(), p, pt.ID, "again"); !errors.Is(err, ErrDischarged) {
		t.Errorf("expected ErrDischarged on double discharge, got %v", err)
	}
}

func TestDischarge_RequiresNotes(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	pt := admit(t, svc, "cardiology")

	err := svc.Discharge(context.Background(), nursePrincipal("cardiology"), pt.ID, "")
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for empty notes, got %v", err)
	}
}

func TestAssignBed(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	pt := admit(t, svc, "cardiology")
	p := nursePrincipal("cardiology")

	if err := svc.AssignBed(context.Background(), p, pt.ID, "C-4"); err != nil {
		t.Fatalf("AssignBed() error: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), pt.ID)
	if got.BedNumber == nil || *got.BedNumber != "C-4" {
		t.Error("expected bed C-4")
	}

	// Discharged patients keep their last bed.
	if err := svc.Discharge(context.Background(), p, pt.ID, "recovered"); err != nil {
		t.Fatalf("Discharge() error: %v", err)
	}
	if err := svc.AssignBed(context.Background(), p, pt.ID, "C-5"); !errors.Is(err, ErrDischarged) {
		t.Errorf("expected ErrDischarged, got %v", err)
	}
}

func TestRecordDeath(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	pt := admit(t, svc, "cardiology")
	p := nursePrincipal("cardiology")

	death, err := svc.RecordDeath(context.Background(), p, pt.ID, DeathInput{
		DiedAt: "2026-08-01",
		Cause:  "cardiac arrest",
	})
	if err != nil {
		t.Fatalf("RecordDeath() error: %v", err)
	}
	if death.RecordedBy != p.UserID {
		t.Error("expected recording nurse to be captured")
	}

	got, _ := repo.GetByID(context.Background(), pt.ID)
	if got.Admitted() {
		t.Error("death recording must discharge the patient")
	}
	if !got.DischargedAt.Equal(death.DiedAt) {
		t.Errorf("discharged_at %v must equal date of death %v", got.DischargedAt, death.DiedAt)
	}

	// Recording twice conflicts.
	_, err = svc.RecordDeath(context.Background(), p, pt.ID, DeathInput{DiedAt: "2026-08-01", Cause: "x"})
	if !errors.Is(err, ErrDischarged) && !errors.Is(err, ErrDeathRecorded) {
		t.Errorf("expected conflict on second death recording, got %v", err)
	}
}

func TestRecordDeath_NoPartialEffect(t *testing.T) {
	repo := newMockRepo()
	repo.failCreateDeath = true
	svc := NewService(repo, nil)
	pt := admit(t, svc, "cardiology")

	_, err := svc.RecordDeath(context.Background(), nursePrincipal("cardiology"), pt.ID, DeathInput{
		DiedAt: "2026-08-01",
		Cause:  "cardiac arrest",
	})
	if err == nil {
		t.Fatal("expected error when death insert fails")
	}

	// The discharge must not have happened either.
	got, _ := repo.GetByID(context.Background(), pt.ID)
	if !got.Admitted() {
		t.Error("discharge must not survive a failed death insert")
	}
	if len(repo.deaths) != 0 {
		t.Error("no death record must exist")
	}
}

func TestRecordDeath_Validation(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	pt := admit(t, svc, "cardiology")
	p := nursePrincipal("cardiology")

	if _, err := svc.RecordDeath(context.Background(), p, pt.ID, DeathInput{DiedAt: "2026-08-01"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for missing cause, got %v", err)
	}
	if _, err := svc.RecordDeath(context.Background(), p, pt.ID, DeathInput{DiedAt: "bad", Cause: "x"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for bad date, got %v", err)
	}
}

func TestSetCritical(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	pt := admit(t, svc, "cardiology")

	if err := svc.SetCritical(context.Background(), pt.ID, true); err != nil {
		t.Fatalf("SetCritical() error: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), pt.ID)
	if !got.Critical {
		t.Error("expected critical flag set")
	}
}

func TestList_Filters(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	admit(t, svc, "cardiology")
	admit(t, svc, "cardiology")
	admit(t, svc, "oncology")

	_, total, err := svc.List(context.Background(), nursePrincipal("cardiology"), Filter{Department: "cardiology"}, 20, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 cardiology patients, got %d", total)
	}
}

func TestList_WardStaffScopedToOwnDepartment(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	admit(t, svc, "cardiology")
	admit(t, svc, "oncology")

	// No filter at all still only yields the nurse's own ward.
	_, total, err := svc.List(context.Background(), nursePrincipal("cardiology"), Filter{}, 20, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 patient visible to the cardiology nurse, got %d", total)
	}

	// A forged filter for another ward is overridden.
	_, total, err = svc.List(context.Background(), nursePrincipal("cardiology"), Filter{Department: "oncology"}, 20, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 1 {
		t.Errorf("expected the forged filter to be overridden, got %d patients", total)
	}

	// Admins filter freely.
	admin := &session.Principal{UserID: uuid.New(), SessionID: uuid.New(), Username: "admin", Role: "admin"}
	_, total, err = svc.List(context.Background(), admin, Filter{}, 20, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected admin to see both wards, got %d", total)
	}
}

func TestGetFor_CrossDepartmentDenied(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	pt := admit(t, svc, "cardiology")

	if _, err := svc.GetFor(context.Background(), nursePrincipal("oncology"), pt.ID); !errors.Is(err, ErrWrongDepartment) {
		t.Errorf("expected ErrWrongDepartment, got %v", err)
	}
	if _, err := svc.GetFor(context.Background(), nursePrincipal("cardiology"), pt.ID); err != nil {
		t.Errorf("same-department read failed: %v", err)
	}
}

func TestListDeaths_WardStaffScopedToOwnDepartment(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	cardio := admit(t, svc, "cardiology")
	onco := admit(t, svc, "oncology")

	for _, pt := range []*Patient{cardio, onco} {
		dept := pt.Department
		if _, err := svc.RecordDeath(context.Background(), nursePrincipal(dept), pt.ID, DeathInput{
			DiedAt: "2026-08-01", Cause: "cardiac arrest",
		}); err != nil {
			t.Fatalf("RecordDeath() error: %v", err)
		}
	}

	_, total, err := svc.ListDeaths(context.Background(), nursePrincipal("cardiology"), 20, 0)
	if err != nil {
		t.Fatalf("ListDeaths() error: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 death visible to the cardiology nurse, got %d", total)
	}
}

func TestAdmit_ExplicitCriticalAndPhone(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	critical := true

	pt, err := svc.Admit(context.Background(), nursePrincipal("cardiology"), AdmitInput{
		FullName:    "Amara Eze",
		DateOfBirth: "1984-03-12",
		Gender:      "female",
		Phone:       "+2348012345678",
		Department:  "cardiology",
		Critical:    &critical,
	})
	if err != nil {
		t.Fatalf("Admit() error: %v", err)
	}
	if !pt.Critical {
		t.Error("expected explicit critical flag to be honored")
	}
	if pt.Phone != "+2348012345678" {
		t.Errorf("unexpected phone %q", pt.Phone)
	}
	// No bed given: the field stays unset rather than empty.
	if pt.BedNumber != nil {
		t.Errorf("expected nil bed number, got %q", *pt.BedNumber)
	}
}

func TestEdit_CriticalFlag(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	pt := admit(t, svc, "cardiology")

	on := true
	updated, err := svc.Edit(context.Background(), nursePrincipal("cardiology"), pt.ID, EditInput{Critical: &on})
	if err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if !updated.Critical {
		t.Error("expected critical flag set")
	}

	off := false
	updated, err = svc.Edit(context.Background(), nursePrincipal("cardiology"), pt.ID, EditInput{Critical: &off})
	if err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if updated.Critical {
		t.Error("expected critical flag cleared")
	}
}
