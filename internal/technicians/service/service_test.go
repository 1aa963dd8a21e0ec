package service

import (
	"context"
	"testing"

	"aftersales_backend/internal/technicians/repository"
	"aftersales_backend/internal/technicians/transport"
	"aftersales_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeRepo struct {
	technicians map[uuid.UUID]*repository.Technician
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{technicians: map[uuid.UUID]*repository.Technician{}}
}

func (f *fakeRepo) Create(ctx context.Context, tech *repository.Technician) error {
	f.technicians[tech.ID] = tech
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.Technician, error) {
	tech, ok := f.technicians[id]
	if !ok {
		return nil, apperr.NotFound("technician not found")
	}
	return tech, nil
}

func (f *fakeRepo) List(ctx context.Context, availableOnly bool, skill string) ([]repository.Technician, error) {
	result := []repository.Technician{}
	for _, tech := range f.technicians {
		if availableOnly && !tech.Available {
			continue
		}
		result = append(result, *tech)
	}
	return result, nil
}

func (f *fakeRepo) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	tech, ok := f.technicians[id]
	if !ok {
		return apperr.NotFound("technician not found")
	}
	tech.Available = available
	return nil
}

func TestCreate_StartsAvailable(t *testing.T) {
	svc := New(newFakeRepo())

	tech, err := svc.Create(context.Background(), transport.CreateTechnicianRequest{
		Name:   "Paul Martin",
		Email:  "paul@example.fr",
		Skills: []string{"froid", "electromenager"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tech.Available {
		t.Fatal("expected a new technician to start available")
	}
	if len(tech.Skills) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(tech.Skills))
	}
}

func TestCreate_StoresPhoneInE164(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)

	tech, err := svc.Create(context.Background(), transport.CreateTechnicianRequest{
		Name:  "Paul Martin",
		Email: "paul@example.fr",
		Phone: "06 12 34 56 78",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tech.Phone != "+33612345678" {
		t.Fatalf("expected normalized phone +33612345678, got %q", tech.Phone)
	}

	stored := repo.technicians[tech.ID]
	if stored.Phone == nil || *stored.Phone != "+33612345678" {
		t.Fatalf("expected stored phone in E.164, got %v", stored.Phone)
	}
}

func TestIsAssignable(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)

	tech, err := svc.Create(context.Background(), transport.CreateTechnicianRequest{Name: "Paul", Email: "paul@example.fr"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assignable, err := svc.IsAssignable(context.Background(), tech.ID)
	if err != nil || !assignable {
		t.Fatalf("expected assignable technician, got %v %v", assignable, err)
	}

	if err := svc.SetAvailability(context.Background(), tech.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assignable, err = svc.IsAssignable(context.Background(), tech.ID)
	if err != nil || assignable {
		t.Fatalf("expected unavailable technician to be unassignable, got %v %v", assignable, err)
	}

	if _, err := svc.IsAssignable(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound for unknown technician, got %v", err)
	}
}

func TestList_AvailableOnly(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)

	a, _ := svc.Create(context.Background(), transport.CreateTechnicianRequest{Name: "A", Email: "a@example.fr"})
	if _, err := svc.Create(context.Background(), transport.CreateTechnicianRequest{Name: "B", Email: "b@example.fr"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SetAvailability(context.Background(), a.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.List(context.Background(), transport.ListTechniciansRequest{AvailableOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 available technician, got %d", len(result))
	}
}
