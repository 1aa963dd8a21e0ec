// Package service contains the business logic for technicians.
package service

import (
	"context"
	"time"

	"aftersales_backend/internal/technicians/repository"
	"aftersales_backend/internal/technicians/transport"
	"aftersales_backend/platform/phone"

	"github.com/google/uuid"
)

// Repository defines the persistence operations the service needs.
type Repository interface {
	Create(ctx context.Context, tech *repository.Technician) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Technician, error)
	List(ctx context.Context, availableOnly bool, skill string) ([]repository.Technician, error)
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
}

// Service implements technician business logic
type Service struct {
	repo Repository
}

// New creates a new technicians service
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new technician. New technicians start available and
// their phone number is stored in E.164.
func (s *Service) Create(ctx context.Context, req transport.CreateTechnicianRequest) (*transport.TechnicianResponse, error) {
	now := time.Now()
	tech := &repository.Technician{
		ID:        uuid.New(),
		Name:      req.Name,
		Email:     req.Email,
		Skills:    normalizeSkills(req.Skills),
		Available: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Phone != "" {
		normalized := phone.NormalizeE164(req.Phone)
		tech.Phone = &normalized
	}

	if err := s.repo.Create(ctx, tech); err != nil {
		return nil, err
	}

	return toResponse(tech), nil
}

// GetByID returns a single technician
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.TechnicianResponse, error) {
	tech, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(tech), nil
}

// List returns technicians matching the filters
func (s *Service) List(ctx context.Context, req transport.ListTechniciansRequest) ([]transport.TechnicianResponse, error) {
	technicians, err := s.repo.List(ctx, req.AvailableOnly, req.Skill)
	if err != nil {
		return nil, err
	}

	responses := make([]transport.TechnicianResponse, 0, len(technicians))
	for i := range technicians {
		responses = append(responses, *toResponse(&technicians[i]))
	}
	return responses, nil
}

// SetAvailability toggles whether a technician can be assigned new interventions
func (s *Service) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	return s.repo.SetAvailability(ctx, id, available)
}

// IsAssignable reports whether the technician exists and is currently
// available. Used by intervention creation.
func (s *Service) IsAssignable(ctx context.Context, id uuid.UUID) (bool, error) {
	tech, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return tech.Available, nil
}

// Contact returns the technician's name and email for notifications.
func (s *Service) Contact(ctx context.Context, id uuid.UUID) (name, email string, err error) {
	tech, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", "", err
	}
	return tech.Name, tech.Email, nil
}

func normalizeSkills(skills []string) []string {
	if skills == nil {
		return []string{}
	}
	return skills
}

func toResponse(tech *repository.Technician) *transport.TechnicianResponse {
	resp := &transport.TechnicianResponse{
		ID:        tech.ID,
		Name:      tech.Name,
		Email:     tech.Email,
		Skills:    tech.Skills,
		Available: tech.Available,
		CreatedAt: tech.CreatedAt,
	}
	if tech.Phone != nil {
		resp.Phone = *tech.Phone
	}
	return resp
}
