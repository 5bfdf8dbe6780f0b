package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/export"
	"github.com/vietanh2810/rally-api/internal/repository"
)

var ErrRegistrationNotFound = repository.ErrRegistrationNotFound

type RegistrationRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Registration, error)
	List(ctx context.Context, eventID uint) ([]domain.Registration, error)
	UpdateCheckIn(ctx context.Context, id uint, patch domain.CheckInPatch) (domain.Registration, error)
}

type RegistrationService struct {
	repo RegistrationRepository
	loc  *time.Location
}

// NewRegistrationService renders exported times in loc (UTC when nil).
func NewRegistrationService(repo RegistrationRepository, loc *time.Location) *RegistrationService {
	if loc == nil {
		loc = time.UTC
	}
	return &RegistrationService{
		repo: repo,
		loc:  loc,
	}
}

// ListRegistrations lists every registration when eventID is 0.
func (s *RegistrationService) ListRegistrations(ctx context.Context, eventID uint) ([]domain.Registration, error) {
	regs, err := s.repo.List(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.List -> %w", err)
	}
	return regs, nil
}

func (s *RegistrationService) GetRegistration(ctx context.Context, id uint) (domain.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	return reg, nil
}

func (s *RegistrationService) UpdateCheckIn(ctx context.Context, id uint, patch domain.CheckInPatch) (domain.Registration, error) {
	reg, err := s.repo.UpdateCheckIn(ctx, id, patch)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.UpdateCheckIn -> %w", err)
	}
	return reg, nil
}

func (s *RegistrationService) ExportCSV(ctx context.Context, w io.Writer, eventID uint) error {
	regs, err := s.ListRegistrations(ctx, eventID)
	if err != nil {
		return err
	}

	if err = export.WriteRegistrations(w, regs, s.loc); err != nil {
		return fmt.Errorf("export.WriteRegistrations -> %w", err)
	}
	return nil
}
