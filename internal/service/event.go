package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/repository"
)

var (
	ErrEventNotFound     = repository.ErrEventNotFound
	ErrInvalidEventShape = repository.ErrInvalidEventShape
	ErrRosterSize        = errors.New("team size is outside the allowed range")
)

type EventRepository interface {
	List(ctx context.Context, status domain.EventStatus, opts domain.ListOptions) ([]domain.Event, error)
	FindByID(ctx context.Context, id uint) (domain.Event, error)
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	Update(ctx context.Context, id uint, patch domain.EventPatch) (domain.Event, error)
	Delete(ctx context.Context, id uint) error
	IncrementRegisteredCount(ctx context.Context, id uint, delta int) (domain.Event, error)
}

type EventService struct {
	repo EventRepository
}

func NewEventService(repo EventRepository) *EventService {
	return &EventService{
		repo: repo,
	}
}

func (s *EventService) ListEvents(ctx context.Context, status domain.EventStatus, opts domain.ListOptions) ([]domain.Event, error) {
	events, err := s.repo.List(ctx, status, opts)
	if err != nil {
		return nil, fmt.Errorf("s.repo.List -> %w", err)
	}
	return events, nil
}

func (s *EventService) GetEvent(ctx context.Context, id uint) (domain.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	return event, nil
}

func (s *EventService) CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	event.ID = 0
	event.RegisteredCount = 0
	if event.Status == "" {
		event.Status = domain.EventActive
	}

	created, err := s.repo.Create(ctx, event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.Create -> %w", err)
	}
	return created, nil
}

func (s *EventService) UpdateEvent(ctx context.Context, id uint, patch domain.EventPatch) (domain.Event, error) {
	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.Update -> %w", err)
	}
	return updated, nil
}

func (s *EventService) DeleteEvent(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("s.repo.Delete -> %w", err)
	}
	return nil
}

// Quote prices a registration without taking payment. teamSize is ignored for
// individual events.
func (s *EventService) Quote(ctx context.Context, id uint, teamSize int) (int64, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return 0, err
	}

	switch p := event.Pricing.(type) {
	case domain.TeamPricing:
		if teamSize < p.MinTeamSize || teamSize > p.MaxTeamSize {
			return 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrRosterSize, teamSize, p.MinTeamSize, p.MaxTeamSize)
		}
		return p.TotalFor(teamSize), nil
	case domain.IndividualPricing:
		return p.PriceCents, nil
	default:
		return 0, ErrInvalidEventShape
	}
}
