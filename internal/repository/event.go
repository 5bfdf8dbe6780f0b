package repository

import (
	"context"
	"fmt"

	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/repository/dao"
)

var (
	ErrEventNotFound     = dao.ErrEventNotFound
	ErrInvalidEventShape = domain.ErrInvalidEventShape
)

type EventDAO interface {
	List(ctx context.Context, status string, page dao.Page) ([]dao.Event, error)
	FindByID(ctx context.Context, id uint) (dao.Event, error)
	Insert(ctx context.Context, event dao.Event) (dao.Event, error)
	Update(ctx context.Context, event dao.Event) (dao.Event, error)
	Delete(ctx context.Context, id uint) error
	IncrementRegisteredCount(ctx context.Context, id uint, delta int) (dao.Event, error)
}

type EventRepository struct {
	dao EventDAO
}

func NewEventRepository(dao EventDAO) *EventRepository {
	return &EventRepository{
		dao: dao,
	}
}

func toPage(opts domain.ListOptions) dao.Page {
	opts = opts.Normalize()
	return dao.Page{Offset: opts.Offset(), Limit: opts.PageSize}
}

func (r *EventRepository) List(ctx context.Context, status domain.EventStatus, opts domain.ListOptions) ([]domain.Event, error) {
	rows, err := r.dao.List(ctx, string(status), toPage(opts))
	if err != nil {
		return nil, fmt.Errorf("r.dao.List -> %w", err)
	}

	events := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		ev, err := r.daoToDomain(row)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	return events, nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uint) (domain.Event, error) {
	row, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(row)
}

func (r *EventRepository) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	if err := event.Validate(); err != nil {
		return domain.Event{}, err
	}

	created, err := r.dao.Insert(ctx, r.domainToDao(event))
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created)
}

// Update merges patch into the stored event. The merged event is validated
// before anything is written.
func (r *EventRepository) Update(ctx context.Context, id uint, patch domain.EventPatch) (domain.Event, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}

	merged, err := patch.Apply(current)
	if err != nil {
		return domain.Event{}, err
	}

	updated, err := r.dao.Update(ctx, r.domainToDao(merged))
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return r.daoToDomain(updated)
}

func (r *EventRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}
	return nil
}

func (r *EventRepository) IncrementRegisteredCount(ctx context.Context, id uint, delta int) (domain.Event, error) {
	row, err := r.dao.IncrementRegisteredCount(ctx, id, delta)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.IncrementRegisteredCount -> %w", err)
	}

	return r.daoToDomain(row)
}

// daoToDomain refuses rows whose columns do not form a complete team or
// individual event.
func (r *EventRepository) daoToDomain(e dao.Event) (domain.Event, error) {
	ev := domain.Event{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		Date:            e.Date,
		Location:        e.Location,
		Image:           e.Image,
		Status:          domain.EventStatus(e.Status),
		Capacity:        e.Capacity,
		RegisteredCount: e.RegisteredCount,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}

	switch domain.EventType(e.EventType) {
	case domain.EventTypeTeam:
		if e.BasePrice == nil || e.MinTeamSize == nil || e.MaxTeamSize == nil {
			return domain.Event{}, fmt.Errorf("%w: team event %d lacks team pricing", ErrInvalidEventShape, e.ID)
		}
		var extra int64
		if e.ExtraMemberPrice != nil {
			extra = *e.ExtraMemberPrice
		}
		ev.Pricing = domain.TeamPricing{
			BaseCents:        *e.BasePrice,
			ExtraMemberCents: extra,
			MinTeamSize:      *e.MinTeamSize,
			MaxTeamSize:      *e.MaxTeamSize,
			ShirtSizes:       e.ShirtSizes,
		}
	case domain.EventTypeIndividual:
		if e.IndividualPrice == nil {
			return domain.Event{}, fmt.Errorf("%w: individual event %d lacks a price", ErrInvalidEventShape, e.ID)
		}
		ev.Pricing = domain.IndividualPricing{PriceCents: *e.IndividualPrice}
	default:
		return domain.Event{}, fmt.Errorf("%w: event %d has type %q", ErrInvalidEventShape, e.ID, e.EventType)
	}

	return ev, nil
}

func (r *EventRepository) domainToDao(ev domain.Event) dao.Event {
	row := dao.Event{
		ID:              ev.ID,
		Title:           ev.Title,
		Description:     ev.Description,
		Date:            ev.Date,
		Location:        ev.Location,
		Image:           ev.Image,
		Status:          string(ev.Status),
		EventType:       string(ev.Type()),
		Capacity:        ev.Capacity,
		RegisteredCount: ev.RegisteredCount,
		CreatedAt:       ev.CreatedAt,
		UpdatedAt:       ev.UpdatedAt,
	}

	switch p := ev.Pricing.(type) {
	case domain.TeamPricing:
		row.BasePrice = &p.BaseCents
		row.ExtraMemberPrice = &p.ExtraMemberCents
		row.MinTeamSize = &p.MinTeamSize
		row.MaxTeamSize = &p.MaxTeamSize
		row.ShirtSizes = p.ShirtSizes
	case domain.IndividualPricing:
		row.IndividualPrice = &p.PriceCents
	}

	return row
}
