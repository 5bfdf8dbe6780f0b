package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrEventNotFound = errors.New("event not found")

// Event is stored flat; team and individual pricing columns are nullable and
// only one set is filled for a given row.
type Event struct {
	ID              uint   `gorm:"primaryKey"`
	Title           string `gorm:"not null"`
	Description     string
	Date            time.Time `gorm:"not null;index"`
	Location        string    `gorm:"not null"`
	Image           string
	Status          string `gorm:"not null;default:active"`
	EventType       string `gorm:"not null"`
	Capacity        int    `gorm:"not null;default:0"`
	RegisteredCount int    `gorm:"not null;default:0"`

	BasePrice        *int64
	ExtraMemberPrice *int64
	MinTeamSize      *int
	MaxTeamSize      *int
	ShirtSizes       []string `gorm:"serializer:json;type:jsonb"`

	IndividualPrice *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

type EventDAO struct {
	db *gorm.DB
}

func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{
		db: db,
	}
}

// List orders events by date, newest first. An empty status matches every event.
func (d *EventDAO) List(ctx context.Context, status string, page Page) ([]Event, error) {
	var events []Event

	q := d.db.WithContext(ctx).Scopes(paginate(page)).Order("date DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}

	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (d *EventDAO) FindByID(ctx context.Context, id uint) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).First(&event, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) Insert(ctx context.Context, event Event) (Event, error) {
	if err := d.db.WithContext(ctx).Create(&event).Error; err != nil {
		return Event{}, err
	}
	return event, nil
}

// Update writes every column of event except the registration counter, which
// only IncrementRegisteredCount touches.
func (d *EventDAO) Update(ctx context.Context, event Event) (Event, error) {
	result := d.db.WithContext(ctx).Model(&event).
		Select("*").
		Omit("id", "registered_count", "created_at").
		Updates(&event)
	if result.Error != nil {
		return Event{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Event{}, ErrEventNotFound
	}

	return d.FindByID(ctx, event.ID)
}

func (d *EventDAO) Delete(ctx context.Context, id uint) error {
	result := d.db.WithContext(ctx).Delete(&Event{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (d *EventDAO) IncrementRegisteredCount(ctx context.Context, id uint, delta int) (Event, error) {
	result := d.db.WithContext(ctx).Model(&Event{ID: id}).
		UpdateColumn("registered_count", gorm.Expr("registered_count + ?", delta))
	if result.Error != nil {
		return Event{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Event{}, ErrEventNotFound
	}

	return d.FindByID(ctx, id)
}
