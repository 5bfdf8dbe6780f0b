package domain

import (
	"errors"
	"fmt"
	"time"
)

type EventStatus string

const (
	EventActive EventStatus = "active"
	EventPast   EventStatus = "past"
)

type EventType string

const (
	EventTypeTeam       EventType = "team"
	EventTypeIndividual EventType = "individual"
)

var (
	ErrInvalidEventShape = errors.New("invalid event shape")
	ErrInvalidTeamSize   = errors.New("minTeamSize must be at least 1 and not greater than maxTeamSize")
	ErrNegativePrice     = errors.New("prices must not be negative")
)

// Pricing is either TeamPricing or IndividualPricing.
type Pricing interface {
	EventType() EventType
	Validate() error
	isPricing()
}

type TeamPricing struct {
	BaseCents        int64    `json:"basePrice"`
	ExtraMemberCents int64    `json:"extraMemberPrice"`
	MinTeamSize      int      `json:"minTeamSize"`
	MaxTeamSize      int      `json:"maxTeamSize"`
	ShirtSizes       []string `json:"shirtSizes,omitempty"`
}

func (TeamPricing) EventType() EventType { return EventTypeTeam }
func (TeamPricing) isPricing()           {}

func (p TeamPricing) Validate() error {
	if p.MinTeamSize < 1 || p.MinTeamSize > p.MaxTeamSize {
		return ErrInvalidTeamSize
	}
	if p.BaseCents < 0 || p.ExtraMemberCents < 0 {
		return ErrNegativePrice
	}
	return nil
}

// RequiresShirts reports whether every member has to pick a shirt size.
func (p TeamPricing) RequiresShirts() bool {
	return len(p.ShirtSizes) > 0
}

// TotalFor applies the team formula to a roster of n members. Only members beyond
// MinTeamSize are charged the extra price.
func (p TeamPricing) TotalFor(n int) int64 {
	extra := n - p.MinTeamSize
	if extra < 0 {
		extra = 0
	}
	return p.BaseCents + p.ExtraMemberCents*int64(extra)
}

type IndividualPricing struct {
	PriceCents int64 `json:"individualPrice"`
}

func (IndividualPricing) EventType() EventType { return EventTypeIndividual }
func (IndividualPricing) isPricing()           {}

func (p IndividualPricing) Validate() error {
	if p.PriceCents < 0 {
		return ErrNegativePrice
	}
	return nil
}

type Event struct {
	ID              uint        `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Date            time.Time   `json:"date"`
	Location        string      `json:"location"`
	Image           string      `json:"image,omitempty"`
	Status          EventStatus `json:"status"`
	Capacity        int         `json:"capacity"`
	RegisteredCount int         `json:"registeredCount"`
	Pricing         Pricing     `json:"pricing"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func (e Event) Type() EventType {
	if e.Pricing == nil {
		return ""
	}
	return e.Pricing.EventType()
}

func (e Event) Validate() error {
	if e.Pricing == nil {
		return fmt.Errorf("%w: missing pricing", ErrInvalidEventShape)
	}
	if e.Status != EventActive && e.Status != EventPast {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEventShape, e.Status)
	}
	if e.Capacity < 0 {
		return fmt.Errorf("%w: negative capacity", ErrInvalidEventShape)
	}
	return e.Pricing.Validate()
}

// IsFull is false for events without a capacity limit.
func (e Event) IsFull() bool {
	return e.Capacity > 0 && e.RegisteredCount >= e.Capacity
}

func (e Event) Snapshot() EventSnapshot {
	return EventSnapshot{
		Title:    e.Title,
		Date:     e.Date,
		Location: e.Location,
		Type:     e.Type(),
	}
}

// EventSnapshot is the copy of the event fields a registration keeps for exports.
type EventSnapshot struct {
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Location string    `json:"location"`
	Type     EventType `json:"type"`
}

// EventPatch carries the fields of a partial event update. Nil fields are left untouched.
type EventPatch struct {
	Title       *string
	Description *string
	Date        *time.Time
	Location    *string
	Image       *string
	Status      *EventStatus
	Capacity    *int
	Pricing     Pricing
}

// Apply merges the patch into e and validates the result.
func (p EventPatch) Apply(e Event) (Event, error) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Image != nil {
		e.Image = *p.Image
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Capacity != nil {
		e.Capacity = *p.Capacity
	}
	if p.Pricing != nil {
		e.Pricing = p.Pricing
	}

	if err := e.Validate(); err != nil {
		return Event{}, err
	}

	return e, nil
}
