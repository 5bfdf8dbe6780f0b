package response

import (
	"time"

	"github.com/vietanh2810/rally-api/internal/domain"
)

type LoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Event flattens the pricing variant next to an explicit type tag.
type Event struct {
	ID              uint               `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Date            time.Time          `json:"date"`
	Location        string             `json:"location"`
	Image           string             `json:"image,omitempty"`
	Status          domain.EventStatus `json:"status"`
	Type            domain.EventType   `json:"type"`
	Capacity        int                `json:"capacity"`
	RegisteredCount int                `json:"registeredCount"`

	BasePrice        *int64   `json:"basePrice,omitempty"`
	ExtraMemberPrice *int64   `json:"extraMemberPrice,omitempty"`
	MinTeamSize      *int     `json:"minTeamSize,omitempty"`
	MaxTeamSize      *int     `json:"maxTeamSize,omitempty"`
	ShirtSizes       []string `json:"shirtSizes,omitempty"`
	IndividualPrice  *int64   `json:"individualPrice,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewEvent(e domain.Event) Event {
	out := Event{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		Date:            e.Date,
		Location:        e.Location,
		Image:           e.Image,
		Status:          e.Status,
		Type:            e.Type(),
		Capacity:        e.Capacity,
		RegisteredCount: e.RegisteredCount,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}

	switch p := e.Pricing.(type) {
	case domain.TeamPricing:
		out.BasePrice = &p.BaseCents
		out.ExtraMemberPrice = &p.ExtraMemberCents
		out.MinTeamSize = &p.MinTeamSize
		out.MaxTeamSize = &p.MaxTeamSize
		out.ShirtSizes = p.ShirtSizes
	case domain.IndividualPricing:
		out.IndividualPrice = &p.PriceCents
	}

	return out
}

func NewEvents(events []domain.Event) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = NewEvent(e)
	}
	return out
}

type QuoteResponse struct {
	EventID   uint  `json:"eventId"`
	TeamSize  int   `json:"teamSize,omitempty"`
	TotalCost int64 `json:"totalCost"`
}

type IntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

type PaymentConfigResponse struct {
	PublishableKey string `json:"publishableKey"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

// CapacityUpdate is pushed to websocket subscribers whenever a registration
// changes an event's registered count.
type CapacityUpdate struct {
	EventID         uint `json:"eventId"`
	RegisteredCount int  `json:"registeredCount"`
	Capacity        int  `json:"capacity"`
	Full            bool `json:"full"`
}

func NewCapacityUpdate(e domain.Event) CapacityUpdate {
	return CapacityUpdate{
		EventID:         e.ID,
		RegisteredCount: e.RegisteredCount,
		Capacity:        e.Capacity,
		Full:            e.IsFull(),
	}
}
