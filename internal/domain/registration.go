package domain

import (
	"time"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
)

type Member struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	EmergencyContact string `json:"emergencyContact,omitempty"`
	ShirtSize        string `json:"shirtSize,omitempty"`
	ShirtCollected   bool   `json:"shirtCollected"`
}

// RegistrationDraft is validated form input waiting for payment.
type RegistrationDraft struct {
	EventID    uint          `json:"eventId"`
	Event      EventSnapshot `json:"event"`
	UserID     uint          `json:"userId"`
	Members    []Member      `json:"members"`
	TotalCents int64         `json:"totalCost"`
}

type PaymentDetails struct {
	TransactionID     string `json:"transactionId"`
	CardBrand         string `json:"cardBrand"`
	CardLast4         string `json:"cardLast4"`
	ProviderPaymentID string `json:"providerPaymentId"`
}

type Registration struct {
	ID             uint               `json:"id"`
	EventID        uint               `json:"eventId"`
	UserID         uint               `json:"userId"`
	Event          EventSnapshot      `json:"event"`
	Members        []Member           `json:"members"`
	TotalCents     int64              `json:"totalCost"`
	PaymentStatus  PaymentStatus      `json:"paymentStatus"`
	Status         RegistrationStatus `json:"status"`
	RegisteredAt   time.Time          `json:"registeredAt"`
	CheckedIn      bool               `json:"checkedIn"`
	PaymentDetails *PaymentDetails    `json:"paymentDetails,omitempty"`
}

// NewPaidRegistration builds the registration written once payment is confirmed.
// It already carries the payment fields so no unpaid row is ever stored.
func NewPaidRegistration(draft RegistrationDraft, details PaymentDetails, now time.Time) Registration {
	members := make([]Member, len(draft.Members))
	copy(members, draft.Members)

	return Registration{
		EventID:        draft.EventID,
		UserID:         draft.UserID,
		Event:          draft.Event,
		Members:        members,
		TotalCents:     draft.TotalCents,
		PaymentStatus:  PaymentPaid,
		Status:         RegistrationConfirmed,
		RegisteredAt:   now,
		PaymentDetails: &details,
	}
}

func (r Registration) Summary() RegisteredEvent {
	return RegisteredEvent{
		RegistrationID: r.ID,
		EventID:        r.EventID,
		EventTitle:     r.Event.Title,
		TotalCents:     r.TotalCents,
		RegisteredAt:   r.RegisteredAt,
	}
}

// CheckInPatch updates the day-of-event flags of a registration.
type CheckInPatch struct {
	CheckedIn *bool
	// ShirtCollected is indexed by member position.
	ShirtCollected map[int]bool
}
