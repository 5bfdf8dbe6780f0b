package domain

import "time"

type ReconciliationStatus string

const (
	ReconciliationOpen     ReconciliationStatus = "open"
	ReconciliationResolved ReconciliationStatus = "resolved"
)

// Reconciliation records a payment that was captured but whose registration
// could not be written. Admins replay it from the stored draft.
type Reconciliation struct {
	ID             uint                 `json:"id"`
	Reference      string               `json:"reference"`
	Payment        PaymentDetails       `json:"payment"`
	Draft          RegistrationDraft    `json:"draft"`
	Reason         string               `json:"reason"`
	Status         ReconciliationStatus `json:"status"`
	RegistrationID *uint                `json:"registrationId,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}
