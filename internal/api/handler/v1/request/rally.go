package request

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/service"
)

var (
	errPricingNeedsType = errors.New("type is required when changing pricing")
	errUnknownEventType = errors.New("type must be team or individual")
)

type MemberRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	EmergencyContact string `json:"emergencyContact"`
	ShirtSize        string `json:"shirtSize"`
}

// Member field checks live in the roster so errors point at the member index.
type TeamRegistrationRequest struct {
	Members         []MemberRequest `json:"members"`
	IntentID        string          `json:"intentId"`
	PaymentMethodID string          `json:"paymentMethodId"`
}

func (req *TeamRegistrationRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Members, validation.Required),
	)
}

func (req *TeamRegistrationRequest) DomainMembers() []domain.Member {
	members := make([]domain.Member, len(req.Members))
	for i, m := range req.Members {
		members[i] = domain.Member{
			Name:             m.Name,
			Email:            m.Email,
			Phone:            m.Phone,
			EmergencyContact: m.EmergencyContact,
			ShirtSize:        m.ShirtSize,
		}
	}
	return members
}

func (req *TeamRegistrationRequest) Payment() service.PaymentInput {
	return service.PaymentInput{IntentID: req.IntentID, PaymentMethodID: req.PaymentMethodID}
}

type IndividualRegistrationRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	EmergencyContact string `json:"emergencyContact"`
	AcceptedTerms    bool   `json:"acceptedTerms"`
	IntentID         string `json:"intentId"`
	PaymentMethodID  string `json:"paymentMethodId"`
}

// Validate reports unaccepted terms before looking at any other field.
func (req *IndividualRegistrationRequest) Validate() error {
	if !req.AcceptedTerms {
		return domain.ErrTermsNotAccepted
	}
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Email, is.Email),
	)
}

func (req *IndividualRegistrationRequest) Form() domain.IndividualForm {
	return domain.IndividualForm{
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		EmergencyContact: req.EmergencyContact,
		AcceptedTerms:    req.AcceptedTerms,
	}
}

func (req *IndividualRegistrationRequest) Payment() service.PaymentInput {
	return service.PaymentInput{IntentID: req.IntentID, PaymentMethodID: req.PaymentMethodID}
}

type QuoteRequest struct {
	TeamSize int `json:"teamSize"`
}

func (req *QuoteRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.TeamSize, validation.Min(0)),
	)
}

type PaymentIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

func (req *PaymentIntentRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Amount, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.Currency, validation.Length(3, 3), is.Alpha),
	)
}

type EventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date" format:"RFC3339"`
	Location    string `json:"location"`
	Image       string `json:"image"`
	Status      string `json:"status"`
	Capacity    int    `json:"capacity"`
	PricingRequest
}

// PricingRequest carries the columns of either pricing variant; Type picks one.
type PricingRequest struct {
	Type             string   `json:"type"`
	BasePrice        int64    `json:"basePrice"`
	ExtraMemberPrice int64    `json:"extraMemberPrice"`
	MinTeamSize      int      `json:"minTeamSize"`
	MaxTeamSize      int      `json:"maxTeamSize"`
	ShirtSizes       []string `json:"shirtSizes"`
	IndividualPrice  int64    `json:"individualPrice"`
}

func (req *EventRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.Required, validation.Length(2, 120)),
		validation.Field(&req.Date, validation.Required, validation.Date(time.RFC3339)),
		validation.Field(&req.Location, validation.Required, validation.Length(2, 120)),
		validation.Field(&req.Description, validation.Length(0, 2000)),
		validation.Field(&req.Status, validation.In(string(domain.EventActive), string(domain.EventPast))),
		validation.Field(&req.Capacity, validation.Min(0)),
		validation.Field(&req.Type, validation.Required, validation.In(string(domain.EventTypeTeam), string(domain.EventTypeIndividual))),
	)
}

func (req *EventRequest) ToDomain() (domain.Event, error) {
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return domain.Event{}, fmt.Errorf("invalid date format: %w", err)
	}

	pricing, err := req.PricingRequest.toDomain()
	if err != nil {
		return domain.Event{}, err
	}

	return domain.Event{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
		Image:       req.Image,
		Status:      domain.EventStatus(req.Status),
		Capacity:    req.Capacity,
		Pricing:     pricing,
	}, nil
}

func (p PricingRequest) toDomain() (domain.Pricing, error) {
	switch domain.EventType(p.Type) {
	case domain.EventTypeTeam:
		return domain.TeamPricing{
			BaseCents:        p.BasePrice,
			ExtraMemberCents: p.ExtraMemberPrice,
			MinTeamSize:      p.MinTeamSize,
			MaxTeamSize:      p.MaxTeamSize,
			ShirtSizes:       p.ShirtSizes,
		}, nil
	case domain.EventTypeIndividual:
		return domain.IndividualPricing{PriceCents: p.IndividualPrice}, nil
	default:
		return nil, errUnknownEventType
	}
}

type EventPatchRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date" format:"RFC3339"`
	Location    *string `json:"location"`
	Image       *string `json:"image"`
	Status      *string `json:"status"`
	Capacity    *int    `json:"capacity"`
	// Pricing replaces the whole pricing variant when present.
	Pricing *PricingRequest `json:"pricing"`
}

func (req *EventPatchRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(2, 120)),
		validation.Field(&req.Date, validation.NilOrNotEmpty, validation.Date(time.RFC3339)),
		validation.Field(&req.Location, validation.NilOrNotEmpty, validation.Length(2, 120)),
		validation.Field(&req.Status, validation.NilOrNotEmpty, validation.In(string(domain.EventActive), string(domain.EventPast))),
		validation.Field(&req.Capacity, validation.Min(0)),
	)
}

func (req *EventPatchRequest) ToPatch() (domain.EventPatch, error) {
	patch := domain.EventPatch{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Image:       req.Image,
		Capacity:    req.Capacity,
	}

	if req.Date != nil {
		date, err := time.Parse(time.RFC3339, *req.Date)
		if err != nil {
			return domain.EventPatch{}, fmt.Errorf("invalid date format: %w", err)
		}
		patch.Date = &date
	}
	if req.Status != nil {
		status := domain.EventStatus(*req.Status)
		patch.Status = &status
	}
	if req.Pricing != nil {
		if req.Pricing.Type == "" {
			return domain.EventPatch{}, errPricingNeedsType
		}
		pricing, err := req.Pricing.toDomain()
		if err != nil {
			return domain.EventPatch{}, err
		}
		patch.Pricing = pricing
	}

	return patch, nil
}

type GalleryItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	URL         string `json:"url"`
}

func (req *GalleryItemRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 120)),
		validation.Field(&req.Type, validation.In(string(domain.MediaImage), string(domain.MediaVideo))),
		validation.Field(&req.URL, validation.Required, is.URL),
	)
}

func (req *GalleryItemRequest) ToDomain() domain.GalleryItem {
	return domain.GalleryItem{
		Title:       req.Title,
		Description: req.Description,
		MediaType:   domain.MediaType(req.Type),
		URL:         req.URL,
	}
}

type GalleryPatchRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
	URL         *string `json:"url"`
}

func (req *GalleryPatchRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.NilOrNotEmpty),
		validation.Field(&req.URL, validation.NilOrNotEmpty, is.URL),
	)
}

func (req *GalleryPatchRequest) ToPatch() domain.GalleryPatch {
	patch := domain.GalleryPatch{
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
	}
	if req.Type != nil {
		mt := domain.MediaType(*req.Type)
		patch.MediaType = &mt
	}
	return patch
}

type MerchandiseRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       int64    `json:"price"`
	Image       string   `json:"image"`
	Sizes       []string `json:"sizes"`
	InStock     *bool    `json:"inStock"`
}

func (req *MerchandiseRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 120)),
		validation.Field(&req.Price, validation.Min(int64(0))),
		validation.Field(&req.Image, is.URL),
	)
}

// ToDomain treats a missing inStock as in stock.
func (req *MerchandiseRequest) ToDomain() domain.MerchandiseItem {
	inStock := true
	if req.InStock != nil {
		inStock = *req.InStock
	}
	return domain.MerchandiseItem{
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.Price,
		Image:       req.Image,
		Sizes:       req.Sizes,
		InStock:     inStock,
	}
}

type MerchandisePatchRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *int64   `json:"price"`
	Image       *string  `json:"image"`
	Sizes       []string `json:"sizes"`
	InStock     *bool    `json:"inStock"`
}

func (req *MerchandisePatchRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.NilOrNotEmpty),
		validation.Field(&req.Price, validation.Min(int64(0))),
		validation.Field(&req.Image, is.URL),
	)
}

func (req *MerchandisePatchRequest) ToPatch() domain.MerchandisePatch {
	return domain.MerchandisePatch{
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.Price,
		Image:       req.Image,
		Sizes:       req.Sizes,
		InStock:     req.InStock,
	}
}

type CheckInRequest struct {
	CheckedIn *bool `json:"checkedIn"`
	// ShirtCollected is keyed by member position, starting at 0.
	ShirtCollected map[int]bool `json:"shirtCollected"`
}

func (req *CheckInRequest) Validate() error {
	if req.CheckedIn == nil && len(req.ShirtCollected) == 0 {
		return errors.New("checkedIn or shirtCollected is required")
	}
	return nil
}

func (req *CheckInRequest) ToPatch() domain.CheckInPatch {
	return domain.CheckInPatch{CheckedIn: req.CheckedIn, ShirtCollected: req.ShirtCollected}
}

type OrderItemRequest struct {
	MerchandiseID uint   `json:"merchandiseId"`
	Size          string `json:"size"`
	Quantity      int    `json:"quantity"`
}

func (req OrderItemRequest) Validate() error {
	return validation.ValidateStruct(
		&req,
		validation.Field(&req.MerchandiseID, validation.Required),
		validation.Field(&req.Quantity, validation.Required, validation.Min(1)),
	)
}

type OrderRequest struct {
	Items []OrderItemRequest `json:"items"`
}

func (req *OrderRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Items, validation.Required),
	)
}

func (req *OrderRequest) Lines() []service.OrderLine {
	lines := make([]service.OrderLine, len(req.Items))
	for i, it := range req.Items {
		lines[i] = service.OrderLine{MerchandiseID: it.MerchandiseID, Size: it.Size, Quantity: it.Quantity}
	}
	return lines
}
