package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRosterFull       = errors.New("team already has the maximum number of members")
	ErrRosterAtMinimum  = errors.New("team cannot have fewer than the minimum number of members")
	ErrMandatorySlot    = errors.New("mandatory team member slots cannot be removed")
	ErrMemberIndex      = errors.New("member index out of range")
	ErrUnknownField     = errors.New("unknown member field")
	ErrMissingField     = errors.New("required field is missing")
	ErrTermsNotAccepted = errors.New("terms and conditions must be accepted")
	ErrWrongEventType   = errors.New("event does not accept this kind of registration")
)

type MemberField string

const (
	FieldName             MemberField = "name"
	FieldEmail            MemberField = "email"
	FieldPhone            MemberField = "phone"
	FieldEmergencyContact MemberField = "emergencyContact"
	FieldShirtSize        MemberField = "shirtSize"
)

// MissingFieldError names the member and field that blocked a submission.
// Index is -1 for single-registrant forms.
type MissingFieldError struct {
	Index int
	Field MemberField
}

func (e *MissingFieldError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("member %d: %s is required", e.Index+1, e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// TeamRoster is the editable member list of a team registration.
type TeamRoster struct {
	eventID uint
	event   EventSnapshot
	pricing TeamPricing
	members []Member
}

// NewTeamRoster starts a roster with MinTeamSize empty slots.
func NewTeamRoster(event Event) (*TeamRoster, error) {
	pricing, ok := event.Pricing.(TeamPricing)
	if !ok {
		return nil, ErrWrongEventType
	}
	if err := pricing.Validate(); err != nil {
		return nil, err
	}

	return &TeamRoster{
		eventID: event.ID,
		event:   event.Snapshot(),
		pricing: pricing,
		members: make([]Member, pricing.MinTeamSize),
	}, nil
}

func (r *TeamRoster) Len() int {
	return len(r.members)
}

func (r *TeamRoster) Members() []Member {
	out := make([]Member, len(r.members))
	copy(out, r.members)
	return out
}

func (r *TeamRoster) AddMember() error {
	if len(r.members) >= r.pricing.MaxTeamSize {
		return ErrRosterFull
	}
	r.members = append(r.members, Member{})
	return nil
}

func (r *TeamRoster) RemoveMember(index int) error {
	if index < 0 || index >= len(r.members) {
		return ErrMemberIndex
	}
	if index < r.pricing.MinTeamSize {
		return ErrMandatorySlot
	}
	if len(r.members)-1 < r.pricing.MinTeamSize {
		return ErrRosterAtMinimum
	}
	r.members = append(r.members[:index], r.members[index+1:]...)
	return nil
}

func (r *TeamRoster) UpdateMember(index int, field MemberField, value string) error {
	if index < 0 || index >= len(r.members) {
		return ErrMemberIndex
	}

	m := &r.members[index]
	switch field {
	case FieldName:
		m.Name = value
	case FieldEmail:
		m.Email = value
	case FieldPhone:
		m.Phone = value
	case FieldEmergencyContact:
		m.EmergencyContact = value
	case FieldShirtSize:
		m.ShirtSize = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	return nil
}

// Total is recomputed from the current roster length on every call.
func (r *TeamRoster) Total() int64 {
	return r.pricing.TotalFor(len(r.members))
}

func (r *TeamRoster) Submit(userID uint) (RegistrationDraft, error) {
	for i, m := range r.members {
		if blank(m.Name) {
			return RegistrationDraft{}, &MissingFieldError{Index: i, Field: FieldName}
		}
		if blank(m.Email) {
			return RegistrationDraft{}, &MissingFieldError{Index: i, Field: FieldEmail}
		}
		if r.pricing.RequiresShirts() && blank(m.ShirtSize) {
			return RegistrationDraft{}, &MissingFieldError{Index: i, Field: FieldShirtSize}
		}
	}

	members := r.Members()
	for i := range members {
		members[i] = members[i].trimmed()
	}

	return RegistrationDraft{
		EventID:    r.eventID,
		Event:      r.event,
		UserID:     userID,
		Members:    members,
		TotalCents: r.Total(),
	}, nil
}

type IndividualForm struct {
	Name             string
	Email            string
	Phone            string
	EmergencyContact string
	AcceptedTerms    bool
}

// Submit checks terms before anything else, then the required fields.
func (f IndividualForm) Submit(event Event, userID uint) (RegistrationDraft, error) {
	pricing, ok := event.Pricing.(IndividualPricing)
	if !ok {
		return RegistrationDraft{}, ErrWrongEventType
	}
	if !f.AcceptedTerms {
		return RegistrationDraft{}, ErrTermsNotAccepted
	}

	required := []struct {
		field MemberField
		value string
	}{
		{FieldName, f.Name},
		{FieldEmail, f.Email},
		{FieldPhone, f.Phone},
		{FieldEmergencyContact, f.EmergencyContact},
	}
	for _, r := range required {
		if blank(r.value) {
			return RegistrationDraft{}, &MissingFieldError{Index: -1, Field: r.field}
		}
	}

	member := Member{
		Name:             f.Name,
		Email:            f.Email,
		Phone:            f.Phone,
		EmergencyContact: f.EmergencyContact,
	}

	return RegistrationDraft{
		EventID: event.ID,
		Event:   event.Snapshot(),
		UserID:  userID,
		Members: []Member{member.trimmed()},
		TotalCents: pricing.PriceCents,
	}, nil
}

func (m Member) trimmed() Member {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Phone = strings.TrimSpace(m.Phone)
	m.EmergencyContact = strings.TrimSpace(m.EmergencyContact)
	m.ShirtSize = strings.TrimSpace(m.ShirtSize)
	return m
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
