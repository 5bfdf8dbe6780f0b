package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teamEvent(pricing TeamPricing) Event {
	return Event{
		ID:       7,
		Title:    "Spring Rally",
		Date:     time.Date(2026, 4, 12, 9, 0, 0, 0, time.UTC),
		Location: "Lake Park",
		Status:   EventActive,
		Capacity: 40,
		Pricing:  pricing,
	}
}

func fillRoster(t *testing.T, r *TeamRoster) {
	t.Helper()
	for i := 0; i < r.Len(); i++ {
		require.NoError(t, r.UpdateMember(i, FieldName, "Driver"))
		require.NoError(t, r.UpdateMember(i, FieldEmail, "driver@example.com"))
		require.NoError(t, r.UpdateMember(i, FieldShirtSize, "M"))
	}
}

func TestTeamRoster_TotalMatchesFormulaForEverySize(t *testing.T) {
	pricing := TeamPricing{BaseCents: 15000, ExtraMemberCents: 2500, MinTeamSize: 2, MaxTeamSize: 6}
	roster, err := NewTeamRoster(teamEvent(pricing))
	require.NoError(t, err)
	assert.Equal(t, 2, roster.Len())

	for n := pricing.MinTeamSize; n <= pricing.MaxTeamSize; n++ {
		want := pricing.BaseCents + pricing.ExtraMemberCents*int64(n-pricing.MinTeamSize)
		assert.Equal(t, want, roster.Total(), "roster size %d", n)

		fillRoster(t, roster)
		draft, err := roster.Submit(3)
		require.NoError(t, err)
		assert.Equal(t, want, draft.TotalCents)
		assert.Len(t, draft.Members, n)

		if n < pricing.MaxTeamSize {
			require.NoError(t, roster.AddMember())
		}
	}
}

func TestTeamRoster_AddRejectedAtMax(t *testing.T) {
	roster, err := NewTeamRoster(teamEvent(TeamPricing{BaseCents: 100, MinTeamSize: 1, MaxTeamSize: 2}))
	require.NoError(t, err)

	require.NoError(t, roster.AddMember())
	assert.ErrorIs(t, roster.AddMember(), ErrRosterFull)
	assert.Equal(t, 2, roster.Len())
}

func TestTeamRoster_RemoveMember(t *testing.T) {
	roster, err := NewTeamRoster(teamEvent(TeamPricing{BaseCents: 100, ExtraMemberCents: 10, MinTeamSize: 2, MaxTeamSize: 4}))
	require.NoError(t, err)

	t.Run("mandatory slot", func(t *testing.T) {
		assert.ErrorIs(t, roster.RemoveMember(0), ErrMandatorySlot)
		assert.ErrorIs(t, roster.RemoveMember(1), ErrMandatorySlot)
	})

	t.Run("out of range", func(t *testing.T) {
		assert.ErrorIs(t, roster.RemoveMember(5), ErrMemberIndex)
		assert.ErrorIs(t, roster.RemoveMember(-1), ErrMemberIndex)
	})

	t.Run("optional slot", func(t *testing.T) {
		require.NoError(t, roster.AddMember())
		require.NoError(t, roster.UpdateMember(2, FieldName, "third"))
		require.NoError(t, roster.AddMember())
		require.NoError(t, roster.UpdateMember(3, FieldName, "fourth"))
		assert.Equal(t, int64(120), roster.Total())

		require.NoError(t, roster.RemoveMember(2))
		assert.Equal(t, 3, roster.Len())
		assert.Equal(t, "fourth", roster.Members()[2].Name)
		assert.Equal(t, int64(110), roster.Total())
	})
}

func TestTeamRoster_UpdateMemberTouchesOneField(t *testing.T) {
	roster, err := NewTeamRoster(teamEvent(TeamPricing{MinTeamSize: 2, MaxTeamSize: 3}))
	require.NoError(t, err)

	require.NoError(t, roster.UpdateMember(0, FieldName, "Ana"))
	require.NoError(t, roster.UpdateMember(1, FieldPhone, "555-0101"))

	members := roster.Members()
	assert.Equal(t, Member{Name: "Ana"}, members[0])
	assert.Equal(t, Member{Phone: "555-0101"}, members[1])

	assert.ErrorIs(t, roster.UpdateMember(0, MemberField("age"), "30"), ErrUnknownField)
	assert.ErrorIs(t, roster.UpdateMember(2, FieldName, "x"), ErrMemberIndex)
}

func TestTeamRoster_SubmitValidation(t *testing.T) {
	tests := []struct {
		name    string
		pricing TeamPricing
		edit    func(r *TeamRoster)
		want    MissingFieldError
	}{
		{
			name:    "missing name",
			pricing: TeamPricing{MinTeamSize: 2, MaxTeamSize: 2},
			edit: func(r *TeamRoster) {
				_ = r.UpdateMember(0, FieldName, "A")
				_ = r.UpdateMember(0, FieldEmail, "a@example.com")
				_ = r.UpdateMember(1, FieldEmail, "b@example.com")
			},
			want: MissingFieldError{Index: 1, Field: FieldName},
		},
		{
			name:    "missing email",
			pricing: TeamPricing{MinTeamSize: 1, MaxTeamSize: 2},
			edit: func(r *TeamRoster) {
				_ = r.UpdateMember(0, FieldName, "A")
				_ = r.UpdateMember(0, FieldEmail, "   ")
			},
			want: MissingFieldError{Index: 0, Field: FieldEmail},
		},
		{
			name:    "missing shirt size when shirts offered",
			pricing: TeamPricing{MinTeamSize: 1, MaxTeamSize: 2, ShirtSizes: []string{"S", "M"}},
			edit: func(r *TeamRoster) {
				_ = r.UpdateMember(0, FieldName, "A")
				_ = r.UpdateMember(0, FieldEmail, "a@example.com")
			},
			want: MissingFieldError{Index: 0, Field: FieldShirtSize},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roster, err := NewTeamRoster(teamEvent(tt.pricing))
			require.NoError(t, err)
			tt.edit(roster)

			_, err = roster.Submit(1)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingField)

			var mfe *MissingFieldError
			require.True(t, errors.As(err, &mfe))
			assert.Equal(t, tt.want, *mfe)
		})
	}
}

func TestTeamRoster_SubmitTrimsMemberFields(t *testing.T) {
	roster, err := NewTeamRoster(teamEvent(TeamPricing{MinTeamSize: 1, MaxTeamSize: 2, ShirtSizes: []string{"S", "M"}}))
	require.NoError(t, err)

	require.NoError(t, roster.UpdateMember(0, FieldName, "  Ana Lima "))
	require.NoError(t, roster.UpdateMember(0, FieldEmail, " ana@example.com\t"))
	require.NoError(t, roster.UpdateMember(0, FieldPhone, " 555-0100 "))
	require.NoError(t, roster.UpdateMember(0, FieldEmergencyContact, "\tBen "))
	require.NoError(t, roster.UpdateMember(0, FieldShirtSize, " M"))

	draft, err := roster.Submit(1)
	require.NoError(t, err)

	assert.Equal(t, []Member{{
		Name:             "Ana Lima",
		Email:            "ana@example.com",
		Phone:            "555-0100",
		EmergencyContact: "Ben",
		ShirtSize:        "M",
	}}, draft.Members)
	assert.Equal(t, "  Ana Lima ", roster.Members()[0].Name)
}

func TestNewTeamRoster_RejectsIndividualEvent(t *testing.T) {
	ev := teamEvent(TeamPricing{})
	ev.Pricing = IndividualPricing{PriceCents: 5000}

	_, err := NewTeamRoster(ev)
	assert.ErrorIs(t, err, ErrWrongEventType)
}

func individualEvent() Event {
	return Event{
		ID:       9,
		Title:    "Solo Sprint",
		Status:   EventActive,
		Location: "Downtown",
		Pricing:  IndividualPricing{PriceCents: 4500},
	}
}

func TestIndividualForm_Submit(t *testing.T) {
	valid := IndividualForm{
		Name:             "Sam",
		Email:            "sam@example.com",
		Phone:            "555-0199",
		EmergencyContact: "Pat 555-0100",
		AcceptedTerms:    true,
	}

	t.Run("terms rejected even when fields are valid", func(t *testing.T) {
		f := valid
		f.AcceptedTerms = false
		_, err := f.Submit(individualEvent(), 1)
		assert.ErrorIs(t, err, ErrTermsNotAccepted)
	})

	t.Run("terms rejected before missing fields", func(t *testing.T) {
		_, err := IndividualForm{}.Submit(individualEvent(), 1)
		assert.ErrorIs(t, err, ErrTermsNotAccepted)
		assert.NotErrorIs(t, err, ErrMissingField)
	})

	t.Run("missing emergency contact", func(t *testing.T) {
		f := valid
		f.EmergencyContact = ""
		_, err := f.Submit(individualEvent(), 1)
		var mfe *MissingFieldError
		require.True(t, errors.As(err, &mfe))
		assert.Equal(t, FieldEmergencyContact, mfe.Field)
		assert.Equal(t, "emergencyContact is required", err.Error())
	})

	t.Run("success", func(t *testing.T) {
		draft, err := valid.Submit(individualEvent(), 4)
		require.NoError(t, err)
		assert.Equal(t, int64(4500), draft.TotalCents)
		assert.Equal(t, uint(4), draft.UserID)
		assert.Equal(t, EventTypeIndividual, draft.Event.Type)
		require.Len(t, draft.Members, 1)
		assert.Equal(t, "Sam", draft.Members[0].Name)
	})
}

func TestEventPatch_Apply(t *testing.T) {
	ev := teamEvent(TeamPricing{BaseCents: 100, MinTeamSize: 2, MaxTeamSize: 4})
	title := "Autumn Rally"

	patched, err := EventPatch{Title: &title}.Apply(ev)
	require.NoError(t, err)
	assert.Equal(t, "Autumn Rally", patched.Title)
	assert.Equal(t, ev.Location, patched.Location)
	assert.Equal(t, ev.Pricing, patched.Pricing)

	_, err = EventPatch{Pricing: TeamPricing{MinTeamSize: 5, MaxTeamSize: 3}}.Apply(ev)
	assert.ErrorIs(t, err, ErrInvalidTeamSize)
}

func TestListOptions(t *testing.T) {
	o := ListOptions{Page: 3}.Normalize()
	assert.Equal(t, DefaultPageSize, o.PageSize)
	assert.Equal(t, 40, o.Offset())

	o = ListOptions{Page: 1, PageSize: 500}.Normalize()
	assert.Equal(t, MaxPageSize, o.PageSize)
	assert.Equal(t, 0, o.Offset())
}
