package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/rally-api/internal/domain"
)

func teamRegistration(id uint, names ...string) domain.Registration {
	members := make([]domain.Member, len(names))
	for i, n := range names {
		members[i] = domain.Member{
			Name:      n,
			Email:     strings.ToLower(n) + "@example.com",
			Phone:     "555-010" + string(rune('0'+i)),
			ShirtSize: "M",
		}
	}

	return domain.Registration{
		ID:      id,
		EventID: 7,
		UserID:  3,
		Event: domain.EventSnapshot{
			Title:    "Autumn Rally",
			Date:     time.Date(2026, 10, 3, 9, 30, 0, 0, time.UTC),
			Location: "Harbor Park",
			Type:     domain.EventTypeTeam,
		},
		Members:       members,
		TotalCents:    7500,
		PaymentStatus: domain.PaymentPaid,
		Status:        domain.RegistrationConfirmed,
		RegisteredAt:  time.Date(2026, 9, 1, 14, 5, 9, 0, time.UTC),
		PaymentDetails: &domain.PaymentDetails{
			TransactionID: "ch_" + strings.Repeat("x", int(id)),
		},
	}
}

func readAll(t *testing.T, b []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteRegistrations_OneRowPerMember(t *testing.T) {
	regs := []domain.Registration{
		teamRegistration(1, "Ana", "Ben"),
		teamRegistration(2, "Cleo", "Dev", "Eli"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRegistrations(&buf, regs, time.UTC))

	records := readAll(t, buf.Bytes())
	require.Len(t, records, 6)
	assert.Equal(t, Headers, records[0])

	rows := records[1:]
	require.Len(t, rows, 5)

	seen := map[string]bool{}
	for _, r := range rows {
		assert.Equal(t, "Autumn Rally", r[1])
		assert.Equal(t, "10/3/2026, 9:30:00 AM", r[2])
		assert.Equal(t, "Harbor Park", r[3])
		assert.Equal(t, "team", r[4])
		assert.Equal(t, "$75", r[12])
		assert.Equal(t, "9/1/2026, 2:05:09 PM", r[15])
		assert.Equal(t, "No", r[17])

		assert.False(t, seen[r[6]], "member %s repeated", r[6])
		seen[r[6]] = true
	}

	assert.Equal(t, []string{"1", "2", "1", "2", "3"}, []string{rows[0][5], rows[1][5], rows[2][5], rows[3][5], rows[4][5]})
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "2", rows[2][0])
}

func TestWriteRegistrations_Escaping(t *testing.T) {
	reg := teamRegistration(1, "Ana")
	reg.Members[0].EmergencyContact = `value, with "quotes"`

	var buf bytes.Buffer
	require.NoError(t, WriteRegistrations(&buf, []domain.Registration{reg}, time.UTC))

	assert.Contains(t, buf.String(), `"value, with ""quotes"""`)

	records := readAll(t, buf.Bytes())
	assert.Equal(t, `value, with "quotes"`, records[1][9])
}

func TestWriteRegistrations_Individual(t *testing.T) {
	reg := teamRegistration(4, "Solo")
	reg.Event.Type = domain.EventTypeIndividual
	reg.CheckedIn = true
	reg.Members[0].ShirtCollected = true

	var buf bytes.Buffer
	require.NoError(t, WriteRegistrations(&buf, []domain.Registration{reg}, time.UTC))

	records := readAll(t, buf.Bytes())
	require.Len(t, records, 2)
	assert.Equal(t, "Yes", records[1][11])
	assert.Equal(t, "Yes", records[1][17])
}

func TestFormatDollars(t *testing.T) {
	assert.Equal(t, "$0", FormatDollars(0))
	assert.Equal(t, "$120", FormatDollars(12000))
	assert.Equal(t, "$12.05", FormatDollars(1205))
	assert.Equal(t, "-$3.50", FormatDollars(-350))
}
