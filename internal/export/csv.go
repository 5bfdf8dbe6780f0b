package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/vietanh2810/rally-api/internal/domain"
)

const DateTimeLayout = "1/2/2006, 3:04:05 PM"

var Headers = []string{
	"Registration ID",
	"Event",
	"Event Date",
	"Event Location",
	"Event Type",
	"Member #",
	"Name",
	"Email",
	"Phone",
	"Emergency Contact",
	"Shirt Size",
	"Shirt Collected",
	"Total Cost",
	"Payment Status",
	"Registration Status",
	"Registered At",
	"Transaction ID",
	"Checked In",
}

// WriteRegistrations writes one row per member. Registration-level columns are
// repeated on each of a registration's rows. Times are rendered in loc.
func WriteRegistrations(w io.Writer, regs []domain.Registration, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return fmt.Errorf("cw.Write headers -> %w", err)
	}

	for _, reg := range regs {
		members := reg.Members
		if len(members) == 0 {
			members = []domain.Member{{}}
		}
		for i, m := range members {
			if err := cw.Write(row(reg, i, m, loc)); err != nil {
				return fmt.Errorf("cw.Write registration %d -> %w", reg.ID, err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func row(reg domain.Registration, index int, m domain.Member, loc *time.Location) []string {
	var transactionID string
	if reg.PaymentDetails != nil {
		transactionID = reg.PaymentDetails.TransactionID
	}

	return []string{
		strconv.FormatUint(uint64(reg.ID), 10),
		reg.Event.Title,
		formatTime(reg.Event.Date, loc),
		reg.Event.Location,
		string(reg.Event.Type),
		strconv.Itoa(index + 1),
		m.Name,
		m.Email,
		m.Phone,
		m.EmergencyContact,
		m.ShirtSize,
		yesNo(m.ShirtCollected),
		FormatDollars(reg.TotalCents),
		string(reg.PaymentStatus),
		string(reg.Status),
		formatTime(reg.RegisteredAt, loc),
		transactionID,
		yesNo(reg.CheckedIn),
	}
}

// FormatDollars renders cents as "$<n>", adding cents only when they are not zero.
func FormatDollars(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	if cents%100 == 0 {
		return fmt.Sprintf("%s$%d", sign, cents/100)
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(DateTimeLayout)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
