package domain

import "time"

type User struct {
	ID               uint              `json:"id"`
	Email            string            `json:"email"`
	Password         string            `json:"-"`
	Name             string            `json:"name"`
	Phone            string            `json:"phone,omitempty"`
	RegisteredEvents []RegisteredEvent `json:"registeredEvents"`
	Orders           []Order           `json:"orders"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

type RegisteredEvent struct {
	RegistrationID uint      `json:"registrationId"`
	EventID        uint      `json:"eventId"`
	EventTitle     string    `json:"eventTitle"`
	TotalCents     int64     `json:"totalCost"`
	RegisteredAt   time.Time `json:"registeredAt"`
}

type OrderItem struct {
	MerchandiseID uint   `json:"merchandiseId"`
	Title         string `json:"title"`
	Size          string `json:"size,omitempty"`
	Quantity      int    `json:"quantity"`
	UnitCents     int64  `json:"unitPrice"`
}

type Order struct {
	Items      []OrderItem `json:"items"`
	TotalCents int64       `json:"total"`
	OrderedAt  time.Time   `json:"orderedAt"`
}

func NewOrder(items []OrderItem, now time.Time) Order {
	var total int64
	for _, it := range items {
		total += it.UnitCents * int64(it.Quantity)
	}
	return Order{Items: items, TotalCents: total, OrderedAt: now}
}
