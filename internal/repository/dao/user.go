package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserEmailExists = errors.New("user already exists")
	ErrUserNotFound    = errors.New("user not found")
)

type User struct {
	ID uint `gorm:"primaryKey"`

	Email    string `gorm:"unique;not null"`
	Password string `gorm:"not null"`

	Name  string `gorm:"not null"`
	Phone string

	RegisteredEvents []RegisteredEvent `gorm:"serializer:json;type:jsonb"`
	Orders           []Order           `gorm:"serializer:json;type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
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

type UserDAO struct {
	db *gorm.DB
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{
		db: db,
	}
}

func (d *UserDAO) Insert(ctx context.Context, user User) (User, error) {
	result := d.db.WithContext(ctx).Create(&user)
	if result.Error != nil {
		var err *pgconn.PgError
		if errors.As(result.Error, &err) &&
			err.Code == pgerrcode.UniqueViolation &&
			strings.Contains(err.Message, `unique constraint "uni_users_email"`) {
			return User{}, ErrUserEmailExists
		}

		return User{}, result.Error
	}

	return user, nil
}

func (d *UserDAO) FindByID(ctx context.Context, id uint) (User, error) {
	var user User

	result := d.db.WithContext(ctx).First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}

		return User{}, result.Error
	}

	return user, nil
}

func (d *UserDAO) FindByEmail(ctx context.Context, email string) (User, error) {
	var user User

	result := d.db.WithContext(ctx).First(&user, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}

		return User{}, result.Error
	}

	return user, nil
}

// AppendRegisteredEvent adds to the list under a row lock so concurrent
// appends for the same user do not overwrite each other.
func (d *UserDAO) AppendRegisteredEvent(ctx context.Context, userID uint, entry RegisteredEvent) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		user.RegisteredEvents = append(user.RegisteredEvents, entry)

		return tx.Model(&user).Select("registered_events").Updates(&user).Error
	})
}

func (d *UserDAO) AppendOrder(ctx context.Context, userID uint, order Order) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		user.Orders = append(user.Orders, order)

		return tx.Model(&user).Select("orders").Updates(&user).Error
	})
}

func lockUser(tx *gorm.DB, userID uint) (User, error) {
	var user User

	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, result.Error
	}

	return user, nil
}
