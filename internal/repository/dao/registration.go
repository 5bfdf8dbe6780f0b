package dao

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrRegistrationNotFound   = errors.New("registration not found")
	ErrReconciliationNotFound = errors.New("reconciliation not found")
	ErrReconciliationExists   = errors.New("reconciliation already recorded for this payment")
)

type Member struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	EmergencyContact string `json:"emergencyContact,omitempty"`
	ShirtSize        string `json:"shirtSize,omitempty"`
	ShirtCollected   bool   `json:"shirtCollected"`
}

type Registration struct {
	ID      uint `gorm:"primaryKey"`
	EventID uint `gorm:"not null;index"`
	UserID  uint `gorm:"not null;index"`

	EventTitle    string    `gorm:"not null"`
	EventDate     time.Time `gorm:"not null"`
	EventLocation string    `gorm:"not null"`
	EventType     string    `gorm:"not null"`

	Members       []Member  `gorm:"serializer:json;type:jsonb"`
	TotalCost     int64     `gorm:"not null"`
	PaymentStatus string    `gorm:"not null"`
	Status        string    `gorm:"not null"`
	RegisteredAt  time.Time `gorm:"not null"`
	CheckedIn     bool      `gorm:"not null"`

	TransactionID     string
	CardBrand         string
	CardLast4         string
	ProviderPaymentID string `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Reconciliation struct {
	ID                uint   `gorm:"primaryKey"`
	Reference         string `gorm:"not null;uniqueIndex"`
	ProviderPaymentID string `gorm:"not null;uniqueIndex"`
	TransactionID     string
	CardBrand         string
	CardLast4         string
	EventID           uint   `gorm:"not null"`
	UserID            uint   `gorm:"not null"`
	Draft             []byte `gorm:"type:jsonb;not null"`
	TotalCost         int64  `gorm:"not null"`
	Reason            string
	Status            string `gorm:"not null;index"`
	RegistrationID    *uint
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type RegistrationDAO struct {
	db *gorm.DB
}

func NewRegistrationDAO(db *gorm.DB) *RegistrationDAO {
	return &RegistrationDAO{
		db: db,
	}
}

func (d *RegistrationDAO) Insert(ctx context.Context, reg Registration) (Registration, error) {
	if err := d.db.WithContext(ctx).Create(&reg).Error; err != nil {
		return Registration{}, err
	}
	return reg, nil
}

func (d *RegistrationDAO) FindByID(ctx context.Context, id uint) (Registration, error) {
	var reg Registration
	result := d.db.WithContext(ctx).First(&reg, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Registration{}, ErrRegistrationNotFound
		}
		return Registration{}, result.Error
	}
	return reg, nil
}

func (d *RegistrationDAO) FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (Registration, error) {
	var reg Registration
	result := d.db.WithContext(ctx).First(&reg, "provider_payment_id = ?", providerPaymentID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Registration{}, ErrRegistrationNotFound
		}
		return Registration{}, result.Error
	}
	return reg, nil
}

// List returns registrations oldest first; eventID 0 lists every event.
func (d *RegistrationDAO) List(ctx context.Context, eventID uint) ([]Registration, error) {
	var regs []Registration

	q := d.db.WithContext(ctx).Order("registered_at ASC")
	if eventID != 0 {
		q = q.Where("event_id = ?", eventID)
	}
	if err := q.Find(&regs).Error; err != nil {
		return nil, err
	}

	return regs, nil
}

func (d *RegistrationDAO) UpdateCheckIn(ctx context.Context, reg Registration) (Registration, error) {
	result := d.db.WithContext(ctx).Model(&reg).Select("checked_in", "members").Updates(&reg)
	if result.Error != nil {
		return Registration{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Registration{}, ErrRegistrationNotFound
	}
	return d.FindByID(ctx, reg.ID)
}

func (d *RegistrationDAO) InsertReconciliation(ctx context.Context, rec Reconciliation) (Reconciliation, error) {
	if err := d.db.WithContext(ctx).Create(&rec).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return Reconciliation{}, ErrReconciliationExists
		}
		return Reconciliation{}, err
	}
	return rec, nil
}

func (d *RegistrationDAO) FindReconciliation(ctx context.Context, id uint) (Reconciliation, error) {
	var rec Reconciliation
	result := d.db.WithContext(ctx).First(&rec, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Reconciliation{}, ErrReconciliationNotFound
		}
		return Reconciliation{}, result.Error
	}
	return rec, nil
}

func (d *RegistrationDAO) FindReconciliationByPayment(ctx context.Context, providerPaymentID string) (Reconciliation, error) {
	var rec Reconciliation
	result := d.db.WithContext(ctx).First(&rec, "provider_payment_id = ?", providerPaymentID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Reconciliation{}, ErrReconciliationNotFound
		}
		return Reconciliation{}, result.Error
	}
	return rec, nil
}

func (d *RegistrationDAO) ListReconciliations(ctx context.Context, status string) ([]Reconciliation, error) {
	var recs []Reconciliation

	q := d.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}

	return recs, nil
}

// ResolveReconciliation writes the replayed registration and closes the record
// in one transaction.
func (d *RegistrationDAO) ResolveReconciliation(ctx context.Context, recID uint, reg Registration) (Registration, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&reg).Error; err != nil {
			return err
		}

		result := tx.Model(&Reconciliation{ID: recID}).
			Where("status = ?", "open").
			Updates(map[string]any{"status": "resolved", "registration_id": reg.ID})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrReconciliationNotFound
		}
		return nil
	})
	if err != nil {
		return Registration{}, err
	}

	return reg, nil
}
