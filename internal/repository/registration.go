package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/repository/dao"
)

var (
	ErrRegistrationNotFound   = dao.ErrRegistrationNotFound
	ErrReconciliationNotFound = dao.ErrReconciliationNotFound
	ErrReconciliationExists   = dao.ErrReconciliationExists
)

type RegistrationDAO interface {
	Insert(ctx context.Context, reg dao.Registration) (dao.Registration, error)
	FindByID(ctx context.Context, id uint) (dao.Registration, error)
	FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (dao.Registration, error)
	List(ctx context.Context, eventID uint) ([]dao.Registration, error)
	UpdateCheckIn(ctx context.Context, reg dao.Registration) (dao.Registration, error)

	InsertReconciliation(ctx context.Context, rec dao.Reconciliation) (dao.Reconciliation, error)
	FindReconciliation(ctx context.Context, id uint) (dao.Reconciliation, error)
	FindReconciliationByPayment(ctx context.Context, providerPaymentID string) (dao.Reconciliation, error)
	ListReconciliations(ctx context.Context, status string) ([]dao.Reconciliation, error)
	ResolveReconciliation(ctx context.Context, recID uint, reg dao.Registration) (dao.Registration, error)
}

type RegistrationRepository struct {
	dao RegistrationDAO
}

func NewRegistrationRepository(dao RegistrationDAO) *RegistrationRepository {
	return &RegistrationRepository{
		dao: dao,
	}
}

func (r *RegistrationRepository) Create(ctx context.Context, reg domain.Registration) (domain.Registration, error) {
	created, err := r.dao.Insert(ctx, registrationDomainToDao(reg))
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}
	return registrationDaoToDomain(created), nil
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id uint) (domain.Registration, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}
	return registrationDaoToDomain(found), nil
}

func (r *RegistrationRepository) FindByProviderPayment(ctx context.Context, providerPaymentID string) (domain.Registration, error) {
	found, err := r.dao.FindByProviderPaymentID(ctx, providerPaymentID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.FindByProviderPaymentID -> %w", err)
	}
	return registrationDaoToDomain(found), nil
}

func (r *RegistrationRepository) List(ctx context.Context, eventID uint) ([]domain.Registration, error) {
	rows, err := r.dao.List(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.List -> %w", err)
	}

	regs := make([]domain.Registration, len(rows))
	for i, row := range rows {
		regs[i] = registrationDaoToDomain(row)
	}
	return regs, nil
}

func (r *RegistrationRepository) UpdateCheckIn(ctx context.Context, id uint, patch domain.CheckInPatch) (domain.Registration, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	if patch.CheckedIn != nil {
		found.CheckedIn = *patch.CheckedIn
	}
	for idx, collected := range patch.ShirtCollected {
		if idx < 0 || idx >= len(found.Members) {
			return domain.Registration{}, domain.ErrMemberIndex
		}
		found.Members[idx].ShirtCollected = collected
	}

	updated, err := r.dao.UpdateCheckIn(ctx, found)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.UpdateCheckIn -> %w", err)
	}
	return registrationDaoToDomain(updated), nil
}

func (r *RegistrationRepository) CreateReconciliation(ctx context.Context, rec domain.Reconciliation) (domain.Reconciliation, error) {
	draft, err := json.Marshal(rec.Draft)
	if err != nil {
		return domain.Reconciliation{}, fmt.Errorf("json.Marshal -> %w", err)
	}

	created, err := r.dao.InsertReconciliation(ctx, dao.Reconciliation{
		Reference:         rec.Reference,
		ProviderPaymentID: rec.Payment.ProviderPaymentID,
		TransactionID:     rec.Payment.TransactionID,
		CardBrand:         rec.Payment.CardBrand,
		CardLast4:         rec.Payment.CardLast4,
		EventID:           rec.Draft.EventID,
		UserID:            rec.Draft.UserID,
		Draft:             draft,
		TotalCost:         rec.Draft.TotalCents,
		Reason:            rec.Reason,
		Status:            string(domain.ReconciliationOpen),
	})
	if err != nil {
		return domain.Reconciliation{}, fmt.Errorf("r.dao.InsertReconciliation -> %w", err)
	}

	return reconciliationDaoToDomain(created)
}

func (r *RegistrationRepository) FindReconciliation(ctx context.Context, id uint) (domain.Reconciliation, error) {
	found, err := r.dao.FindReconciliation(ctx, id)
	if err != nil {
		return domain.Reconciliation{}, fmt.Errorf("r.dao.FindReconciliation -> %w", err)
	}
	return reconciliationDaoToDomain(found)
}

func (r *RegistrationRepository) FindReconciliationByPayment(ctx context.Context, providerPaymentID string) (domain.Reconciliation, error) {
	found, err := r.dao.FindReconciliationByPayment(ctx, providerPaymentID)
	if err != nil {
		return domain.Reconciliation{}, fmt.Errorf("r.dao.FindReconciliationByPayment -> %w", err)
	}
	return reconciliationDaoToDomain(found)
}

func (r *RegistrationRepository) ListReconciliations(ctx context.Context, status domain.ReconciliationStatus) ([]domain.Reconciliation, error) {
	rows, err := r.dao.ListReconciliations(ctx, string(status))
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListReconciliations -> %w", err)
	}

	recs := make([]domain.Reconciliation, 0, len(rows))
	for _, row := range rows {
		rec, err := reconciliationDaoToDomain(row)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (r *RegistrationRepository) ResolveReconciliation(ctx context.Context, recID uint, reg domain.Registration) (domain.Registration, error) {
	created, err := r.dao.ResolveReconciliation(ctx, recID, registrationDomainToDao(reg))
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.ResolveReconciliation -> %w", err)
	}
	return registrationDaoToDomain(created), nil
}

func registrationDomainToDao(reg domain.Registration) dao.Registration {
	members := make([]dao.Member, len(reg.Members))
	for i, m := range reg.Members {
		members[i] = dao.Member(m)
	}

	row := dao.Registration{
		ID:            reg.ID,
		EventID:       reg.EventID,
		UserID:        reg.UserID,
		EventTitle:    reg.Event.Title,
		EventDate:     reg.Event.Date,
		EventLocation: reg.Event.Location,
		EventType:     string(reg.Event.Type),
		Members:       members,
		TotalCost:     reg.TotalCents,
		PaymentStatus: string(reg.PaymentStatus),
		Status:        string(reg.Status),
		RegisteredAt:  reg.RegisteredAt,
		CheckedIn:     reg.CheckedIn,
	}
	if reg.PaymentDetails != nil {
		row.TransactionID = reg.PaymentDetails.TransactionID
		row.CardBrand = reg.PaymentDetails.CardBrand
		row.CardLast4 = reg.PaymentDetails.CardLast4
		row.ProviderPaymentID = reg.PaymentDetails.ProviderPaymentID
	}

	return row
}

func registrationDaoToDomain(row dao.Registration) domain.Registration {
	members := make([]domain.Member, len(row.Members))
	for i, m := range row.Members {
		members[i] = domain.Member(m)
	}

	reg := domain.Registration{
		ID:      row.ID,
		EventID: row.EventID,
		UserID:  row.UserID,
		Event: domain.EventSnapshot{
			Title:    row.EventTitle,
			Date:     row.EventDate,
			Location: row.EventLocation,
			Type:     domain.EventType(row.EventType),
		},
		Members:       members,
		TotalCents:    row.TotalCost,
		PaymentStatus: domain.PaymentStatus(row.PaymentStatus),
		Status:        domain.RegistrationStatus(row.Status),
		RegisteredAt:  row.RegisteredAt,
		CheckedIn:     row.CheckedIn,
	}
	if row.ProviderPaymentID != "" || row.TransactionID != "" {
		reg.PaymentDetails = &domain.PaymentDetails{
			TransactionID:     row.TransactionID,
			CardBrand:         row.CardBrand,
			CardLast4:         row.CardLast4,
			ProviderPaymentID: row.ProviderPaymentID,
		}
	}

	return reg
}

func reconciliationDaoToDomain(row dao.Reconciliation) (domain.Reconciliation, error) {
	var draft domain.RegistrationDraft
	if err := json.Unmarshal(row.Draft, &draft); err != nil {
		return domain.Reconciliation{}, fmt.Errorf("json.Unmarshal reconciliation %d draft -> %w", row.ID, err)
	}

	return domain.Reconciliation{
		ID:        row.ID,
		Reference: row.Reference,
		Payment: domain.PaymentDetails{
			TransactionID:     row.TransactionID,
			CardBrand:         row.CardBrand,
			CardLast4:         row.CardLast4,
			ProviderPaymentID: row.ProviderPaymentID,
		},
		Draft:          draft,
		Reason:         row.Reason,
		Status:         domain.ReconciliationStatus(row.Status),
		RegistrationID: row.RegistrationID,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}
