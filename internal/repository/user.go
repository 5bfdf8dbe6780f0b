package repository

import (
	"context"
	"fmt"

	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/repository/dao"
)

var (
	ErrUserEmailExists = dao.ErrUserEmailExists
	ErrUserNotFound    = dao.ErrUserNotFound
)

type UserDAO interface {
	Insert(ctx context.Context, user dao.User) (dao.User, error)
	FindByID(ctx context.Context, id uint) (dao.User, error)
	FindByEmail(ctx context.Context, email string) (dao.User, error)
	AppendRegisteredEvent(ctx context.Context, userID uint, entry dao.RegisteredEvent) error
	AppendOrder(ctx context.Context, userID uint, order dao.Order) error
}

type UserRepository struct {
	dao UserDAO
}

func NewUserRepository(dao UserDAO) *UserRepository {
	return &UserRepository{
		dao: dao,
	}
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	created, err := r.dao.Insert(ctx, dao.User{
		Email:    user.Email,
		Password: user.Password,
		Name:     user.Name,
		Phone:    user.Phone,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (domain.User, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	found, err := r.dao.FindByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByEmail -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *UserRepository) AppendRegisteredEvent(ctx context.Context, userID uint, entry domain.RegisteredEvent) error {
	err := r.dao.AppendRegisteredEvent(ctx, userID, dao.RegisteredEvent{
		RegistrationID: entry.RegistrationID,
		EventID:        entry.EventID,
		EventTitle:     entry.EventTitle,
		TotalCents:     entry.TotalCents,
		RegisteredAt:   entry.RegisteredAt,
	})
	if err != nil {
		return fmt.Errorf("r.dao.AppendRegisteredEvent -> %w", err)
	}

	return nil
}

func (r *UserRepository) AppendOrder(ctx context.Context, userID uint, order domain.Order) error {
	items := make([]dao.OrderItem, len(order.Items))
	for i, it := range order.Items {
		items[i] = dao.OrderItem{
			MerchandiseID: it.MerchandiseID,
			Title:         it.Title,
			Size:          it.Size,
			Quantity:      it.Quantity,
			UnitCents:     it.UnitCents,
		}
	}

	err := r.dao.AppendOrder(ctx, userID, dao.Order{
		Items:      items,
		TotalCents: order.TotalCents,
		OrderedAt:  order.OrderedAt,
	})
	if err != nil {
		return fmt.Errorf("r.dao.AppendOrder -> %w", err)
	}

	return nil
}

func (r *UserRepository) daoToDomain(u dao.User) domain.User {
	registered := make([]domain.RegisteredEvent, len(u.RegisteredEvents))
	for i, e := range u.RegisteredEvents {
		registered[i] = domain.RegisteredEvent{
			RegistrationID: e.RegistrationID,
			EventID:        e.EventID,
			EventTitle:     e.EventTitle,
			TotalCents:     e.TotalCents,
			RegisteredAt:   e.RegisteredAt,
		}
	}

	orders := make([]domain.Order, len(u.Orders))
	for i, o := range u.Orders {
		items := make([]domain.OrderItem, len(o.Items))
		for j, it := range o.Items {
			items[j] = domain.OrderItem{
				MerchandiseID: it.MerchandiseID,
				Title:         it.Title,
				Size:          it.Size,
				Quantity:      it.Quantity,
				UnitCents:     it.UnitCents,
			}
		}
		orders[i] = domain.Order{Items: items, TotalCents: o.TotalCents, OrderedAt: o.OrderedAt}
	}

	return domain.User{
		ID:               u.ID,
		Email:            u.Email,
		Password:         u.Password,
		Name:             u.Name,
		Phone:            u.Phone,
		RegisteredEvents: registered,
		Orders:           orders,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}
