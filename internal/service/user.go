package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/repository"
)

var (
	ErrUserNotFound = repository.ErrUserNotFound

	ErrEmptyOrder      = errors.New("order has no items")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrOutOfStock      = errors.New("item is out of stock")
	ErrInvalidSize     = errors.New("size is not offered for this item")
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
	AppendOrder(ctx context.Context, userID uint, order domain.Order) error
}

type MerchandiseFinder interface {
	FindMerchandiseItem(ctx context.Context, id uint) (domain.MerchandiseItem, error)
}

type UserService struct {
	repo  UserRepository
	merch MerchandiseFinder
	now   func() time.Time
}

func NewUserService(repo UserRepository, merch MerchandiseFinder) *UserService {
	return &UserService{
		repo:  repo,
		merch: merch,
		now:   time.Now,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return user, nil
}

// OrderLine is one requested merchandise item. Title and price come from the
// catalog, never from the client.
type OrderLine struct {
	MerchandiseID uint
	Size          string
	Quantity      int
}

func (s *UserService) PlaceOrder(ctx context.Context, userID uint, lines []OrderLine) (domain.Order, error) {
	if len(lines) == 0 {
		return domain.Order{}, ErrEmptyOrder
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return domain.Order{}, ErrInvalidQuantity
		}

		merch, err := s.merch.FindMerchandiseItem(ctx, line.MerchandiseID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("s.merch.FindMerchandiseItem -> %w", err)
		}
		if !merch.InStock {
			return domain.Order{}, fmt.Errorf("%w: %s", ErrOutOfStock, merch.Title)
		}
		if len(merch.Sizes) > 0 && !slices.Contains(merch.Sizes, line.Size) {
			return domain.Order{}, fmt.Errorf("%w: %q for %s", ErrInvalidSize, line.Size, merch.Title)
		}

		items = append(items, domain.OrderItem{
			MerchandiseID: merch.ID,
			Title:         merch.Title,
			Size:          line.Size,
			Quantity:      line.Quantity,
			UnitCents:     merch.PriceCents,
		})
	}

	order := domain.NewOrder(items, s.now())
	if err := s.repo.AppendOrder(ctx, userID, order); err != nil {
		return domain.Order{}, fmt.Errorf("s.repo.AppendOrder -> %w", err)
	}

	return order, nil
}
