package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/repository"
)

type memMerch map[uint]domain.MerchandiseItem

func (m memMerch) FindMerchandiseItem(_ context.Context, id uint) (domain.MerchandiseItem, error) {
	item, ok := m[id]
	if !ok {
		return domain.MerchandiseItem{}, repository.ErrMerchandiseItemNotFound
	}
	return item, nil
}

func TestUserService_PlaceOrder(t *testing.T) {
	repo := &memUserRepo{users: []domain.User{{ID: 1, Email: "a@example.com"}}}
	merch := memMerch{
		10: {ID: 10, Title: "Rally Tee", PriceCents: 2000, Sizes: []string{"S", "M"}, InStock: true},
		11: {ID: 11, Title: "Sticker", PriceCents: 300, InStock: true},
		12: {ID: 12, Title: "Cap", PriceCents: 1500, InStock: false},
	}
	svc := NewUserService(repo, merch)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, 1, []OrderLine{
		{MerchandiseID: 10, Size: "M", Quantity: 2},
		{MerchandiseID: 11, Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4900), order.TotalCents)
	assert.Equal(t, "Rally Tee", order.Items[0].Title)

	user, err := svc.GetUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, user.Orders, 1)

	tests := []struct {
		name    string
		lines   []OrderLine
		wantErr error
	}{
		{name: "empty", lines: nil, wantErr: ErrEmptyOrder},
		{name: "zero quantity", lines: []OrderLine{{MerchandiseID: 11}}, wantErr: ErrInvalidQuantity},
		{name: "out of stock", lines: []OrderLine{{MerchandiseID: 12, Quantity: 1}}, wantErr: ErrOutOfStock},
		{name: "bad size", lines: []OrderLine{{MerchandiseID: 10, Size: "XL", Quantity: 1}}, wantErr: ErrInvalidSize},
		{name: "unknown item", lines: []OrderLine{{MerchandiseID: 99, Quantity: 1}}, wantErr: ErrMerchandiseItemNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(ctx, 1, tt.lines)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	user, err = svc.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, user.Orders, 1)
}
