package repository

import (
	"context"
	"fmt"

	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/repository/dao"
)

var (
	ErrGalleryItemNotFound     = dao.ErrGalleryItemNotFound
	ErrMerchandiseItemNotFound = dao.ErrMerchandiseItemNotFound
)

type CatalogDAO interface {
	ListGallery(ctx context.Context, page dao.Page) ([]dao.GalleryItem, error)
	FindGalleryItem(ctx context.Context, id uint) (dao.GalleryItem, error)
	InsertGalleryItem(ctx context.Context, item dao.GalleryItem) (dao.GalleryItem, error)
	UpdateGalleryItem(ctx context.Context, id uint, fields map[string]any) (dao.GalleryItem, error)
	DeleteGalleryItem(ctx context.Context, id uint) error

	ListMerchandise(ctx context.Context, page dao.Page) ([]dao.MerchandiseItem, error)
	FindMerchandiseItem(ctx context.Context, id uint) (dao.MerchandiseItem, error)
	InsertMerchandiseItem(ctx context.Context, item dao.MerchandiseItem) (dao.MerchandiseItem, error)
	UpdateMerchandiseItem(ctx context.Context, id uint, fields map[string]any, sizes []string) (dao.MerchandiseItem, error)
	DeleteMerchandiseItem(ctx context.Context, id uint) error
}

type CatalogRepository struct {
	dao CatalogDAO
}

func NewCatalogRepository(dao CatalogDAO) *CatalogRepository {
	return &CatalogRepository{
		dao: dao,
	}
}

func (r *CatalogRepository) ListGallery(ctx context.Context, opts domain.ListOptions) ([]domain.GalleryItem, error) {
	rows, err := r.dao.ListGallery(ctx, toPage(opts))
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListGallery -> %w", err)
	}

	items := make([]domain.GalleryItem, len(rows))
	for i, row := range rows {
		items[i] = galleryDaoToDomain(row)
	}
	return items, nil
}

func (r *CatalogRepository) FindGalleryItem(ctx context.Context, id uint) (domain.GalleryItem, error) {
	row, err := r.dao.FindGalleryItem(ctx, id)
	if err != nil {
		return domain.GalleryItem{}, fmt.Errorf("r.dao.FindGalleryItem -> %w", err)
	}
	return galleryDaoToDomain(row), nil
}

func (r *CatalogRepository) CreateGalleryItem(ctx context.Context, item domain.GalleryItem) (domain.GalleryItem, error) {
	created, err := r.dao.InsertGalleryItem(ctx, dao.GalleryItem{
		Title:       item.Title,
		Description: item.Description,
		MediaType:   string(item.MediaType),
		URL:         item.URL,
	})
	if err != nil {
		return domain.GalleryItem{}, fmt.Errorf("r.dao.InsertGalleryItem -> %w", err)
	}
	return galleryDaoToDomain(created), nil
}

func (r *CatalogRepository) UpdateGalleryItem(ctx context.Context, id uint, patch domain.GalleryPatch) (domain.GalleryItem, error) {
	fields := map[string]any{}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.MediaType != nil {
		fields["media_type"] = string(*patch.MediaType)
	}
	if patch.URL != nil {
		fields["url"] = *patch.URL
	}

	updated, err := r.dao.UpdateGalleryItem(ctx, id, fields)
	if err != nil {
		return domain.GalleryItem{}, fmt.Errorf("r.dao.UpdateGalleryItem -> %w", err)
	}
	return galleryDaoToDomain(updated), nil
}

func (r *CatalogRepository) DeleteGalleryItem(ctx context.Context, id uint) error {
	if err := r.dao.DeleteGalleryItem(ctx, id); err != nil {
		return fmt.Errorf("r.dao.DeleteGalleryItem -> %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListMerchandise(ctx context.Context, opts domain.ListOptions) ([]domain.MerchandiseItem, error) {
	rows, err := r.dao.ListMerchandise(ctx, toPage(opts))
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListMerchandise -> %w", err)
	}

	items := make([]domain.MerchandiseItem, len(rows))
	for i, row := range rows {
		items[i] = merchDaoToDomain(row)
	}
	return items, nil
}

func (r *CatalogRepository) FindMerchandiseItem(ctx context.Context, id uint) (domain.MerchandiseItem, error) {
	row, err := r.dao.FindMerchandiseItem(ctx, id)
	if err != nil {
		return domain.MerchandiseItem{}, fmt.Errorf("r.dao.FindMerchandiseItem -> %w", err)
	}
	return merchDaoToDomain(row), nil
}

func (r *CatalogRepository) CreateMerchandiseItem(ctx context.Context, item domain.MerchandiseItem) (domain.MerchandiseItem, error) {
	created, err := r.dao.InsertMerchandiseItem(ctx, dao.MerchandiseItem{
		Title:       item.Title,
		Description: item.Description,
		Price:       item.PriceCents,
		Image:       item.Image,
		Sizes:       item.Sizes,
		InStock:     item.InStock,
	})
	if err != nil {
		return domain.MerchandiseItem{}, fmt.Errorf("r.dao.InsertMerchandiseItem -> %w", err)
	}
	return merchDaoToDomain(created), nil
}

func (r *CatalogRepository) UpdateMerchandiseItem(ctx context.Context, id uint, patch domain.MerchandisePatch) (domain.MerchandiseItem, error) {
	fields := map[string]any{}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.PriceCents != nil {
		fields["price"] = *patch.PriceCents
	}
	if patch.Image != nil {
		fields["image"] = *patch.Image
	}
	if patch.InStock != nil {
		fields["in_stock"] = *patch.InStock
	}

	updated, err := r.dao.UpdateMerchandiseItem(ctx, id, fields, patch.Sizes)
	if err != nil {
		return domain.MerchandiseItem{}, fmt.Errorf("r.dao.UpdateMerchandiseItem -> %w", err)
	}
	return merchDaoToDomain(updated), nil
}

func (r *CatalogRepository) DeleteMerchandiseItem(ctx context.Context, id uint) error {
	if err := r.dao.DeleteMerchandiseItem(ctx, id); err != nil {
		return fmt.Errorf("r.dao.DeleteMerchandiseItem -> %w", err)
	}
	return nil
}

func galleryDaoToDomain(g dao.GalleryItem) domain.GalleryItem {
	return domain.GalleryItem{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		MediaType:   domain.MediaType(g.MediaType),
		URL:         g.URL,
		CreatedAt:   g.CreatedAt,
	}
}

func merchDaoToDomain(m dao.MerchandiseItem) domain.MerchandiseItem {
	return domain.MerchandiseItem{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		PriceCents:  m.Price,
		Image:       m.Image,
		Sizes:       m.Sizes,
		InStock:     m.InStock,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
