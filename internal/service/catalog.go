package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/repository"
	"github.com/vietanh2810/rally-api/internal/storage"
)

var (
	ErrGalleryItemNotFound     = repository.ErrGalleryItemNotFound
	ErrMerchandiseItemNotFound = repository.ErrMerchandiseItemNotFound
	ErrUploadsDisabled         = storage.ErrNotConfigured
	ErrInvalidMediaType        = errors.New("media type must be image or video")
	ErrNegativeMerchPrice      = errors.New("price must not be negative")
)

type CatalogRepository interface {
	ListGallery(ctx context.Context, opts domain.ListOptions) ([]domain.GalleryItem, error)
	FindGalleryItem(ctx context.Context, id uint) (domain.GalleryItem, error)
	CreateGalleryItem(ctx context.Context, item domain.GalleryItem) (domain.GalleryItem, error)
	UpdateGalleryItem(ctx context.Context, id uint, patch domain.GalleryPatch) (domain.GalleryItem, error)
	DeleteGalleryItem(ctx context.Context, id uint) error

	ListMerchandise(ctx context.Context, opts domain.ListOptions) ([]domain.MerchandiseItem, error)
	FindMerchandiseItem(ctx context.Context, id uint) (domain.MerchandiseItem, error)
	CreateMerchandiseItem(ctx context.Context, item domain.MerchandiseItem) (domain.MerchandiseItem, error)
	UpdateMerchandiseItem(ctx context.Context, id uint, patch domain.MerchandisePatch) (domain.MerchandiseItem, error)
	DeleteMerchandiseItem(ctx context.Context, id uint) error
}

type CatalogService struct {
	repo     CatalogRepository
	uploader storage.Uploader
}

// NewCatalogService accepts a nil uploader; uploads then fail with ErrUploadsDisabled.
func NewCatalogService(repo CatalogRepository, uploader storage.Uploader) *CatalogService {
	return &CatalogService{
		repo:     repo,
		uploader: uploader,
	}
}

func (s *CatalogService) ListGallery(ctx context.Context, opts domain.ListOptions) ([]domain.GalleryItem, error) {
	items, err := s.repo.ListGallery(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("s.repo.ListGallery -> %w", err)
	}
	return items, nil
}

func (s *CatalogService) CreateGalleryItem(ctx context.Context, item domain.GalleryItem) (domain.GalleryItem, error) {
	if item.MediaType == "" {
		item.MediaType = domain.MediaImage
	}
	if !validMediaType(item.MediaType) {
		return domain.GalleryItem{}, ErrInvalidMediaType
	}

	created, err := s.repo.CreateGalleryItem(ctx, item)
	if err != nil {
		return domain.GalleryItem{}, fmt.Errorf("s.repo.CreateGalleryItem -> %w", err)
	}
	return created, nil
}

func (s *CatalogService) UpdateGalleryItem(ctx context.Context, id uint, patch domain.GalleryPatch) (domain.GalleryItem, error) {
	if patch.MediaType != nil && !validMediaType(*patch.MediaType) {
		return domain.GalleryItem{}, ErrInvalidMediaType
	}

	updated, err := s.repo.UpdateGalleryItem(ctx, id, patch)
	if err != nil {
		return domain.GalleryItem{}, fmt.Errorf("s.repo.UpdateGalleryItem -> %w", err)
	}
	return updated, nil
}

func (s *CatalogService) DeleteGalleryItem(ctx context.Context, id uint) error {
	if err := s.repo.DeleteGalleryItem(ctx, id); err != nil {
		return fmt.Errorf("s.repo.DeleteGalleryItem -> %w", err)
	}
	return nil
}

func (s *CatalogService) ListMerchandise(ctx context.Context, opts domain.ListOptions) ([]domain.MerchandiseItem, error) {
	items, err := s.repo.ListMerchandise(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("s.repo.ListMerchandise -> %w", err)
	}
	return items, nil
}

func (s *CatalogService) CreateMerchandiseItem(ctx context.Context, item domain.MerchandiseItem) (domain.MerchandiseItem, error) {
	if item.PriceCents < 0 {
		return domain.MerchandiseItem{}, ErrNegativeMerchPrice
	}

	created, err := s.repo.CreateMerchandiseItem(ctx, item)
	if err != nil {
		return domain.MerchandiseItem{}, fmt.Errorf("s.repo.CreateMerchandiseItem -> %w", err)
	}
	return created, nil
}

func (s *CatalogService) UpdateMerchandiseItem(ctx context.Context, id uint, patch domain.MerchandisePatch) (domain.MerchandiseItem, error) {
	if patch.PriceCents != nil && *patch.PriceCents < 0 {
		return domain.MerchandiseItem{}, ErrNegativeMerchPrice
	}

	updated, err := s.repo.UpdateMerchandiseItem(ctx, id, patch)
	if err != nil {
		return domain.MerchandiseItem{}, fmt.Errorf("s.repo.UpdateMerchandiseItem -> %w", err)
	}
	return updated, nil
}

func (s *CatalogService) DeleteMerchandiseItem(ctx context.Context, id uint) error {
	if err := s.repo.DeleteMerchandiseItem(ctx, id); err != nil {
		return fmt.Errorf("s.repo.DeleteMerchandiseItem -> %w", err)
	}
	return nil
}

// Upload stores a media file and returns its public URL.
func (s *CatalogService) Upload(ctx context.Context, collection, filename, contentType string, r io.Reader) (string, error) {
	if s.uploader == nil {
		return "", ErrUploadsDisabled
	}

	url, err := s.uploader.Upload(ctx, collection, filename, contentType, r)
	if err != nil {
		return "", fmt.Errorf("s.uploader.Upload -> %w", err)
	}
	return url, nil
}

// MediaTypeFor guesses the gallery media type of an uploaded file.
func MediaTypeFor(contentType string) domain.MediaType {
	if strings.HasPrefix(contentType, "video/") {
		return domain.MediaVideo
	}
	return domain.MediaImage
}

func validMediaType(t domain.MediaType) bool {
	return t == domain.MediaImage || t == domain.MediaVideo
}
