package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrGalleryItemNotFound     = errors.New("gallery item not found")
	ErrMerchandiseItemNotFound = errors.New("merchandise item not found")
)

type GalleryItem struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description string
	MediaType   string    `gorm:"not null;default:image"`
	URL         string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

type MerchandiseItem struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"not null;index"`
	Description string
	Price       int64 `gorm:"not null"`
	Image       string
	Sizes       []string `gorm:"serializer:json;type:jsonb"`
	InStock     bool     `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CatalogDAO struct {
	db *gorm.DB
}

func NewCatalogDAO(db *gorm.DB) *CatalogDAO {
	return &CatalogDAO{
		db: db,
	}
}

func (d *CatalogDAO) ListGallery(ctx context.Context, page Page) ([]GalleryItem, error) {
	var items []GalleryItem
	if err := d.db.WithContext(ctx).Scopes(paginate(page)).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (d *CatalogDAO) FindGalleryItem(ctx context.Context, id uint) (GalleryItem, error) {
	var item GalleryItem
	result := d.db.WithContext(ctx).First(&item, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return GalleryItem{}, ErrGalleryItemNotFound
		}
		return GalleryItem{}, result.Error
	}
	return item, nil
}

func (d *CatalogDAO) InsertGalleryItem(ctx context.Context, item GalleryItem) (GalleryItem, error) {
	if err := d.db.WithContext(ctx).Create(&item).Error; err != nil {
		return GalleryItem{}, err
	}
	return item, nil
}

// UpdateGalleryItem merges fields into the row; columns absent from fields keep their value.
func (d *CatalogDAO) UpdateGalleryItem(ctx context.Context, id uint, fields map[string]any) (GalleryItem, error) {
	if len(fields) > 0 {
		result := d.db.WithContext(ctx).Model(&GalleryItem{ID: id}).Updates(fields)
		if result.Error != nil {
			return GalleryItem{}, result.Error
		}
		if result.RowsAffected == 0 {
			return GalleryItem{}, ErrGalleryItemNotFound
		}
	}
	return d.FindGalleryItem(ctx, id)
}

func (d *CatalogDAO) DeleteGalleryItem(ctx context.Context, id uint) error {
	result := d.db.WithContext(ctx).Delete(&GalleryItem{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGalleryItemNotFound
	}
	return nil
}

func (d *CatalogDAO) ListMerchandise(ctx context.Context, page Page) ([]MerchandiseItem, error) {
	var items []MerchandiseItem
	if err := d.db.WithContext(ctx).Scopes(paginate(page)).Order("title ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (d *CatalogDAO) FindMerchandiseItem(ctx context.Context, id uint) (MerchandiseItem, error) {
	var item MerchandiseItem
	result := d.db.WithContext(ctx).First(&item, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return MerchandiseItem{}, ErrMerchandiseItemNotFound
		}
		return MerchandiseItem{}, result.Error
	}
	return item, nil
}

func (d *CatalogDAO) InsertMerchandiseItem(ctx context.Context, item MerchandiseItem) (MerchandiseItem, error) {
	if err := d.db.WithContext(ctx).Create(&item).Error; err != nil {
		return MerchandiseItem{}, err
	}
	return item, nil
}

// UpdateMerchandiseItem merges fields into the row. Sizes go through the json
// serializer, so they are passed separately; nil leaves them untouched.
func (d *CatalogDAO) UpdateMerchandiseItem(ctx context.Context, id uint, fields map[string]any, sizes []string) (MerchandiseItem, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			result := tx.Model(&MerchandiseItem{ID: id}).Updates(fields)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrMerchandiseItemNotFound
			}
		}
		if sizes != nil {
			item := MerchandiseItem{ID: id, Sizes: sizes}
			result := tx.Model(&item).Select("sizes").Updates(&item)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrMerchandiseItemNotFound
			}
		}
		return nil
	})
	if err != nil {
		return MerchandiseItem{}, err
	}

	return d.FindMerchandiseItem(ctx, id)
}

func (d *CatalogDAO) DeleteMerchandiseItem(ctx context.Context, id uint) error {
	result := d.db.WithContext(ctx).Delete(&MerchandiseItem{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMerchandiseItemNotFound
	}
	return nil
}
