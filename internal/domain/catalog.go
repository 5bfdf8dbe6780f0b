package domain

import "time"

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

type GalleryItem struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	MediaType   MediaType `json:"type"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
}

type GalleryPatch struct {
	Title       *string
	Description *string
	MediaType   *MediaType
	URL         *string
}

type MerchandiseItem struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price"`
	Image       string    `json:"image"`
	Sizes       []string  `json:"sizes,omitempty"`
	InStock     bool      `json:"inStock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type MerchandisePatch struct {
	Title       *string
	Description *string
	PriceCents  *int64
	Image       *string
	Sizes       []string
	InStock     *bool
}
