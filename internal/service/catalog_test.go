package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/rally-api/internal/domain"
)

type fakeCatalog struct {
	CatalogRepository

	created domain.GalleryItem
	patched domain.MerchandisePatch
}

func (f *fakeCatalog) CreateGalleryItem(_ context.Context, item domain.GalleryItem) (domain.GalleryItem, error) {
	item.ID = 1
	f.created = item
	return item, nil
}

func (f *fakeCatalog) UpdateMerchandiseItem(_ context.Context, id uint, patch domain.MerchandisePatch) (domain.MerchandiseItem, error) {
	if id != 1 {
		return domain.MerchandiseItem{}, ErrMerchandiseItemNotFound
	}
	f.patched = patch
	return domain.MerchandiseItem{ID: id}, nil
}

type fakeUploader struct {
	err  error
	body string
}

func (u *fakeUploader) Upload(_ context.Context, collection, filename, _ string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	u.body = string(b)
	return "https://cdn.example.com/" + collection + "/" + filename, nil
}

func TestCatalogService_CreateGalleryItemDefaultsToImage(t *testing.T) {
	repo := &fakeCatalog{}
	s := NewCatalogService(repo, nil)

	created, err := s.CreateGalleryItem(context.Background(), domain.GalleryItem{Title: "Podium"})
	require.NoError(t, err)
	assert.Equal(t, domain.MediaImage, created.MediaType)

	_, err = s.CreateGalleryItem(context.Background(), domain.GalleryItem{Title: "Engine", MediaType: "audio"})
	assert.ErrorIs(t, err, ErrInvalidMediaType)
}

func TestCatalogService_UpdateMerchandiseItem(t *testing.T) {
	repo := &fakeCatalog{}
	s := NewCatalogService(repo, nil)

	negative := int64(-1)
	_, err := s.UpdateMerchandiseItem(context.Background(), 1, domain.MerchandisePatch{PriceCents: &negative})
	assert.ErrorIs(t, err, ErrNegativeMerchPrice)

	title := "Rally cap"
	_, err = s.UpdateMerchandiseItem(context.Background(), 1, domain.MerchandisePatch{Title: &title})
	require.NoError(t, err)
	require.NotNil(t, repo.patched.Title)
	assert.Nil(t, repo.patched.PriceCents)

	_, err = s.UpdateMerchandiseItem(context.Background(), 2, domain.MerchandisePatch{Title: &title})
	assert.ErrorIs(t, err, ErrMerchandiseItemNotFound)
}

func TestCatalogService_Upload(t *testing.T) {
	_, err := NewCatalogService(&fakeCatalog{}, nil).Upload(context.Background(), "gallery", "a.png", "image/png", nil)
	assert.ErrorIs(t, err, ErrUploadsDisabled)

	up := &fakeUploader{}
	url, err := NewCatalogService(&fakeCatalog{}, up).Upload(context.Background(), "gallery", "a.png", "image/png", strings.NewReader("bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/gallery/a.png", url)
	assert.Equal(t, "bytes", up.body)

	cause := errors.New("bucket unreachable")
	_, err = NewCatalogService(&fakeCatalog{}, &fakeUploader{err: cause}).Upload(context.Background(), "gallery", "a.png", "image/png", strings.NewReader("bytes"))
	assert.ErrorIs(t, err, cause)
}

func TestMediaTypeFor(t *testing.T) {
	assert.Equal(t, domain.MediaVideo, MediaTypeFor("video/mp4"))
	assert.Equal(t, domain.MediaImage, MediaTypeFor("image/png"))
	assert.Equal(t, domain.MediaImage, MediaTypeFor(""))
}
