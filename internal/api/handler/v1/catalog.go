package v1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/rally-api/internal/api/handler/v1/request"
	"github.com/vietanh2810/rally-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/service"
	"github.com/vietanh2810/rally-api/internal/storage"
)

const maxUploadBytes = 100 << 20

var (
	errMissingFile  = errors.New("multipart field \"file\" is required")
	errFileTooLarge = fmt.Errorf("file exceeds %d MB", maxUploadBytes>>20)
)

type CatalogService interface {
	ListGallery(ctx context.Context, opts domain.ListOptions) ([]domain.GalleryItem, error)
	CreateGalleryItem(ctx context.Context, item domain.GalleryItem) (domain.GalleryItem, error)
	UpdateGalleryItem(ctx context.Context, id uint, patch domain.GalleryPatch) (domain.GalleryItem, error)
	DeleteGalleryItem(ctx context.Context, id uint) error

	ListMerchandise(ctx context.Context, opts domain.ListOptions) ([]domain.MerchandiseItem, error)
	CreateMerchandiseItem(ctx context.Context, item domain.MerchandiseItem) (domain.MerchandiseItem, error)
	UpdateMerchandiseItem(ctx context.Context, id uint, patch domain.MerchandisePatch) (domain.MerchandiseItem, error)
	DeleteMerchandiseItem(ctx context.Context, id uint) error

	Upload(ctx context.Context, collection, filename, contentType string, r io.Reader) (string, error)
}

type CatalogHandler struct {
	svc CatalogService
}

func NewCatalogHandler(svc CatalogService) *CatalogHandler {
	return &CatalogHandler{
		svc: svc,
	}
}

// HandleListGallery godoc
// @Summary      List gallery items
// @Description  Newest first.
// @Tags         gallery
// @Produce      json
// @Param        page      query     int  false  "page, starting at 1"
// @Param        pageSize  query     int  false  "page size"
// @Success      200       {array}   domain.GalleryItem
// @Failure      400       {object}  response.Err
// @Failure      500       {object}  response.Err
// @Router       /gallery [get]
func (h *CatalogHandler) HandleListGallery(ctx *gin.Context) {
	opts, respErr := parseListOptions(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	items, err := h.svc.ListGallery(ctx.Request.Context(), opts)
	if err != nil {
		err = fmt.Errorf("HandleListGallery -> h.svc.ListGallery -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// HandleCreateGalleryItem godoc
// @Summary      Add a gallery item
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        input  body      request.GalleryItemRequest  true  "Gallery item"
// @Success      201    {object}  domain.GalleryItem
// @Failure      400    {object}  response.Err
// @Failure      422    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /admin/gallery [post]
// @Security BearerAuth
func (h *CatalogHandler) HandleCreateGalleryItem(ctx *gin.Context) {
	var req request.GalleryItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	created, err := h.svc.CreateGalleryItem(ctx.Request.Context(), req.ToDomain())
	if err != nil {
		if errors.Is(err, service.ErrInvalidMediaType) {
			response.RenderErr(ctx, response.ErrValidation(err))
			return
		}

		err = fmt.Errorf("HandleCreateGalleryItem -> h.svc.CreateGalleryItem -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// HandleUpdateGalleryItem godoc
// @Summary      Update a gallery item
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        itemID  path      int                          true  "Gallery item ID"
// @Param        input   body      request.GalleryPatchRequest  true  "Changed fields"
// @Success      200     {object}  domain.GalleryItem
// @Failure      400     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      422     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /admin/gallery/{itemID} [patch]
// @Security BearerAuth
func (h *CatalogHandler) HandleUpdateGalleryItem(ctx *gin.Context) {
	itemID, respErr := parseID(ctx, "itemID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.GalleryPatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	updated, err := h.svc.UpdateGalleryItem(ctx.Request.Context(), itemID, req.ToPatch())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGalleryItemNotFound):
			response.RenderErr(ctx, response.ErrNotFound("gallery item", "ID", itemID))
		case errors.Is(err, service.ErrInvalidMediaType):
			response.RenderErr(ctx, response.ErrValidation(err))
		default:
			err = fmt.Errorf("HandleUpdateGalleryItem -> h.svc.UpdateGalleryItem -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

// HandleDeleteGalleryItem godoc
// @Summary      Delete a gallery item
// @Tags         admin
// @Param        itemID  path  int  true  "Gallery item ID"
// @Success      204
// @Failure      400     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /admin/gallery/{itemID} [delete]
// @Security BearerAuth
func (h *CatalogHandler) HandleDeleteGalleryItem(ctx *gin.Context) {
	itemID, respErr := parseID(ctx, "itemID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if err := h.svc.DeleteGalleryItem(ctx.Request.Context(), itemID); err != nil {
		if errors.Is(err, service.ErrGalleryItemNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("gallery item", "ID", itemID))
			return
		}

		err = fmt.Errorf("HandleDeleteGalleryItem -> h.svc.DeleteGalleryItem -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleListMerchandise godoc
// @Summary      List merchandise
// @Description  Ordered by title.
// @Tags         merchandise
// @Produce      json
// @Param        page      query     int  false  "page, starting at 1"
// @Param        pageSize  query     int  false  "page size"
// @Success      200       {array}   domain.MerchandiseItem
// @Failure      400       {object}  response.Err
// @Failure      500       {object}  response.Err
// @Router       /merchandise [get]
func (h *CatalogHandler) HandleListMerchandise(ctx *gin.Context) {
	opts, respErr := parseListOptions(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	items, err := h.svc.ListMerchandise(ctx.Request.Context(), opts)
	if err != nil {
		err = fmt.Errorf("HandleListMerchandise -> h.svc.ListMerchandise -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// HandleCreateMerchandiseItem godoc
// @Summary      Add a merchandise item
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        input  body      request.MerchandiseRequest  true  "Merchandise item"
// @Success      201    {object}  domain.MerchandiseItem
// @Failure      400    {object}  response.Err
// @Failure      422    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /admin/merchandise [post]
// @Security BearerAuth
func (h *CatalogHandler) HandleCreateMerchandiseItem(ctx *gin.Context) {
	var req request.MerchandiseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	created, err := h.svc.CreateMerchandiseItem(ctx.Request.Context(), req.ToDomain())
	if err != nil {
		if errors.Is(err, service.ErrNegativeMerchPrice) {
			response.RenderErr(ctx, response.ErrValidation(err))
			return
		}

		err = fmt.Errorf("HandleCreateMerchandiseItem -> h.svc.CreateMerchandiseItem -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// HandleUpdateMerchandiseItem godoc
// @Summary      Update a merchandise item
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        itemID  path      int                              true  "Merchandise item ID"
// @Param        input   body      request.MerchandisePatchRequest  true  "Changed fields"
// @Success      200     {object}  domain.MerchandiseItem
// @Failure      400     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      422     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /admin/merchandise/{itemID} [patch]
// @Security BearerAuth
func (h *CatalogHandler) HandleUpdateMerchandiseItem(ctx *gin.Context) {
	itemID, respErr := parseID(ctx, "itemID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.MerchandisePatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	updated, err := h.svc.UpdateMerchandiseItem(ctx.Request.Context(), itemID, req.ToPatch())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMerchandiseItemNotFound):
			response.RenderErr(ctx, response.ErrNotFound("merchandise item", "ID", itemID))
		case errors.Is(err, service.ErrNegativeMerchPrice):
			response.RenderErr(ctx, response.ErrValidation(err))
		default:
			err = fmt.Errorf("HandleUpdateMerchandiseItem -> h.svc.UpdateMerchandiseItem -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

// HandleDeleteMerchandiseItem godoc
// @Summary      Delete a merchandise item
// @Tags         admin
// @Param        itemID  path  int  true  "Merchandise item ID"
// @Success      204
// @Failure      400     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /admin/merchandise/{itemID} [delete]
// @Security BearerAuth
func (h *CatalogHandler) HandleDeleteMerchandiseItem(ctx *gin.Context) {
	itemID, respErr := parseID(ctx, "itemID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if err := h.svc.DeleteMerchandiseItem(ctx.Request.Context(), itemID); err != nil {
		if errors.Is(err, service.ErrMerchandiseItemNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("merchandise item", "ID", itemID))
			return
		}

		err = fmt.Errorf("HandleDeleteMerchandiseItem -> h.svc.DeleteMerchandiseItem -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleUpload godoc
// @Summary      Upload a media file
// @Description  Stores the file under the collection and returns its public URL.
// @Tags         admin
// @Accept       multipart/form-data
// @Produce      json
// @Param        collection  path      string  true  "events, gallery or merchandise"
// @Param        file        formData  file    true  "Media file"
// @Success      201         {object}  response.UploadResponse
// @Failure      400         {object}  response.Err
// @Failure      404         {object}  response.Err
// @Failure      413         {object}  response.Err
// @Failure      500         {object}  response.Err
// @Failure      503         {object}  response.Err
// @Router       /admin/uploads/{collection} [post]
// @Security BearerAuth
func (h *CatalogHandler) HandleUpload(ctx *gin.Context) {
	collection := ctx.Param("collection")
	if !storage.Collections[collection] {
		response.RenderErr(ctx, response.ErrNotFound("collection", "name", collection))
		return
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(errMissingFile))
		return
	}
	if fh.Size > maxUploadBytes {
		response.RenderErr(ctx, &response.Err{
			Err:            errFileTooLarge,
			HTTPStatusCode: http.StatusRequestEntityTooLarge,
			StatusText:     "File too large.",
			ErrorText:      errFileTooLarge.Error(),
		})
		return
	}

	file, err := fh.Open()
	if err != nil {
		err = fmt.Errorf("HandleUpload -> fh.Open -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}
	defer file.Close()

	contentType := fh.Header.Get("Content-Type")
	url, err := h.svc.Upload(ctx.Request.Context(), collection, fh.Filename, contentType, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUploadsDisabled):
			response.RenderErr(ctx, response.ErrUploadsUnavailable(err))
		case errors.Is(err, storage.ErrEmptyFilename), errors.Is(err, storage.ErrInvalidCollection):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		default:
			err = fmt.Errorf("HandleUpload -> h.svc.Upload -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusCreated, response.UploadResponse{URL: url})
}
