package v1

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/flexprice/lockbox/internal/api/dto"
	"github.com/flexprice/lockbox/internal/config"
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/logger"
	"github.com/flexprice/lockbox/internal/s3"
	"github.com/flexprice/lockbox/internal/service"
	"github.com/flexprice/lockbox/internal/types"
	"github.com/gin-gonic/gin"
)

// formFile is the multipart field lockbox files are uploaded under
const formFile = "file"

type LockboxHandler struct {
	service service.LockboxService
	s3      s3.Service
	config  *config.Configuration
	log     *logger.Logger
}

// NewLockboxHandler builds the handler. s3Service may be nil when S3 is disabled.
func NewLockboxHandler(service service.LockboxService, s3Service s3.Service, config *config.Configuration, log *logger.Logger) *LockboxHandler {
	return &LockboxHandler{service: service, s3: s3Service, config: config, log: log}
}

// @Summary Import lockbox files
// @Description Upload one or more lockbox files under the multipart field "file".
// @Description One file returns its import, several return a result per file.
// @Tags Lockbox
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Lockbox file"
// @Success 201 {object} dto.ImportFileResponse
// @Success 200 {object} dto.ImportFilesResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /lockbox/imports [post]
func (h *LockboxHandler) ImportFiles(c *gin.Context) {
	headers, err := h.formFiles(c)
	if err != nil {
		c.Error(err)
		return
	}

	reqs := make([]*dto.ImportFileRequest, 0, len(headers))
	for _, fh := range headers {
		content, err := h.readFormFile(fh)
		if err != nil {
			c.Error(err)
			return
		}
		reqs = append(reqs, &dto.ImportFileRequest{
			ParseFileRequest: dto.ParseFileRequest{FileName: fh.Filename, Content: content},
			Source:           types.LockboxFileSourceUpload,
		})
	}

	if len(reqs) == 1 {
		resp, err := h.service.ImportFile(c.Request.Context(), reqs[0])
		if err != nil {
			h.log.Infow("failed to import lockbox file", "file_name", reqs[0].FileName, "error", err)
			c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, resp)
		return
	}

	c.JSON(http.StatusOK, h.service.ImportFiles(c.Request.Context(), reqs))
}

// @Summary Import a lockbox file from S3
// @Tags Lockbox
// @Accept json
// @Produce json
// @Param request body dto.ImportS3FileRequest true "S3 location"
// @Success 201 {object} dto.ImportFileResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /lockbox/imports/s3 [post]
func (h *LockboxHandler) ImportS3File(c *gin.Context) {
	var req dto.ImportS3FileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}
	if h.s3 == nil {
		c.Error(ierr.NewError("s3 is not enabled").
			WithHint("Importing from S3 is not enabled").
			Mark(ierr.ErrValidation))
		return
	}

	file, err := h.s3.GetLockboxFile(c.Request.Context(), req.URI)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.ImportFile(c.Request.Context(), &dto.ImportFileRequest{
		ParseFileRequest: dto.ParseFileRequest{FileName: file.Name(), Content: file.Data},
		Source:           types.LockboxFileSourceS3,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Parse a lockbox file
// @Description Validate a lockbox file and return what it would import, without storing it
// @Tags Lockbox
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Lockbox file"
// @Success 200 {object} dto.ParseFileResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /lockbox/parse [post]
func (h *LockboxHandler) ParseFile(c *gin.Context) {
	fh, err := c.FormFile(formFile)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHintf("A lockbox file is required in the %q field", formFile).
			Mark(ierr.ErrValidation))
		return
	}
	content, err := h.readFormFile(fh)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.ParseFile(c.Request.Context(), &dto.ParseFileRequest{
		FileName: fh.Filename,
		Content:  content,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List lockbox batches
// @Tags Lockbox
// @Produce json
// @Param filter query types.LockboxBatchFilter false "Filter"
// @Success 200 {object} dto.ListLockboxBatchesResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /lockbox/batches [get]
func (h *LockboxHandler) ListBatches(c *gin.Context) {
	filter := types.NewLockboxBatchFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListBatches(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a lockbox batch
// @Description Get a batch with its items and their invoice details
// @Tags Lockbox
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} dto.LockboxBatchResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /lockbox/batches/{id} [get]
func (h *LockboxHandler) GetBatch(c *gin.Context) {
	resp, err := h.service.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Apply a payment to a lockbox batch
// @Tags Lockbox
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Param request body dto.ApplyPaymentRequest true "Amount to apply"
// @Success 200 {object} dto.LockboxBatchResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /lockbox/batches/{id}/apply [post]
func (h *LockboxHandler) ApplyPayment(c *gin.Context) {
	var req dto.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ApplyPayment(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LockboxHandler) formFiles(c *gin.Context) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid multipart form").
			Mark(ierr.ErrValidation)
	}
	files := form.File[formFile]
	if len(files) == 0 {
		return nil, ierr.NewErrorf("no %q field in the form", formFile).
			WithHintf("At least one lockbox file is required in the %q field", formFile).
			Mark(ierr.ErrValidation)
	}
	return files, nil
}

// readFormFile reads at most one byte past the size limit, so oversized
// files still fail request validation
func (h *LockboxHandler) readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Could not read the uploaded file").
			Mark(ierr.ErrValidation)
	}
	defer f.Close()

	var r io.Reader = f
	if limit := h.config.Lockbox.MaxFileSizeBytes; limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Could not read the uploaded file").
			WithReportableDetails(map[string]any{"file_name": fh.Filename}).
			Mark(ierr.ErrValidation)
	}
	return content, nil
}
