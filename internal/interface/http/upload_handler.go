package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pvforge/helios/internal/domain/ingest"
	apperrors "github.com/pvforge/helios/pkg/errors"
)

// UploadHandler receives telemetry files and panel photos.
type UploadHandler struct {
	ingestSvc *ingest.Service
	logger    *slog.Logger
}

// NewUploadHandler constructs the upload endpoints.
func NewUploadHandler(ingestSvc *ingest.Service, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		ingestSvc: ingestSvc,
		logger:    logger.With("component", "http.upload"),
	}
}

// Weather ingests a weather data file (CSV, XLSX or PDF).
func (h *UploadHandler) Weather(c *gin.Context) {
	h.handleTabular(c, "weather", h.ingestSvc.IngestWeather)
}

// Production ingests an energy production file (CSV, XLSX or PDF).
func (h *UploadHandler) Production(c *gin.Context) {
	h.handleTabular(c, "production", h.ingestSvc.IngestProduction)
}

func (h *UploadHandler) handleTabular(c *gin.Context, kind string, ingestFn func(context.Context, ingest.Upload) (int, error)) {
	upload, httpErr := formUpload(c, "file")
	if httpErr != nil {
		abortWithError(c, httpErr)
		return
	}

	count, err := ingestFn(c.Request.Context(), upload)
	if err != nil {
		abortWithError(c, uploadError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   fmt.Sprintf("Successfully uploaded %d %s records", count, kind),
		"count":     count,
		"file_type": fileType(upload.Filename),
	})
}

// Images stores a batch of panel photos and records their metadata.
func (h *UploadHandler) Images(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "No images provided", errMessage(err), err))
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "No images provided",
			"attach one or more multipart fields named \"images\"", nil))
		return
	}

	uploads := make([]ingest.Upload, 0, len(files))
	for _, fh := range files {
		upload, httpErr := readUpload(fh)
		if httpErr != nil {
			abortWithError(c, httpErr)
			return
		}
		uploads = append(uploads, upload)
	}

	images, err := h.ingestSvc.SaveImages(c.Request.Context(), uploads, c.PostForm("panel_id"), uploaderID(c))
	if err != nil {
		abortWithError(c, uploadError(err))
		return
	}

	views := make([]gin.H, 0, len(images))
	for _, img := range images {
		views = append(views, gin.H{
			"filename":    img.Filename,
			"file_path":   img.FilePath,
			"panel_id":    img.PanelID,
			"uploaded_by": img.UploadedBy,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Successfully uploaded %d images", len(images)),
		"files":   views,
	})
}

func formUpload(c *gin.Context, field string) (ingest.Upload, *HTTPError) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return ingest.Upload{}, NewHTTPError(http.StatusBadRequest, "No file provided",
			fmt.Sprintf("attach a multipart field named %q", field), err)
	}
	return readUpload(fileHeader)
}

func readUpload(fileHeader *multipart.FileHeader) (ingest.Upload, *HTTPError) {
	f, err := fileHeader.Open()
	if err != nil {
		return ingest.Upload{}, NewHTTPError(http.StatusBadRequest, "Error processing file", errMessage(err), err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return ingest.Upload{}, NewHTTPError(http.StatusBadRequest, "Error processing file", errMessage(err), err)
	}
	return ingest.Upload{Filename: fileHeader.Filename, Data: data}, nil
}

func uploadError(err error) *HTTPError {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidInput, apperrors.CodeUnsupportedFormat, apperrors.CodeFileTooLarge,
		apperrors.CodeSchemaError, apperrors.CodeInvalidTimestamp, apperrors.CodeNoTableFound,
		apperrors.CodeEmptyTable, apperrors.CodeInvalidImage:
		return NewHTTPError(http.StatusBadRequest, "File validation error", apperrors.MessageOf(err), err)
	default:
		return NewHTTPError(http.StatusInternalServerError, "Error processing file", apperrors.MessageOf(err), err)
	}
}

func fileType(filename string) string {
	return strings.ToUpper(strings.TrimPrefix(filepath.Ext(filename), "."))
}
