package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	// Decoder registration for the formats panel cameras produce.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/google/uuid"

	"github.com/pvforge/helios/internal/domain/solar"
	apperrors "github.com/pvforge/helios/pkg/errors"
	"github.com/pvforge/helios/pkg/metrics"
)

// SaveImages validates, stores and records a batch of panel photos. Every
// file must decode as an image; the first failure rejects the batch before
// anything is written.
func (s *Service) SaveImages(ctx context.Context, uploads []Upload, panelID string, uploadedBy *int64) ([]solar.PanelImage, error) {
	if len(uploads) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "no image files provided", nil)
	}

	formats := make([]string, len(uploads))
	for i, upload := range uploads {
		if int64(len(upload.Data)) > s.maxBytes {
			metrics.UploadFailures.WithLabelValues("images").Inc()
			return nil, apperrors.Wrap(apperrors.CodeFileTooLarge,
				fmt.Sprintf("image %q exceeds the %dMB limit", upload.Filename, s.maxBytes>>20), nil)
		}
		_, format, err := image.Decode(bytes.NewReader(upload.Data))
		if err != nil {
			metrics.UploadFailures.WithLabelValues("images").Inc()
			return nil, apperrors.Wrap(apperrors.CodeInvalidImage,
				fmt.Sprintf("file %q is not a valid image", upload.Filename), err)
		}
		formats[i] = format
	}

	now := time.Now().UTC()
	images := make([]solar.PanelImage, 0, len(uploads))
	for i, upload := range uploads {
		key := imageKey(upload.Filename, now)
		if _, err := s.store.Put(ctx, key, upload.Data, "image/"+formats[i]); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageError,
				fmt.Sprintf("store image %q", upload.Filename), err)
		}
		images = append(images, solar.PanelImage{
			ID:         uuid.New(),
			Filename:   upload.Filename,
			FilePath:   key,
			PanelID:    panelID,
			UploadedBy: uploadedBy,
			CreatedAt:  now,
		})
	}

	if err := s.images.InsertBatch(ctx, images); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "store image metadata", err)
	}
	metrics.RecordsIngested.WithLabelValues("images").Add(float64(len(images)))
	s.log.Info("panel images stored", "count", len(images), "panel_id", panelID)
	return images, nil
}
