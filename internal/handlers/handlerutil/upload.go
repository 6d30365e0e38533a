package handlerutil

import (
	"fmt"
	"io"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/storage"

	"github.com/gin-gonic/gin"
)

// Upload is one file read from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReadUpload reads a multipart file field, rejecting anything that is not a
// PDF or image or that exceeds limit bytes.
func ReadUpload(c *gin.Context, field string, limit int64) (*Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, apperrors.NewValidationError("Please choose a file to upload.", fmt.Sprintf("%s: %v", field, err))
	}
	if !storage.IsAllowedExtension(fh.Filename) {
		return nil, apperrors.NewValidationError("Please upload a PDF, JPG or PNG file.", "filename="+fh.Filename)
	}
	if limit > 0 && fh.Size > limit {
		return nil, FileTooLarge(fh.Size, limit)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("Please choose a file to upload.", err.Error())
	}
	defer f.Close()

	r := io.Reader(f)
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewValidationError("Please choose a file to upload.", err.Error())
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, FileTooLarge(int64(len(data)), limit)
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("The uploaded file is empty.", "filename="+fh.Filename)
	}

	return &Upload{Filename: fh.Filename, ContentType: storage.ContentType(fh.Filename), Data: data}, nil
}

func FileTooLarge(size, limit int64) error {
	return apperrors.NewValidationError(
		fmt.Sprintf("File is too large. The limit is %d MB.", limit>>20),
		fmt.Sprintf("size=%d max=%d", size, limit),
	)
}
