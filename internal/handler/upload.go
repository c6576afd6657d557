package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"smartsahuji/internal/apperr"
	"smartsahuji/pkg/response"
	"smartsahuji/pkg/scratch"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const uploadField = "file"

type uploader struct {
	dir      *scratch.Dir
	maxBytes int64
}

// receive stores the multipart "file" in a scratch file. When ok is false
// the response has already been written.
func (u *uploader) receive(c *gin.Context, log *zap.Logger) (path string, cleanup func(), ok bool) {
	if u.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, u.maxBytes)
	}

	header, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, response.Error(http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", u.maxBytes)))
			return "", nil, false
		}
		badRequest(c, "No file uploaded")
		return "", nil, false
	}

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx", ".csv":
	default:
		badRequest(c, "Only .xlsx and .csv files are supported")
		return "", nil, false
	}

	path, cleanup, err = u.dir.Path("upload", header.Filename)
	if err != nil {
		respondError(c, log, apperr.Internal("failed to store upload", err))
		return "", nil, false
	}
	if err := c.SaveUploadedFile(header, path); err != nil {
		cleanup()
		respondError(c, log, apperr.Internal("failed to store upload", err))
		return "", nil, false
	}
	return path, cleanup, true
}
