package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"expense-tracker-api/internal/objectstore"
	"expense-tracker-api/internal/transport/http/response"
)

const (
	MaxImageSize   = 5 << 20 // 5 MB
	ImageFormField = "image"

	ContextImageURLKey = "imageUrl"
	ContextImageKeyKey = "imageKey"

	// room for the non-file form fields and multipart boundaries
	maxFormOverhead = 1 << 20
)

// UploadImage stores an optional receipt from the "image" multipart field and
// passes its public URL to the next handler. Requests without a file pass through.
// The whole form is held in memory; it is never spilled to temp files.
func UploadImage(store objectstore.Store, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.ContentType() != gin.MIMEMultipartPOSTForm {
			c.Next()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxImageSize+maxFormOverhead)
		if err := c.Request.ParseMultipartForm(MaxImageSize + maxFormOverhead); err != nil {
			if isBodyTooLarge(err) {
				response.Abort(c, http.StatusBadRequest, "File too large")
				return
			}
			response.Abort(c, http.StatusBadRequest, err.Error())
			return
		}

		form := c.Request.MultipartForm
		for field, headers := range form.File {
			if field != ImageFormField || len(headers) > 1 {
				response.Abort(c, http.StatusBadRequest, "Unexpected field")
				return
			}
		}

		headers := form.File[ImageFormField]
		if len(headers) == 0 {
			c.Next()
			return
		}
		file := headers[0]
		if file.Size > MaxImageSize {
			response.Abort(c, http.StatusBadRequest, "File too large")
			return
		}
		if store == nil {
			response.Abort(c, http.StatusInternalServerError, "image upload is not configured")
			return
		}

		f, err := file.Open()
		if err != nil {
			response.Abort(c, http.StatusBadRequest, "failed to open uploaded file")
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			response.Abort(c, http.StatusBadRequest, "failed to read uploaded file")
			return
		}

		key := objectKey(time.Now(), file.Filename)
		url, err := store.Put(c.Request.Context(), key, file.Header.Get("Content-Type"), data)
		if err != nil {
			log.WithError(err).WithField("object_key", key).Error("upload receipt failed")
			response.Abort(c, http.StatusInternalServerError, err.Error())
			return
		}

		c.Set(ContextImageURLKey, url)
		c.Set(ContextImageKeyKey, key)
		c.Next()
	}
}

func objectKey(now time.Time, filename string) string {
	return fmt.Sprintf("%d_%s", now.UnixMilli(), filepath.Base(filename))
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}
