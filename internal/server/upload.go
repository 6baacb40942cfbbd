package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/billfold/billfold/internal/usercontext"
)

// maxUploadBytes caps uploaded images at 2MB.
const maxUploadBytes = 2 << 20

// UploadLogo stores the caller's company logo and returns a public URL.
// The object key is stable per user so re-uploads overwrite in place; the
// returned URL carries a timestamp query to defeat stale caches.
//
//	@Summary	Upload a company logo
//	@Tags		uploads
//	@Accept		multipart/form-data
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/v1/uploads/logo [post]
func (s *Server) UploadLogo(c *gin.Context) {
	s.uploadImage(c, s.cfg.Storage.LogoBucket, "logo", nil)
}

// UploadAvatar stores the caller's profile picture and records the URL on
// the user row.
func (s *Server) UploadAvatar(c *gin.Context) {
	s.uploadImage(c, s.cfg.Storage.AvatarBucket, "avatar", func(c *gin.Context, url string) error {
		userID, _ := usercontext.UserIDFromContext(c.Request.Context())
		return s.authSvc.SetAvatarURL(c.Request.Context(), userID, url)
	})
}

func (s *Server) uploadImage(c *gin.Context, bucket, basename string, after func(*gin.Context, string) error) {
	if s.storage == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	userID, ok := usercontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "missing_file", "file is required"))
		return
	}
	if header.Size > maxUploadBytes {
		AbortWithError(c, newValidationError("file", "file_too_large", "image must be 2MB or smaller"))
		return
	}

	body, contentType, err := readImage(header)
	if err != nil {
		AbortWithError(c, newValidationError("file", "invalid_image", "file must be an image"))
		return
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	if ext == "" {
		ext = "png"
	}
	key := fmt.Sprintf("%d/%s.%s", userID, basename, ext)

	if err := s.storage.Put(c.Request.Context(), bucket, key, contentType, body); err != nil {
		AbortWithError(c, err)
		return
	}

	url := fmt.Sprintf("%s?t=%d", s.storage.PublicURL(bucket, key), time.Now().Unix())
	if after != nil {
		if err := after(c, url); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"url": url}})
}

func readImage(header *multipart.FileHeader) ([]byte, string, error) {
	file, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(body) > maxUploadBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxUploadBytes)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("unexpected content type %s", contentType)
	}
	return body, contentType, nil
}
