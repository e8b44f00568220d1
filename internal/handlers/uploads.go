package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Tiagocys/gamehub/internal/storage"
	api "github.com/Tiagocys/gamehub/pkg/api/gamehub"
	"github.com/Tiagocys/gamehub/pkg/middleware"
)

var allowedImageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

var allowedImageExts = map[string]bool{
	"png":  true,
	"jpeg": true,
	"jpg":  true,
	"webp": true,
}

// SignListingImageUpload issues a presigned PUT URL for a listing image.
// Keys are namespaced per user so one user can never overwrite another's
// objects.
func SignListingImageUpload(c middleware.Context) {
	if r2Client == nil {
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "Image uploads are not configured"})
		return
	}

	userID := c.GetString("user_id")

	var req api.SignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "content_type and ext are required"})
		return
	}

	ext := strings.ToLower(strings.TrimPrefix(req.Ext, "."))
	if _, ok := allowedImageTypes[req.ContentType]; !ok || !allowedImageExts[ext] {
		c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: "Only png, jpeg and webp images are allowed"})
		return
	}

	key := storage.BuildListingImageKey(userID, uuid.New().String(), ext)
	uploadURL, err := r2Client.GeneratePresignedPUT(key, req.ContentType, 10*time.Minute)
	if err != nil {
		logger.WithError(err).Error("Failed to sign upload")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to sign upload"})
		return
	}

	c.JSON(http.StatusOK, api.SignUploadResponse{
		UploadURL: uploadURL,
		Key:       key,
		PublicURL: r2Client.PublicURL(key),
	})
}
