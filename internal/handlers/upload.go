package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/arnold/pursue-api/internal/config"
)

// maxPhotoBytes caps progress photos at 5MB; clients downscale before upload.
const maxPhotoBytes = 5 * 1024 * 1024

// photoExtAllowed filters uploads to the image formats the mobile clients
// produce. Extension is matched case-insensitively.
func photoExtAllowed(ext string) bool {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}

// UploadPhoto stores a progress photo on local disk and returns its URL.
// The client calls this after logging and then attaches the returned URL to
// the entry via the photo endpoint; a failed upload never touches the entry.
func UploadPhoto(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No image file provided",
		})
	}

	ext := filepath.Ext(file.Filename)
	if !photoExtAllowed(ext) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only jpg, png, and webp images are allowed",
		})
	}
	if file.Size > maxPhotoBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Image must be under 5MB",
		})
	}

	uploadsDir := config.Load().UploadsDir
	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create uploads directory",
		})
	}

	// Random filename; the original name is user-controlled and untrusted.
	filename := uuid.New().String() + strings.ToLower(ext)
	if err := c.SaveFile(file, filepath.Join(uploadsDir, filename)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save image",
		})
	}

	return c.JSON(fiber.Map{
		"url": fmt.Sprintf("/uploads/%s", filename),
	})
}
