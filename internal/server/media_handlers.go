package server

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"atelier/internal/middleware"
	"atelier/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ServeMedia handles GET /media/*?token= for the local storage backend. The
// token must have been issued for exactly this storage path.
func (s *Server) ServeMedia(c *fiber.Ctx) error {
	storagePath, err := url.PathUnescape(c.Params("*"))
	if err != nil || strings.TrimSpace(storagePath) == "" {
		return models.RespondWithError(c, models.NewValidationError("Invalid media path"))
	}

	token := c.Query("token")
	if token == "" || s.media.Verify(storagePath, token) != nil {
		return models.RespondWithError(c, models.NewForbiddenError("Invalid or expired media URL"))
	}

	fullPath, err := s.resolveMediaPath(storagePath)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.RespondWithError(c, models.NewNotFoundError("Media", storagePath))
		}
		return s.respondError(c, models.NewInternalError(err))
	}
	if info.IsDir() {
		return models.RespondWithError(c, models.NewNotFoundError("Media", storagePath))
	}

	middleware.Logger.DebugContext(c.UserContext(), "serving media", "path", storagePath)
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	return c.SendFile(fullPath)
}

// resolveMediaPath maps a storage path onto MEDIA_DIR without letting it escape.
func (s *Server) resolveMediaPath(storagePath string) (string, error) {
	root, err := filepath.Abs(s.config.MediaDir)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	full := filepath.Join(root, filepath.FromSlash(filepath.Clean("/"+storagePath)))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", models.NewForbiddenError("Invalid media path")
	}
	return full, nil
}
