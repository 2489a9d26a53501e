package server

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"

	"atelier/internal/middleware"
	"atelier/internal/models"
	"atelier/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// viewerID returns the id stored by AuthRequired.
func viewerID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// respondError writes the error envelope. Dependency failures are logged with
// the route before the generic 500 goes out.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	if models.StatusOf(err) == fiber.StatusInternalServerError {
		route := c.Route().Path
		observability.DependencyFailures.WithLabelValues(route).Inc()
		middleware.Logger.ErrorContext(c.UserContext(), "dependency failure",
			"method", c.Method(),
			"route", route,
			"params", c.AllParams(),
			"error", err,
		)
	}
	return models.RespondWithError(c, err)
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 64)
	if err != nil || id == 0 {
		_ = models.RespondWithError(c, models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseOptionalID reads a positive id from the query string. A missing value is nil.
func parseOptionalID(c *fiber.Ctx, key string) (*uint, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, models.NewValidationError("Invalid " + humanizeParam(key))
	}
	v := uint(id)
	return &v, nil
}

// parseCursor reads the RFC 3339 "cursor" query parameter.
func parseCursor(c *fiber.Ctx) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query("cursor"))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, models.NewValidationError("cursor must be an RFC 3339 timestamp")
	}
	t = t.UTC()
	return &t, nil
}

// parseLimit reads the "limit" query parameter. A missing value is 0, which
// the services replace with their default page size.
func parseLimit(c *fiber.Ctx) (int, error) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewValidationError("limit must be an integer")
	}
	return limit, nil
}

// parsePage reads cursor and limit together.
func parsePage(c *fiber.Ctx) (*time.Time, int, error) {
	cursor, err := parseCursor(c)
	if err != nil {
		return nil, 0, err
	}
	limit, err := parseLimit(c)
	if err != nil {
		return nil, 0, err
	}
	return cursor, limit, nil
}

// humanizeParam converts a parameter name into a human-readable label.
// Examples: "id" -> "ID", "authorId" -> "author ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}
