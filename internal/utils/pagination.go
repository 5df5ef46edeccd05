package utils

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds pagination parameters.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination reads page and limit query params with sane defaults.
func ParsePagination(c *fiber.Ctx) Pagination {
	page := parseInt(c.Query("page", "1"), 1)
	limit := parseInt(c.Query("limit", "20"), 20)
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Offset holds window parameters parsed from a path segment of the form
// "index-count", e.g. /partners/public/0-20. A bare "0-0" or malformed
// segment falls back to the first page with the default window.
type Offset struct {
	Limit int
	Skip  int
}

const defaultOffsetWindow = 20

// ParseOffset parses an "index-count" path segment into limit/skip values.
func ParseOffset(segment string) Offset {
	parts := strings.SplitN(segment, "-", 2)
	index := 0
	count := defaultOffsetWindow
	if len(parts) == 2 {
		index = parseInt(parts[0], 0)
		count = parseInt(parts[1], defaultOffsetWindow)
	}
	if index < 0 {
		index = 0
	}
	if count <= 0 {
		count = defaultOffsetWindow
	}
	return Offset{
		Limit: count,
		Skip:  index * count,
	}
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return fallback
}
