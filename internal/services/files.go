package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Fixed upload subdirectories per resource type.
const (
	AssetItems   = "items"
	AssetProfile = "profile"
)

// FileService stores uploaded images under fixed on-disk subdirectories
// and references them from documents as absolute URLs built from the
// configured base URL.
type FileService struct {
	baseDir string
	baseURL string
}

// NewFileService creates a file service rooted at baseDir.
func NewFileService(baseDir, baseURL string) *FileService {
	return &FileService{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseDir returns the on-disk root for stored assets.
func (s *FileService) BaseDir() string {
	return s.baseDir
}

// Save stores an uploaded file from the named multipart field under the
// given subdirectory and returns its public URL. When the request carries
// no file for the field, Save returns an empty URL and no error.
func (s *FileService) Save(c *fiber.Ctx, field, subdir string, ownerID uuid.UUID) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", nil
	}

	dir := filepath.Join(s.baseDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create asset dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%d%s", ownerID, time.Now().UnixNano(), filepath.Ext(fh.Filename))
	if err := c.SaveFile(fh, filepath.Join(dir, filename)); err != nil {
		return "", fmt.Errorf("store asset: %w", err)
	}

	return fmt.Sprintf("%s/assets/%s/%s", s.baseURL, subdir, filename), nil
}

// Remove deletes the stored file behind a public asset URL. Callers treat
// removal as best-effort: the returned error is logged, never surfaced.
func (s *FileService) Remove(publicURL, subdir string) error {
	if publicURL == "" {
		return nil
	}

	marker := "assets/" + subdir + "/"
	idx := strings.LastIndex(publicURL, marker)
	if idx < 0 {
		return errors.New("url does not reference a stored asset")
	}

	filename := publicURL[idx+len(marker):]
	if filename == "" || strings.Contains(filename, "/") {
		return errors.New("malformed asset url")
	}

	return os.Remove(filepath.Join(s.baseDir, subdir, filename))
}
