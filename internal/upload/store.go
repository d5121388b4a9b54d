package upload

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidFile is returned for empty content or a name that sanitizes to nothing.
var ErrInvalidFile = errors.New("invalid upload")

// ErrOutsideRoot is returned when a stored path would escape the upload tree.
var ErrOutsideRoot = errors.New("path escapes upload directory")

const uploadsDir = "uploads"

// maxNameBytes caps a sanitized name. With the uuid prefix a stored name
// stays well inside the usual 255-byte filesystem limit.
const maxNameBytes = 100

// maxExtBytes is the longest suffix kept as an extension when truncating.
const maxExtBytes = 16

// Store writes uploaded images below Root/uploads/user_<id>/. Paths handed
// back to callers are slash-separated and relative to Root, which is also the
// directory served under /static/.
type Store struct {
	Root string
}

func NewStore(root string) *Store {
	return &Store{Root: root}
}

// Save writes data for userID and returns its path relative to Root.
func (s *Store) Save(userID int, fileName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrInvalidFile)
	}
	clean := SanitizeFilename(fileName)
	if clean == "" {
		return "", fmt.Errorf("%w: unusable file name %q", ErrInvalidFile, fileName)
	}

	userDir := userDirName(userID)
	dir := filepath.Join(s.Root, uploadsDir, userDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	stored := uuid.NewString() + "_" + clean
	if err := os.WriteFile(filepath.Join(dir, stored), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path.Join(uploadsDir, userDir, stored), nil
}

func userDirName(userID int) string {
	return fmt.Sprintf("user_%d", userID)
}

// OwnedBy reports whether relPath names a file inside userID's upload directory.
func (s *Store) OwnedBy(relPath string, userID int) bool {
	cleaned := path.Clean("/" + relPath)[1:]
	return strings.HasPrefix(cleaned, path.Join(uploadsDir, userDirName(userID))+"/")
}

// Resolve maps a stored relative path to a filesystem path under Root/uploads.
func (s *Store) Resolve(relPath string) (string, error) {
	cleaned := path.Clean("/" + relPath)[1:]
	if !strings.HasPrefix(cleaned, uploadsDir+"/") {
		return "", ErrOutsideRoot
	}
	return filepath.Join(s.Root, filepath.FromSlash(cleaned)), nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (s *Store) Remove(relPath string) error {
	full, err := s.Resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// SanitizeFilename reduces name to a safe single path component: directory
// parts are dropped, text is folded to ASCII, whitespace becomes "_" and
// anything outside [A-Za-z0-9._-] is removed. Leading and trailing dots and
// underscores are trimmed, so "../" sequences cannot survive. Names longer
// than maxNameBytes are shortened, keeping a short extension.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case r > unicode.MaxASCII:
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return truncateName(strings.Trim(b.String(), "._"))
}

// truncateName shortens an already sanitized, ASCII-only name.
func truncateName(name string) string {
	if len(name) <= maxNameBytes {
		return name
	}
	ext := path.Ext(name)
	if len(ext) > maxExtBytes {
		ext = ""
	}
	base := strings.TrimRight(name[:maxNameBytes-len(ext)], "._")
	if base == "" {
		return strings.Trim(name[:maxNameBytes], "._")
	}
	return base + ext
}
