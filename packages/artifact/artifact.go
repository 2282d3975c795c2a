package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultDirectory is where screenshots land when nothing is configured.
const DefaultDirectory = "target/screenshots"

// Artifact is one diagnostic capture.
type Artifact struct {
	TestName    string
	Worker      string
	CapturedAt  time.Time
	ContentType string
	Payload     []byte
	// Location is set by the sink that stored the artifact.
	Location string
}

// Sink receives artifacts for reporting.
type Sink interface {
	Store(ctx context.Context, a *Artifact) error
}

// FileStore writes artifacts as <test>_<unixmillis>.<ext> under a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultDirectory
	}
	return &FileStore{dir: dir}
}

// Dir returns the target directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) Store(ctx context.Context, a *Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	name := fmt.Sprintf("%s_%d%s", sanitize(a.TestName), a.CapturedAt.UnixMilli(), extension(a.ContentType))
	path := filepath.Join(s.dir, name)

	// Captures from parallel workers can share a millisecond.
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 1; fileExists(path); i++ {
		path = filepath.Join(s.dir, fmt.Sprintf("%s_%d_%d%s", sanitize(a.TestName), a.CapturedAt.UnixMilli(), i, extension(a.ContentType)))
	}

	if err := os.WriteFile(path, a.Payload, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	a.Location = path
	return nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "text/html":
		return ".html"
	case "application/json":
		return ".json"
	default:
		return ".bin"
	}
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "test"
	}
	return b.String()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
