// Package docs renders the demo's asciidoc guides to HTML fragments the
// dashboard embeds in its docs view.
package docs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytesparadise/libasciidoc"
	"github.com/bytesparadise/libasciidoc/pkg/configuration"
)

// Service reads guide files from one directory and caches the rendered
// HTML. Guides are static for the lifetime of the process.
type Service struct {
	docsDir string
	cache   map[string]string // filename -> html fragment
	mu      sync.RWMutex
}

func NewService(docsDir string) *Service {
	return &Service{
		docsDir: docsDir,
		cache:   make(map[string]string),
	}
}

// Render returns the HTML fragment for one guide file, rendering and
// caching it on first use. The filename is used verbatim; callers validate
// it against List.
func (s *Service) Render(filename string) (string, error) {
	s.mu.RLock()
	html, ok := s.cache[filename]
	s.mu.RUnlock()
	if ok {
		return html, nil
	}

	data, err := os.ReadFile(filepath.Join(s.docsDir, filename))
	if err != nil {
		return "", fmt.Errorf("read guide: %w", err)
	}

	output := bytes.NewBuffer(nil)
	config := configuration.NewConfiguration(
		configuration.WithHeaderFooter(false), // embedded in the dashboard layout
	)
	if _, err := libasciidoc.Convert(bytes.NewReader(data), output, config); err != nil {
		return "", fmt.Errorf("convert asciidoc: %w", err)
	}

	html = output.String()
	s.mu.Lock()
	s.cache[filename] = html
	s.mu.Unlock()
	return html, nil
}

// List returns the available guide filenames.
func (s *Service) List() ([]string, error) {
	entries, err := os.ReadDir(s.docsDir)
	if err != nil {
		return nil, err
	}

	var guides []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".adoc") {
			guides = append(guides, entry.Name())
		}
	}
	return guides, nil
}
