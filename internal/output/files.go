package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"uring-crawler/internal/config"
	"uring-crawler/internal/observability"
)

// FileWriter persists grouped notices as <root>/<campus>/<department>/<board>.json.
type FileWriter struct {
	root   string
	pretty bool
	logger *observability.Logger
}

func NewFileWriter(cfg *config.Config, logger *observability.Logger) *FileWriter {
	return &FileWriter{
		root:   cfg.Paths.Output,
		pretty: cfg.Output.JSONPretty,
		logger: logger,
	}
}

// Write writes one file per board and returns the paths written. Boards of
// one department whose names sanitize to the same file get a numeric suffix.
func (w *FileWriter) Write(grouped Grouped) ([]string, error) {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	var written []string
	for _, campus := range sortedKeys(grouped) {
		departments := grouped[campus]
		for _, dept := range sortedKeys(departments) {
			dir := filepath.Join(w.root, safeDirName(campus), safeDirName(dept))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return written, fmt.Errorf("failed to create %s: %w", dir, err)
			}

			boards := departments[dept]
			taken := make(map[string]bool, len(boards))
			for _, board := range sortedKeys(boards) {
				name := SafeFileName(board)
				for n := 2; taken[name]; n++ {
					name = fmt.Sprintf("%s-%d", SafeFileName(board), n)
				}
				if name != SafeFileName(board) {
					w.logger.Warn("Board file name collision",
						"campus", campus,
						"department", dept,
						"board", board,
						"file", name+".json",
					)
				}
				taken[name] = true

				path := filepath.Join(dir, name+".json")
				if err := w.writeJSON(path, boards[board]); err != nil {
					return written, err
				}
				written = append(written, path)
			}
		}
	}
	return written, nil
}

func (w *FileWriter) writeJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to serialize %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SafeFileName replaces every rune that is not a letter or digit with '-'.
func SafeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '-'
	}, name)
}

// safeDirName keeps names readable but stops them from escaping the tree.
func safeDirName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return '-'
		}
		return r
	}, name)
	switch name {
	case "", ".", "..":
		return "_" + name
	}
	return name
}
