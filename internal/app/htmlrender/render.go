// Package htmlrender produces the self-contained HTML body of a conversion:
// it exports the document through the external editor and inlines local
// images so the result has no file dependencies.
package htmlrender

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meridius/docx2mail/internal/app/editor"
)

// htmlFileName is the transient export artifact inside the conversion's
// temporary directory.
const htmlFileName = "temp.html"

type Renderer struct {
	editor editor.Editor
	logger *slog.Logger
}

func New(ed editor.Editor, logger *slog.Logger) *Renderer {
	return &Renderer{editor: ed, logger: logger}
}

// Render exports docPath to HTML inside tempDir and returns the
// post-processed text. The export is forced to UTF-8 and the document is
// closed before the file is read back.
func (r *Renderer) Render(ctx context.Context, docPath, tempDir string) (string, error) {
	handle, err := r.editor.OpenDocument(ctx, docPath)
	if err != nil {
		return "", err
	}

	htmlPath := filepath.Join(tempDir, htmlFileName)
	if err := handle.ExportHTML(ctx, htmlPath, "utf-8"); err != nil {
		_ = handle.Close()
		return "", err
	}
	if err := handle.Close(); err != nil {
		return "", fmt.Errorf("close document: %w", err)
	}

	data, err := os.ReadFile(htmlPath)
	if err != nil {
		return "", fmt.Errorf("read exported html: %w", err)
	}

	body, err := InlineImages(string(data), tempDir)
	if err != nil {
		return "", err
	}
	r.logger.Debug("rendered html body",
		slog.String("document", docPath),
		slog.Int("size", len(body)),
	)
	return body, nil
}
