package editor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultCommand is the LibreOffice binary used when no command is configured.
const DefaultCommand = "soffice"

// Soffice drives a headless LibreOffice instance for HTML export. Each
// export is a separate process invocation, so conversions never share
// editor session state.
type Soffice struct {
	command string
	logger  *slog.Logger
}

func NewSoffice(command string, logger *slog.Logger) *Soffice {
	if command == "" {
		command = DefaultCommand
	}
	return &Soffice{command: command, logger: logger}
}

func (s *Soffice) OpenDocument(_ context.Context, path string) (Handle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return &sofficeDoc{command: s.command, path: path, logger: s.logger}, nil
}

type sofficeDoc struct {
	command string
	path    string
	logger  *slog.Logger
}

func (d *sofficeDoc) ExportHTML(ctx context.Context, outPath, encoding string) error {
	// LibreOffice always writes HTML as UTF-8; other encodings are not
	// supported by this editor.
	if encoding != "" && !strings.EqualFold(encoding, "utf-8") {
		return fmt.Errorf("unsupported export encoding %q", encoding)
	}

	outDir := filepath.Dir(outPath)
	// The LibreOffice profile is isolated per export so conversions never
	// contend for the shared user profile lock.
	profileDir := filepath.Join(outDir, ".soffice-profile")
	cmd := exec.CommandContext(ctx, d.command,
		"-env:UserInstallation="+fileURI(profileDir),
		"--headless",
		"--norestore",
		"--convert-to", "html",
		"--outdir", outDir,
		d.path,
	)
	cmd.Env = append(os.Environ(), "HOME="+outDir)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s export failed: %w: %s", d.command, err, strings.TrimSpace(string(out)))
	}
	d.logger.Debug("exported document to html",
		slog.String("document", d.path),
		slog.String("output", outPath),
	)

	// soffice names the output after the input document; move it to the
	// requested path.
	produced := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(d.path), filepath.Ext(d.path))+".html")
	if produced == outPath {
		return nil
	}
	if err := os.Rename(produced, outPath); err != nil {
		return fmt.Errorf("move exported html: %w", err)
	}
	return nil
}

func (d *sofficeDoc) Close() error { return nil }

func fileURI(path string) string {
	return "file://" + filepath.ToSlash(path)
}
