// Package editor abstracts the external document editor used to export a
// document to HTML.
package editor

import "context"

// Editor opens documents for export.
type Editor interface {
	OpenDocument(ctx context.Context, path string) (Handle, error)
}

// Handle is an opened document. ExportHTML writes a rendered HTML file to
// path using the given character encoding; Close releases the document and
// must be called before the export is read back.
type Handle interface {
	ExportHTML(ctx context.Context, path, encoding string) error
	Close() error
}
