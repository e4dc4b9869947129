package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"text/template"
)

// Template is a docx opened for placeholder substitution. Placeholders use
// the standard {{ .Name }} syntax inside the document body, headers and
// footers.
//
// Word may split a placeholder across runs when it was typed incrementally;
// placeholders should be pasted in one operation so they stay within a
// single text run.
type Template struct {
	doc *Document
}

// OpenTemplate opens a docx package for rendering.
func OpenTemplate(path string) (*Template, error) {
	doc, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &Template{doc: doc}, nil
}

// Render substitutes placeholders in every content part and writes a concrete
// docx to outPath. Referencing a value absent from values is an error, so
// placeholder typos surface instead of rendering as empty text.
func (t *Template) Render(values map[string]any, outPath string) error {
	data := escapeValue(values)

	rendered := make(map[string][]byte, len(t.doc.parts))
	for name, part := range t.doc.parts {
		if !isContentPart(name) {
			rendered[name] = part
			continue
		}
		out, err := renderPart(name, part, data)
		if err != nil {
			return err
		}
		rendered[name] = out
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create rendered docx: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, name := range t.doc.names {
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("write docx part %s: %w", name, err)
		}
		if _, err := w.Write(rendered[name]); err != nil {
			return fmt.Errorf("write docx part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize rendered docx: %w", err)
	}
	return f.Close()
}

// isContentPart reports whether a part can carry placeholders.
func isContentPart(name string) bool {
	if name == documentPart {
		return true
	}
	return strings.HasPrefix(name, "word/header") || strings.HasPrefix(name, "word/footer")
}

func renderPart(name string, part []byte, data any) ([]byte, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(part))
	if err != nil {
		return nil, fmt.Errorf("parse template part %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render template part %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// escapeValue XML-escapes every string reachable from a template value, so
// substituted text cannot break the surrounding markup.
func escapeValue(v any) any {
	switch val := v.(type) {
	case string:
		return escapeXMLText(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = escapeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = escapeValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = escapeXMLText(item)
		}
		return out
	default:
		return v
	}
}

func escapeXMLText(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
