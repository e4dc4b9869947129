package htmlrender

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// InlineImages rewrites every <img> whose source is a relative local path to
// a file under baseDir into a base64 data URI, making the HTML self-contained.
// Remote, absolute and non-existent sources are left untouched.
func InlineImages(src, baseDir string) (string, error) {
	// Fast path: documents without images pass through byte-identical.
	if !strings.Contains(src, "<img") {
		return src, nil
	}

	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parse exported html: %w", err)
	}

	for n := range doc.Descendants() {
		if n.Type != html.ElementNode || n.Data != "img" {
			continue
		}
		for i, attr := range n.Attr {
			if attr.Key != "src" {
				continue
			}
			if uri, ok := inlineRef(attr.Val, baseDir); ok {
				n.Attr[i].Val = uri
			}
		}
	}

	var buf strings.Builder
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("render inlined html: %w", err)
	}
	return buf.String(), nil
}

// inlineRef turns one image reference into a data URI if it points at an
// existing file inside baseDir.
func inlineRef(ref, baseDir string) (string, bool) {
	if !isLocalRef(ref) {
		return "", false
	}

	path := filepath.Join(baseDir, filepath.FromSlash(ref))
	// A reference must not escape the conversion's directory.
	if rel, err := filepath.Rel(baseDir, path); err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	mtype := mime.TypeByExtension(filepath.Ext(path))
	if mtype == "" {
		mtype = "application/octet-stream"
	}
	if i := strings.IndexByte(mtype, ';'); i >= 0 {
		mtype = mtype[:i]
	}
	return "data:" + mtype + ";base64," + base64.StdEncoding.EncodeToString(data), true
}

func isLocalRef(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "//") {
		return false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}
