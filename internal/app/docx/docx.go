// Package docx reads the parts of a WordprocessingML package this tool needs:
// the header of the first section, whose paragraph text carries the mail
// metadata block, and the XML parts a template render rewrites.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	documentPart     = "word/document.xml"
	documentRelsPart = "word/_rels/document.xml.rels"
)

// Document is an opened docx package with all parts loaded in memory.
type Document struct {
	path  string
	names []string
	parts map[string][]byte
}

// Open reads a docx package from disk.
func Open(docPath string) (*Document, error) {
	zr, err := zip.OpenReader(docPath)
	if err != nil {
		return nil, fmt.Errorf("open docx %s: %w", docPath, err)
	}
	defer zr.Close()

	d := &Document{
		path:  docPath,
		parts: make(map[string][]byte, len(zr.File)),
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open docx part %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read docx part %s: %w", f.Name, err)
		}
		d.names = append(d.names, f.Name)
		d.parts[f.Name] = data
	}
	if _, ok := d.parts[documentPart]; !ok {
		return nil, fmt.Errorf("%s is not a docx package: missing %s", docPath, documentPart)
	}
	return d, nil
}

func (d *Document) Path() string { return d.path }

// HeaderText returns the concatenated paragraph text of the first section's
// default header, with one line per paragraph. A document without a header
// part yields an empty string.
func (d *Document) HeaderText() (string, error) {
	part, err := d.defaultHeaderPart()
	if err != nil {
		return "", err
	}
	if part == "" {
		return "", nil
	}
	return paragraphText(d.parts[part])
}

// defaultHeaderPart resolves the part name of the first section's default
// header through the document relationships.
func (d *Document) defaultHeaderPart() (string, error) {
	relID, err := firstDefaultHeaderRef(d.parts[documentPart])
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", documentPart, err)
	}
	if relID == "" {
		return "", nil
	}

	rels, ok := d.parts[documentRelsPart]
	if !ok {
		return "", nil
	}
	target, err := relationshipTarget(rels, relID)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", documentRelsPart, err)
	}
	if target == "" {
		return "", nil
	}

	part := path.Join("word", target)
	if _, ok := d.parts[part]; !ok {
		return "", nil
	}
	return part, nil
}

// firstDefaultHeaderRef scans document.xml for the first
// <w:headerReference w:type="default"> and returns its relationship id.
// The first reference in document order belongs to the first section.
func firstDefaultHeaderRef(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "headerReference" {
			continue
		}

		var refType, relID string
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "type":
				refType = attr.Value
			case "id":
				relID = attr.Value
			}
		}
		if refType == "default" && relID != "" {
			return relID, nil
		}
	}
}

type relationships struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

func relationshipTarget(data []byte, relID string) (string, error) {
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return "", err
	}
	for _, rel := range rels.Rels {
		if rel.ID == relID {
			return rel.Target, nil
		}
	}
	return "", nil
}

// paragraphText extracts the visible text of a header or body part: the
// character content of every w:t run, with tabs and in-paragraph breaks
// preserved and one line per w:p paragraph.
func paragraphText(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		lines   []string
		current strings.Builder
		depth   int
		inText  bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				depth++
			case "t":
				inText = depth > 0
			case "tab":
				if depth > 0 {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if depth > 0 {
					depth--
					lines = append(lines, current.String())
					current.Reset()
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
