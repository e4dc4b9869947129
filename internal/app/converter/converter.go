// Package converter turns a word-processor document into a populated
// outgoing mail item: it renders template placeholders, extracts the mail
// metadata block from the document header, applies each metadata key through
// the property registry, and assigns the rendered HTML body.
package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/meridius/docx2mail/internal/app/docx"
	"github.com/meridius/docx2mail/internal/app/editor"
	"github.com/meridius/docx2mail/internal/app/htmlrender"
	"github.com/meridius/docx2mail/internal/app/mailclient"
	"github.com/meridius/docx2mail/internal/app/mailprop"
)

// docxFileName is the transient rendered document inside the conversion's
// temporary directory.
const docxFileName = "temp.docx"

// ReplyMode selects how a reply target is answered.
type ReplyMode string

const (
	ReplyModeReply    ReplyMode = "Reply"
	ReplyModeReplyAll ReplyMode = "ReplyAll"
)

// Options controls a single Convert call.
type Options struct {
	// ReplyTo chains the conversion onto an existing mail item instead of
	// creating a new one.
	ReplyTo mailclient.Item
	// ReplyMode selects reply or reply-all. Defaults to reply.
	ReplyMode ReplyMode
	// Display invokes the mail client's interactive display after assembly.
	Display bool
	// ForceRender saves the item so the client renders the HTML body. The
	// item ends up in the client's drafts location as a side effect.
	ForceRender bool
}

// Converter drives one document-to-mail conversion. It is not safe for
// concurrent use: each conversion owns its temporary directory and its own
// editor session state. Close must be called to release the temporary
// directory; it is removed on every exit path, success or failure.
type Converter struct {
	originalPath string
	docxPath     string

	client   mailclient.Client
	renderer *htmlrender.Renderer
	logger   *slog.Logger

	templateValues map[string]any
	override       *mailprop.Block

	tempDir  string
	warnings []string
}

// New creates a converter for the document at docxPath. The mail client and
// editor collaborators are required.
func New(docxPath string, client mailclient.Client, ed editor.Editor, logger *slog.Logger) (*Converter, error) {
	if client == nil || ed == nil {
		return nil, errors.New("the mail client and editor collaborators are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("conversion_id", uuid.NewString()))

	return &Converter{
		originalPath: docxPath,
		docxPath:     docxPath,
		client:       client,
		renderer:     htmlrender.New(ed, logger),
		logger:       logger,
	}, nil
}

// SetTemplateValues provides the substitution context for template
// placeholders. A converter without template values treats the document as
// concrete and never writes a rendered copy.
func (c *Converter) SetTemplateValues(values map[string]any) {
	c.templateValues = values
}

// SetHeaders overrides the extracted metadata with an explicit mapping.
func (c *Converter) SetHeaders(headers map[string]any) error {
	block, err := mailprop.BlockFromMap(headers)
	if err != nil {
		return err
	}
	c.override = &block
	return nil
}

// SetHeadersYAML overrides the extracted metadata with a YAML mapping.
func (c *Converter) SetHeadersYAML(text string) error {
	block, err := mailprop.DecodeBlock(text)
	if err != nil {
		return &mailprop.ValueError{Msg: fmt.Sprintf("invalid headers override: %v", err)}
	}
	c.override = &block
	return nil
}

// SetHeadersFile overrides the extracted metadata with a YAML file.
func (c *Converter) SetHeadersFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read headers override: %w", err)
	}
	return c.SetHeadersYAML(string(data))
}

// Headers returns the metadata block the conversion will apply: the explicit
// override when one was set, otherwise the block extracted from the header of
// the (template-rendered) document.
func (c *Converter) Headers() (mailprop.Block, error) {
	if c.override != nil {
		return *c.override, nil
	}
	if err := c.renderTemplate(); err != nil {
		return mailprop.Block{}, err
	}
	return c.extractHeaders()
}

// HTML renders the document body to self-contained HTML without creating a
// mail item.
func (c *Converter) HTML(ctx context.Context) (string, error) {
	if err := c.renderTemplate(); err != nil {
		return "", err
	}
	dir, err := c.ensureTempDir()
	if err != nil {
		return "", err
	}
	return c.renderer.Render(ctx, c.docxPath, dir)
}

// Warnings returns the advisory messages accumulated so far, in order.
func (c *Converter) Warnings() []string { return c.warnings }

// Close removes the conversion's temporary directory and resets the document
// path. Safe to call multiple times.
func (c *Converter) Close() error {
	if c.tempDir == "" {
		return nil
	}
	err := os.RemoveAll(c.tempDir)
	c.tempDir = ""
	c.docxPath = c.originalPath
	return err
}

// Convert assembles the mail item: template render, header extraction,
// create or reply, property application, body assignment, then optional
// display and forced save. The first property failure aborts the conversion;
// an already created item stays partially mutated, since item lifetime
// belongs to the mail client.
func (c *Converter) Convert(ctx context.Context, opts Options) (mailclient.Item, error) {
	if err := c.renderTemplate(); err != nil {
		return nil, err
	}

	headers := mailprop.Block{}
	if c.override != nil {
		headers = *c.override
	} else {
		extracted, err := c.extractHeaders()
		if err != nil {
			return nil, err
		}
		headers = extracted
	}

	mail, err := c.createItem(ctx, opts)
	if err != nil {
		return nil, err
	}

	env := mailprop.Env{Client: c.client, Warnf: c.warnf}
	for _, entry := range headers.Entries() {
		if err := mailprop.Apply(ctx, mail, entry.Name, entry.Value, env); err != nil {
			return nil, err
		}
	}

	dir, err := c.ensureTempDir()
	if err != nil {
		return nil, err
	}
	html, err := c.renderer.Render(ctx, c.docxPath, dir)
	if err != nil {
		return nil, err
	}
	// When replying, the new content goes on top of the original body.
	if existing := mail.HTMLBody(); existing != "" {
		html = html + "\n" + existing
	}
	mail.SetHTMLBody(html)

	if opts.Display {
		if err := mail.Display(ctx); err != nil {
			return nil, err
		}
	}
	if opts.ForceRender {
		if err := mail.Save(ctx); err != nil {
			return nil, err
		}
		c.warnf("the mail item has been saved to the client's default drafts location to force HTML rendering; remove it manually if unwanted")
	}

	c.logger.Info("conversion finished",
		slog.String("document", c.originalPath),
		slog.Int("properties", headers.Len()),
	)
	return mail, nil
}

// createItem instantiates a fresh item or derives a reply from the target.
// Recipients applied from metadata later always take precedence over the
// recipients a reply inherits.
func (c *Converter) createItem(ctx context.Context, opts Options) (mailclient.Item, error) {
	if opts.ReplyTo == nil {
		if opts.ReplyMode != "" {
			return nil, &mailprop.ValueError{Msg: "reply mode set without a reply target"}
		}
		return c.client.CreateItem(ctx)
	}
	switch opts.ReplyMode {
	case "", ReplyModeReply:
		return opts.ReplyTo.Reply()
	case ReplyModeReplyAll:
		return opts.ReplyTo.ReplyAll()
	default:
		return nil, &mailprop.ValueError{Msg: fmt.Sprintf("invalid reply mode %q", opts.ReplyMode)}
	}
}

// renderTemplate writes a concrete copy of the document with placeholders
// substituted into the temporary directory. Without template values the
// original document path is used unchanged.
func (c *Converter) renderTemplate() error {
	if len(c.templateValues) == 0 {
		return nil
	}

	tmpl, err := docx.OpenTemplate(c.originalPath)
	if err != nil {
		return err
	}
	dir, err := c.ensureTempDir()
	if err != nil {
		return err
	}
	outPath := filepath.Join(dir, docxFileName)
	if err := tmpl.Render(c.templateValues, outPath); err != nil {
		return err
	}
	c.docxPath = outPath
	return nil
}

func (c *Converter) extractHeaders() (mailprop.Block, error) {
	doc, err := docx.Open(c.docxPath)
	if err != nil {
		return mailprop.Block{}, err
	}
	text, err := doc.HeaderText()
	if err != nil {
		return mailprop.Block{}, fmt.Errorf("extract document header: %w", err)
	}
	return mailprop.DecodeBlock(text)
}

func (c *Converter) ensureTempDir() (string, error) {
	if c.tempDir != "" {
		return c.tempDir, nil
	}
	dir, err := os.MkdirTemp("", "docx2mail-*")
	if err != nil {
		return "", fmt.Errorf("create conversion temp dir: %w", err)
	}
	c.tempDir = dir
	return dir, nil
}

func (c *Converter) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.warnings = append(c.warnings, msg)
	c.logger.Warn(msg)
}
