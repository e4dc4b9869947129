package mailclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	// Registers charset decoders so non-UTF-8 messages load correctly.
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"
	"jaytaylor.com/html2text"
)

// EMLClient is a mail backend that persists items as RFC 5322 .eml files.
// Its folder tree is the directory tree under the configured output
// directory, so a SaveSentMessageFolder path selects the subdirectory a
// saved item lands in.
type EMLClient struct {
	dir    string
	logger *slog.Logger
}

func NewEMLClient(dir string, logger *slog.Logger) *EMLClient {
	if dir == "" {
		dir = "."
	}
	return &EMLClient{dir: dir, logger: logger}
}

func (c *EMLClient) CreateItem(_ context.Context) (Item, error) {
	return &emlItem{memItem: newMemItem(), client: c}, nil
}

func (c *EMLClient) RootFolder(_ context.Context) (Folder, error) {
	if _, err := os.Stat(c.dir); err != nil {
		return nil, fmt.Errorf("mail output directory: %w", err)
	}
	return &dirFolder{path: c.dir}, nil
}

// Load parses an existing .eml file into an item, so a conversion can reply
// to it.
func (c *EMLClient) Load(path string) (Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open eml: %w", err)
	}
	defer f.Close()

	mr, err := mail.CreateReader(f)
	if err != nil {
		return nil, fmt.Errorf("read eml %s: %w", path, err)
	}
	defer mr.Close()

	it := &emlItem{memItem: newMemItem(), client: c}
	if subject, err := mr.Header.Text("Subject"); err == nil && subject != "" {
		it.fields["Subject"] = subject
	}
	for _, field := range []string{"From", "To", "CC"} {
		if addr := addressField(mr.Header, field); addr != "" {
			it.fields[field] = addr
		}
	}

	var textBody string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read eml part: %w", err)
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mimeType, _, err := header.ContentType()
		if err != nil {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("read eml body: %w", err)
		}
		switch mimeType {
		case "text/html":
			it.htmlBody = string(body)
		case "text/plain":
			textBody = string(body)
		}
	}
	if it.htmlBody == "" {
		it.htmlBody = textBody
	}
	return it, nil
}

func addressField(header mail.Header, field string) string {
	addrs, err := header.AddressList(field)
	if err != nil {
		return ""
	}
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.Address)
	}
	return strings.Join(parts, ";")
}

type emlItem struct {
	*memItem
	client    *EMLClient
	savedPath string
}

func (it *emlItem) Reply() (Item, error) {
	return &emlItem{memItem: it.memItem.reply(false), client: it.client}, nil
}

func (it *emlItem) ReplyAll() (Item, error) {
	return &emlItem{memItem: it.memItem.reply(true), client: it.client}, nil
}

func (it *emlItem) Display(_ context.Context) error {
	it.client.logger.Info("the eml backend has no interactive display; save the item and open the file instead")
	return nil
}

func (it *emlItem) Save(_ context.Context) error {
	msg, err := buildMessage(it)
	if err != nil {
		return err
	}

	dir := it.client.dir
	if v, ok := it.Get("SaveSentMessageFolder"); ok {
		if folder, ok := v.(*dirFolder); ok {
			dir = folder.path
		}
	}

	path := filepath.Join(dir, uuid.NewString()+".eml")
	if err := msg.WriteToFile(path); err != nil {
		return fmt.Errorf("write eml: %w", err)
	}
	it.savedPath = path
	it.client.logger.Info("saved mail item", slog.String("path", path))
	return nil
}

// SavedPath returns the file the item was last saved to.
func (it *emlItem) SavedPath() string { return it.savedPath }

// dirFolder maps the Folder contract onto a filesystem directory tree.
type dirFolder struct {
	path string
}

func (f *dirFolder) Name() string { return filepath.Base(f.path) }

func (f *dirFolder) Subfolder(name string) (Folder, error) {
	path := filepath.Join(f.path, name)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, &FolderNotFoundError{Parent: f.Name(), Segment: name}
	}
	return &dirFolder{path: path}, nil
}

func (f *dirFolder) SubfolderAt(index int) (Folder, error) {
	entries, err := os.ReadDir(f.path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if index < 1 || index > len(names) {
		return nil, &FolderNotFoundError{Parent: f.Name(), Segment: fmt.Sprint(index)}
	}
	return &dirFolder{path: filepath.Join(f.path, names[index-1])}, nil
}

// sensitivityNames are the Sensitivity header values of RFC 4021, indexed by
// the enumeration ordinal.
var sensitivityNames = []string{"Normal", "Personal", "Private", "Company-Confidential"}

// buildMessage maps an item's assigned fields onto an outgoing RFC 5322
// message. The plain-text part is derived from the HTML body so readers
// without HTML support still get content.
func buildMessage(it Item) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	msg.SetDate()
	msg.SetMessageID()

	if v, ok := it.Get("Subject"); ok {
		msg.Subject(fmt.Sprint(v))
	}
	if v, ok := it.Get("From"); ok {
		if err := msg.From(fmt.Sprint(v)); err != nil {
			return nil, fmt.Errorf("invalid From address: %w", err)
		}
	}
	if v, ok := it.Get("To"); ok {
		msg.ToIgnoreInvalid(splitAddrs(v)...)
	}
	if v, ok := it.Get("CC"); ok {
		msg.CcIgnoreInvalid(splitAddrs(v)...)
	}
	if v, ok := it.Get("BCC"); ok {
		msg.BccIgnoreInvalid(splitAddrs(v)...)
	}

	if v, ok := it.Get("Importance"); ok {
		if ordinal, ok := v.(int); ok {
			switch ordinal {
			case 0:
				msg.SetImportance(gomail.ImportanceLow)
			case 1:
				msg.SetImportance(gomail.ImportanceNormal)
			case 2:
				msg.SetImportance(gomail.ImportanceHigh)
			}
		}
	}
	if v, ok := it.Get("Sensitivity"); ok {
		if ordinal, ok := v.(int); ok && ordinal >= 0 && ordinal < len(sensitivityNames) {
			msg.SetGenHeader(gomail.Header("Sensitivity"), sensitivityNames[ordinal])
		}
	}
	if v, ok := it.Get("ReadReceiptRequested"); ok {
		if requested, ok := v.(bool); ok && requested {
			if from, ok := it.Get("From"); ok {
				_ = msg.RequestMDNTo(fmt.Sprint(from))
			}
		}
	}
	if v, ok := it.Get("Categories"); ok {
		msg.SetGenHeader(gomail.Header("Keywords"), fmt.Sprint(v))
	}
	if v, ok := it.Get("ExpiryTime"); ok {
		msg.SetGenHeader(gomail.Header("Expires"), fmt.Sprint(v))
	}
	if v, ok := it.Get("DeferredDeliveryTime"); ok {
		msg.SetGenHeader(gomail.Header("Deferred-Delivery"), fmt.Sprint(v))
	}

	// Remaining scalar fields have no standard header; carry them as
	// extension headers so nothing assigned to the item is dropped.
	for _, field := range []string{"FlagRequest", "FlagDueBy", "VotingOptions", "OriginatorDeliveryReportRequested", "BillingInformation", "Mileage"} {
		if v, ok := it.Get(field); ok {
			msg.SetGenHeader(gomail.Header("X-Docx2Mail-"+field), fmt.Sprint(v))
		}
	}

	if recipients, ok := it.Get("ReplyRecipients"); ok {
		if list, ok := recipients.([]string); ok && len(list) > 0 {
			msg.SetGenHeader(gomail.HeaderReplyTo, strings.Join(list, ", "))
		}
	}
	if attachments, ok := it.Get("Attachments"); ok {
		if list, ok := attachments.([]string); ok {
			for _, path := range list {
				msg.AttachFile(path)
			}
		}
	}

	if body := it.HTMLBody(); body != "" {
		text, err := html2text.FromString(body, html2text.Options{TextOnly: true})
		if err != nil {
			text = body
		}
		msg.SetBodyString(gomail.TypeTextPlain, text)
		msg.AddAlternativeString(gomail.TypeTextHTML, body)
	}
	return msg, nil
}

func splitAddrs(v any) []string {
	var out []string
	for _, part := range strings.Split(fmt.Sprint(v), ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
