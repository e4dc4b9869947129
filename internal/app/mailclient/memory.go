package mailclient

import (
	"context"
	"strconv"
	"strings"
	"sync"
)

// scalarFields is the closed set of scalar field names a mail item exposes.
// It mirrors the property surface of a desktop mail client's mail object;
// names outside this set only reach an item through the raw escape hatch,
// which fails for them with an UnknownFieldError.
var scalarFields = map[string]struct{}{
	"Subject":                           {},
	"Categories":                        {},
	"OriginatorDeliveryReportRequested": {},
	"ReadReceiptRequested":              {},
	"FlagRequest":                       {},
	"VotingOptions":                     {},
	"To":                                {},
	"CC":                                {},
	"BCC":                               {},
	"From":                              {},
	"DeferredDeliveryTime":              {},
	"ExpiryTime":                        {},
	"FlagDueBy":                         {},
	"Importance":                        {},
	"Sensitivity":                       {},
	"SaveSentMessageFolder":             {},
	"BillingInformation":                {},
	"Mileage":                           {},
}

// collectionFields are the additive collections supported by Append.
var collectionFields = map[string]struct{}{
	"Attachments":     {},
	"ReplyRecipients": {},
}

// MemoryClient is an in-process mail application. It backs the test suite
// and serves as field storage for the persistent backends, which embed its
// items and override Save.
type MemoryClient struct {
	mu    sync.Mutex
	root  *MemoryFolder
	items []*memItem
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{root: &MemoryFolder{name: ""}}
}

func (c *MemoryClient) CreateItem(_ context.Context) (Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := newMemItem()
	c.items = append(c.items, it)
	return it, nil
}

func (c *MemoryClient) RootFolder(_ context.Context) (Folder, error) {
	return c.root, nil
}

// AddFolder registers a "/"-delimited folder path on the session, creating
// intermediate folders as needed, and returns the leaf.
func (c *MemoryClient) AddFolder(path string) *MemoryFolder {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.root
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		f = f.ensureChild(seg)
	}
	return f
}

// Items returns every item created through this session, in creation order.
func (c *MemoryClient) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	for i, it := range c.items {
		out[i] = it
	}
	return out
}

// MemoryFolder is one node of the in-process folder tree. For trees that
// mirror a remote hierarchy, path carries the fully qualified folder name in
// the remote naming scheme.
type MemoryFolder struct {
	name     string
	path     string
	children []*MemoryFolder
}

func (f *MemoryFolder) Name() string { return f.name }

func (f *MemoryFolder) Subfolder(name string) (Folder, error) {
	for _, child := range f.children {
		if child.name == name {
			return child, nil
		}
	}
	return nil, &FolderNotFoundError{Parent: f.name, Segment: name}
}

func (f *MemoryFolder) SubfolderAt(index int) (Folder, error) {
	if index < 1 || index > len(f.children) {
		return nil, &FolderNotFoundError{Parent: f.name, Segment: strconv.Itoa(index)}
	}
	return f.children[index-1], nil
}

func (f *MemoryFolder) ensureChild(name string) *MemoryFolder {
	for _, child := range f.children {
		if child.name == name {
			return child
		}
	}
	child := &MemoryFolder{name: name}
	f.children = append(f.children, child)
	return child
}

type memItem struct {
	fields      map[string]any
	collections map[string][]string
	htmlBody    string
	displayed   bool
	saved       bool
}

func newMemItem() *memItem {
	return &memItem{
		fields:      make(map[string]any),
		collections: make(map[string][]string),
	}
}

func (it *memItem) Set(field string, value any) error {
	if _, ok := scalarFields[field]; !ok {
		return &UnknownFieldError{Field: field}
	}
	it.fields[field] = value
	return nil
}

func (it *memItem) Get(field string) (any, bool) {
	if v, ok := it.fields[field]; ok {
		return v, true
	}
	if v, ok := it.collections[field]; ok {
		return v, true
	}
	return nil, false
}

func (it *memItem) Has(field string) bool {
	if _, ok := scalarFields[field]; ok {
		return true
	}
	_, ok := collectionFields[field]
	return ok
}

func (it *memItem) Append(field, value string) error {
	if _, ok := collectionFields[field]; !ok {
		return &UnknownFieldError{Field: field}
	}
	it.collections[field] = append(it.collections[field], value)
	return nil
}

func (it *memItem) HTMLBody() string        { return it.htmlBody }
func (it *memItem) SetHTMLBody(body string) { it.htmlBody = body }

func (it *memItem) Reply() (Item, error)    { return it.reply(false), nil }
func (it *memItem) ReplyAll() (Item, error) { return it.reply(true), nil }

// reply derives a new item chained onto this one: the original body carries
// over, the original sender becomes the recipient, and on reply-all the
// original recipients are kept on CC.
func (it *memItem) reply(all bool) *memItem {
	out := newMemItem()
	out.htmlBody = it.htmlBody
	if from, ok := it.fields["From"]; ok {
		out.fields["To"] = from
	}
	if all {
		if cc, ok := it.fields["CC"]; ok {
			out.fields["CC"] = cc
		} else if to, ok := it.fields["To"]; ok {
			out.fields["CC"] = to
		}
	}
	return out
}

func (it *memItem) Display(_ context.Context) error {
	it.displayed = true
	return nil
}

func (it *memItem) Save(_ context.Context) error {
	it.saved = true
	return nil
}
