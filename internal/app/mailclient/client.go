// Package mailclient defines the contract of the outgoing-mail application
// this tool drives, together with the backends implementing it. The converter
// only ever mutates an Item's properties and body; item lifetime beyond
// creation, reply and optional display/save belongs to the backend.
package mailclient

import (
	"context"
	"fmt"
)

// Client is a session with the mail application.
type Client interface {
	// CreateItem instantiates a new, empty outgoing mail item.
	CreateItem(ctx context.Context) (Item, error)
	// RootFolder returns the root of the session's folder tree.
	RootFolder(ctx context.Context) (Folder, error)
}

// Item is a single outgoing mail object. Scalar properties are addressed by
// their mail-application field name; Append targets additive collections
// such as Attachments and ReplyRecipients.
type Item interface {
	// Set assigns a scalar field. Unknown field names yield an UnknownFieldError.
	Set(field string, value any) error
	// Get reads a field back, reporting whether it has been assigned.
	Get(field string) (any, bool)
	// Has reports whether the item exposes a field of the given name,
	// assigned or not.
	Has(field string) bool
	// Append adds a single entry to a collection field without replacing
	// existing entries.
	Append(field, value string) error

	HTMLBody() string
	SetHTMLBody(body string)

	// Reply and ReplyAll derive a new item chained onto this one, carrying
	// over its body and pre-filling recipients from the original sender.
	Reply() (Item, error)
	ReplyAll() (Item, error)

	Display(ctx context.Context) error
	Save(ctx context.Context) error
}

// Folder is one node of the mail application's folder tree. Lookups by index
// are 1-based, matching mail-application collections.
type Folder interface {
	Name() string
	Subfolder(name string) (Folder, error)
	SubfolderAt(index int) (Folder, error)
}

// UnknownFieldError is returned when a field name is not part of the mail
// item's surface at all.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("mail item has no field %q", e.Field)
}

// FolderNotFoundError is returned when a folder-tree lookup does not resolve.
type FolderNotFoundError struct {
	Parent  string
	Segment string
}

func (e *FolderNotFoundError) Error() string {
	return fmt.Sprintf("folder %q has no subfolder %q", e.Parent, e.Segment)
}
