package mailprop

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/meridius/docx2mail/internal/app/mailclient"
)

// timeLayout is the wire format for point-in-time properties.
const timeLayout = "2006-01-02 15:04"

// enumSpec is an integer enumeration addressable by member name or ordinal.
// The assignment target is always the enumeration's own name, regardless of
// the metadata key that selected it: the key is a human label, the mutation
// target is fixed per enumeration type.
type enumSpec struct {
	name    string
	members []string
}

func (e *enumSpec) resolve(property string, v Value) (int, error) {
	switch v.Kind() {
	case KindString:
		for i, m := range e.members {
			if m == v.Str() {
				return i, nil
			}
		}
		return 0, &ValueError{Msg: fmt.Sprintf("property %q: unknown %s member %q", property, e.name, v.Str())}
	case KindInt:
		if v.IntVal() < 0 || v.IntVal() >= len(e.members) {
			return 0, &ValueError{Msg: fmt.Sprintf("property %q: %d is not a valid %s ordinal", property, v.IntVal(), e.name)}
		}
		return v.IntVal(), nil
	default:
		return 0, &TypeMismatchError{Property: property, Want: "string or integer", Got: v.Kind().String()}
	}
}

var (
	importanceEnum  = enumSpec{name: "Importance", members: []string{"Low", "Normal", "High"}}
	sensitivityEnum = enumSpec{name: "Sensitivity", members: []string{"Normal", "Personal", "Private", "Confidential"}}
)

// setterKind discriminates the setter families.
type setterKind int

const (
	setExact setterKind = iota
	setAddress
	setDateTime
	setEnum
	setAppend
	setFolder
)

// Setter is one registered mutation strategy. Setters are stateless and
// shared; the registry is built once at package init.
type Setter struct {
	kind   setterKind
	target string
	want   Kind
	enum   *enumSpec
}

var registry = buildRegistry()

func buildRegistry() map[string]Setter {
	r := make(map[string]Setter)

	exact := map[string]Kind{
		"Subject":                           KindString,
		"Categories":                        KindString,
		"OriginatorDeliveryReportRequested": KindBool,
		"ReadReceiptRequested":              KindBool,
		"FlagRequest":                       KindString,
		"VotingOptions":                     KindString,
	}
	for name, want := range exact {
		r[name] = Setter{kind: setExact, target: name, want: want}
	}

	for _, name := range []string{"To", "CC", "BCC"} {
		r[name] = Setter{kind: setAddress, target: name}
	}

	for _, name := range []string{"DeferredDeliveryTime", "ExpiryTime", "FlagDueBy"} {
		r[name] = Setter{kind: setDateTime, target: name}
	}
	// ReminderTime is an alias: it validates like any point-in-time property
	// but lands on FlagDueBy.
	r["ReminderTime"] = Setter{kind: setDateTime, target: "FlagDueBy"}

	for _, name := range []string{"Attachments", "ReplyRecipients"} {
		r[name] = Setter{kind: setAppend, target: name}
	}

	r["Importance"] = Setter{kind: setEnum, enum: &importanceEnum}
	r["Sensitivity"] = Setter{kind: setEnum, enum: &sensitivityEnum}
	r["SaveSentMessageFolder"] = Setter{kind: setFolder, target: "SaveSentMessageFolder"}

	return r
}

// Resolve looks up the registered setter for a property name.
func Resolve(name string) (Setter, bool) {
	s, ok := registry[name]
	return s, ok
}

// Env carries the ambient collaborators a setter may need.
type Env struct {
	// Client is the mail session, needed for folder-path resolution.
	Client mailclient.Client
	// Warnf reports non-fatal advisory conditions to the caller.
	Warnf func(format string, args ...any)
}

func (e Env) warnf(format string, args ...any) {
	if e.Warnf != nil {
		e.Warnf(format, args...)
	}
}

// Apply validates value against the setter registered for name and mutates
// item accordingly. Unregistered names fall back to a warned best-effort raw
// assignment when the item exposes a matching field, and fail with an
// UnknownPropertyError otherwise.
func Apply(ctx context.Context, item mailclient.Item, name string, value Value, env Env) error {
	s, ok := registry[name]
	if !ok {
		return applyFallback(item, name, value, env)
	}
	return s.apply(ctx, item, name, value, env)
}

func (s Setter) apply(ctx context.Context, item mailclient.Item, name string, v Value, env Env) error {
	switch s.kind {
	case setExact:
		if v.Kind() != s.want {
			return &TypeMismatchError{Property: name, Want: s.want.String(), Got: v.Kind().String()}
		}
		return item.Set(s.target, v.Raw())

	case setAddress:
		switch v.Kind() {
		case KindString:
			return item.Set(s.target, v.Str())
		case KindList:
			return item.Set(s.target, strings.Join(v.ListVal(), ";"))
		default:
			return &TypeMismatchError{Property: name, Want: "string or list of strings", Got: v.Kind().String()}
		}

	case setDateTime:
		if v.Kind() != KindTime {
			return &TypeMismatchError{Property: name, Want: KindTime.String(), Got: v.Kind().String()}
		}
		return item.Set(s.target, v.TimeVal().Format(timeLayout))

	case setEnum:
		ordinal, err := s.enum.resolve(name, v)
		if err != nil {
			return err
		}
		return item.Set(s.enum.name, ordinal)

	case setAppend:
		var items []string
		switch v.Kind() {
		case KindString:
			items = strings.Split(v.Str(), ";")
		case KindList:
			items = v.ListVal()
		default:
			return &TypeMismatchError{Property: name, Want: "string or list of strings", Got: v.Kind().String()}
		}
		for _, entry := range items {
			if err := item.Append(s.target, entry); err != nil {
				return err
			}
		}
		return nil

	case setFolder:
		if v.Kind() != KindString {
			return &TypeMismatchError{Property: name, Want: KindString.String(), Got: v.Kind().String()}
		}
		folder, err := resolveFolder(ctx, env.Client, v.Str())
		if err != nil {
			// Lookup failures surface as the collaborator reports them.
			return err
		}
		return item.Set(s.target, folder)
	}
	return fmt.Errorf("unhandled setter kind %d for property %q", s.kind, name)
}

// resolveFolder walks a "/"-delimited path from the session root. A segment
// that parses as an integer selects the subfolder by position, otherwise by
// name.
func resolveFolder(ctx context.Context, client mailclient.Client, path string) (mailclient.Folder, error) {
	if client == nil {
		return nil, &ValueError{Msg: "folder resolution requires a mail session"}
	}
	folder, err := client.RootFolder(ctx)
	if err != nil {
		return nil, err
	}
	for _, seg := range strings.Split(path, "/") {
		if index, err := strconv.Atoi(seg); err == nil {
			folder, err = folder.SubfolderAt(index)
			if err != nil {
				return nil, err
			}
			continue
		}
		folder, err = folder.Subfolder(seg)
		if err != nil {
			return nil, err
		}
	}
	return folder, nil
}

func applyFallback(item mailclient.Item, name string, v Value, env Env) error {
	env.warnf("the mail property %q is not guaranteed to be set correctly; check the resulting mail item before sending", name)
	if !item.Has(name) {
		return &UnknownPropertyError{Property: name}
	}
	return item.Set(name, v.Raw())
}
