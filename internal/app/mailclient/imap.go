package mailclient

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// Dialer abstracts the IMAP connection for testing.
type Dialer interface {
	DialTLS(address string, options *imapclient.Options) (*imapclient.Client, error)
}

type DialerFunc func(string, *imapclient.Options) (*imapclient.Client, error)

func (f DialerFunc) DialTLS(address string, options *imapclient.Options) (*imapclient.Client, error) {
	return f(address, options)
}

// IMAPConfig configures the IMAP mail backend.
type IMAPConfig struct {
	Address  string `yaml:"address"`
	Login    string `yaml:"login"`
	Password string `yaml:"password"`
	// Mailbox is where saved items are appended. Defaults to Drafts.
	Mailbox string `yaml:"mailbox"`
}

// IMAPClient is a mail backend on top of an IMAP account. Created items live
// in memory until Save appends them to the drafts mailbox; the folder tree is
// the account's mailbox list.
type IMAPClient struct {
	cfg    IMAPConfig
	dialer Dialer
	logger *slog.Logger
}

func NewIMAPClient(cfg IMAPConfig, dialer Dialer, logger *slog.Logger) *IMAPClient {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "Drafts"
	}
	return &IMAPClient{cfg: cfg, dialer: dialer, logger: logger}
}

func (c *IMAPClient) CreateItem(_ context.Context) (Item, error) {
	return &imapItem{memItem: newMemItem(), client: c}, nil
}

// RootFolder lists the account's mailboxes and materializes them as a folder
// tree, split on the server's hierarchy delimiter.
func (c *IMAPClient) RootFolder(_ context.Context) (Folder, error) {
	conn, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Logout().Wait() }()

	mailboxes, err := conn.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("list mailboxes: %w", err)
	}

	root := &MemoryFolder{}
	for _, mbox := range mailboxes {
		delim := "/"
		if mbox.Delim != 0 {
			delim = string(mbox.Delim)
		}
		node := root
		var prefix string
		for _, seg := range strings.Split(mbox.Mailbox, delim) {
			if seg == "" {
				continue
			}
			node = node.ensureChild(seg)
			if prefix == "" {
				prefix = seg
			} else {
				prefix += delim + seg
			}
			node.path = prefix
		}
	}
	return root, nil
}

func (c *IMAPClient) connect() (*imapclient.Client, error) {
	conn, err := c.dialer.DialTLS(c.cfg.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("dial imap %s: %w", c.cfg.Address, err)
	}
	if err := conn.Login(c.cfg.Login, c.cfg.Password).Wait(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return conn, nil
}

type imapItem struct {
	*memItem
	client *IMAPClient
}

func (it *imapItem) Reply() (Item, error) {
	return &imapItem{memItem: it.memItem.reply(false), client: it.client}, nil
}

func (it *imapItem) ReplyAll() (Item, error) {
	return &imapItem{memItem: it.memItem.reply(true), client: it.client}, nil
}

func (it *imapItem) Display(_ context.Context) error {
	it.client.logger.Info("the imap backend has no interactive display; check the drafts mailbox after saving")
	return nil
}

// Save appends the item to the configured drafts mailbox with the \Draft
// flag set.
func (it *imapItem) Save(_ context.Context) error {
	msg, err := buildMessage(it)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return fmt.Errorf("serialize mail item: %w", err)
	}

	conn, err := it.client.connect()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Logout().Wait() }()

	mailbox := it.client.cfg.Mailbox
	if v, ok := it.Get("SaveSentMessageFolder"); ok {
		if folder, ok := v.(*MemoryFolder); ok {
			if folder.path != "" {
				mailbox = folder.path
			} else {
				mailbox = folder.Name()
			}
		}
	}

	appendCmd := conn.Append(mailbox, int64(buf.Len()), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagDraft},
	})
	if _, err := appendCmd.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append to %s: %w", mailbox, err)
	}
	if err := appendCmd.Close(); err != nil {
		return fmt.Errorf("append to %s: %w", mailbox, err)
	}
	if _, err := appendCmd.Wait(); err != nil {
		return fmt.Errorf("append to %s: %w", mailbox, err)
	}

	it.client.logger.Info("saved mail item to mailbox",
		slog.String("mailbox", mailbox),
		slog.Int("size", buf.Len()),
	)
	return nil
}
