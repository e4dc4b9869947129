package mailclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryItemFields(t *testing.T) {
	client := NewMemoryClient()
	item, err := client.CreateItem(context.Background())
	require.NoError(t, err)

	t.Run("known scalar field", func(t *testing.T) {
		require.NoError(t, item.Set("Subject", "Hi"))
		got, ok := item.Get("Subject")
		require.True(t, ok)
		assert.Equal(t, "Hi", got)
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		err := item.Set("Frobnicate", "x")
		var unknown *UnknownFieldError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "Frobnicate", unknown.Field)
	})

	t.Run("collections accumulate", func(t *testing.T) {
		require.NoError(t, item.Append("Attachments", "a.pdf"))
		require.NoError(t, item.Append("Attachments", "b.pdf"))
		got, ok := item.Get("Attachments")
		require.True(t, ok)
		assert.Equal(t, []string{"a.pdf", "b.pdf"}, got)

		assert.Error(t, item.Append("Subject", "not a collection"))
	})

	t.Run("has covers assigned and unassigned fields", func(t *testing.T) {
		assert.True(t, item.Has("BillingInformation"))
		assert.True(t, item.Has("ReplyRecipients"))
		assert.False(t, item.Has("Frobnicate"))
	})
}

func TestMemoryItemReply(t *testing.T) {
	client := NewMemoryClient()
	original, err := client.CreateItem(context.Background())
	require.NoError(t, err)
	require.NoError(t, original.Set("From", "sender@example.com"))
	require.NoError(t, original.Set("To", "me@example.com"))
	original.SetHTMLBody("OLD")

	t.Run("reply", func(t *testing.T) {
		reply, err := original.Reply()
		require.NoError(t, err)

		assert.Equal(t, "OLD", reply.HTMLBody())
		to, _ := reply.Get("To")
		assert.Equal(t, "sender@example.com", to)
		_, hasCC := reply.Get("CC")
		assert.False(t, hasCC)
	})

	t.Run("reply all keeps other recipients on CC", func(t *testing.T) {
		reply, err := original.ReplyAll()
		require.NoError(t, err)

		cc, ok := reply.Get("CC")
		require.True(t, ok)
		assert.Equal(t, "me@example.com", cc)
	})
}

func TestMemoryFolderTree(t *testing.T) {
	client := NewMemoryClient()
	client.AddFolder("Inbox/Work")
	client.AddFolder("Inbox/Home")
	client.AddFolder("Sent")

	root, err := client.RootFolder(context.Background())
	require.NoError(t, err)

	inbox, err := root.Subfolder("Inbox")
	require.NoError(t, err)

	second, err := inbox.SubfolderAt(2)
	require.NoError(t, err)
	assert.Equal(t, "Home", second.Name())

	_, err = inbox.SubfolderAt(3)
	var notFound *FolderNotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = root.Subfolder("Trash")
	require.ErrorAs(t, err, &notFound)
}
