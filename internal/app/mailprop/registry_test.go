package mailprop

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridius/docx2mail/internal/app/mailclient"
)

func newTestItem(t *testing.T, client *mailclient.MemoryClient) mailclient.Item {
	t.Helper()
	item, err := client.CreateItem(context.Background())
	require.NoError(t, err)
	return item
}

func TestApplyExactTypeProperties(t *testing.T) {
	tests := []struct {
		property string
		value    Value
		want     any
		wantErr  bool
	}{
		{property: "Subject", value: String("Hello"), want: "Hello"},
		{property: "Subject", value: Int(42), wantErr: true},
		{property: "Categories", value: String("Red Category;Blue Category"), want: "Red Category;Blue Category"},
		{property: "ReadReceiptRequested", value: Bool(true), want: true},
		{property: "ReadReceiptRequested", value: String("true"), wantErr: true},
		{property: "OriginatorDeliveryReportRequested", value: Bool(false), want: false},
		{property: "FlagRequest", value: String("Follow up"), want: "Follow up"},
		{property: "VotingOptions", value: String("Yes;No"), want: "Yes;No"},
		{property: "VotingOptions", value: List("Yes", "No"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.property, tt.value.Kind()), func(t *testing.T) {
			client := mailclient.NewMemoryClient()
			item := newTestItem(t, client)

			err := Apply(context.Background(), item, tt.property, tt.value, Env{Client: client})
			if tt.wantErr {
				var mismatch *TypeMismatchError
				require.ErrorAs(t, err, &mismatch)
				assert.Equal(t, tt.property, mismatch.Property)
				_, set := item.Get(tt.property)
				assert.False(t, set, "rejected value must not mutate the item")
				return
			}

			require.NoError(t, err)
			got, ok := item.Get(tt.property)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyAddressListProperties(t *testing.T) {
	for _, property := range []string{"To", "CC", "BCC"} {
		t.Run(property, func(t *testing.T) {
			client := mailclient.NewMemoryClient()

			single := newTestItem(t, client)
			require.NoError(t, Apply(context.Background(), single, property, String("a@x;b@x"), Env{Client: client}))

			listed := newTestItem(t, client)
			require.NoError(t, Apply(context.Background(), listed, property, List("a@x", "b@x"), Env{Client: client}))

			wantSingle, _ := single.Get(property)
			wantListed, _ := listed.Get(property)
			assert.Equal(t, wantSingle, wantListed, "list and ;-joined string must be equivalent")
			assert.Equal(t, "a@x;b@x", wantListed)

			rejected := newTestItem(t, client)
			err := Apply(context.Background(), rejected, property, Int(3), Env{Client: client})
			var mismatch *TypeMismatchError
			assert.ErrorAs(t, err, &mismatch)
		})
	}
}

func TestApplyEnumProperties(t *testing.T) {
	tests := []struct {
		property string
		value    Value
		target   string
		want     int
		wantErr  bool
	}{
		{property: "Importance", value: String("High"), target: "Importance", want: 2},
		{property: "Importance", value: Int(2), target: "Importance", want: 2},
		{property: "Importance", value: String("Low"), target: "Importance", want: 0},
		{property: "Importance", value: String("Urgent"), wantErr: true},
		{property: "Importance", value: Int(5), wantErr: true},
		{property: "Importance", value: String("high"), wantErr: true},
		{property: "Sensitivity", value: String("Confidential"), target: "Sensitivity", want: 3},
		{property: "Sensitivity", value: Int(1), target: "Sensitivity", want: 1},
		{property: "Sensitivity", value: Int(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%v", tt.property, tt.value.Raw()), func(t *testing.T) {
			client := mailclient.NewMemoryClient()
			item := newTestItem(t, client)

			err := Apply(context.Background(), item, tt.property, tt.value, Env{Client: client})
			if tt.wantErr {
				var valueErr *ValueError
				require.ErrorAs(t, err, &valueErr)
				_, set := item.Get(tt.property)
				assert.False(t, set)
				return
			}

			require.NoError(t, err)
			got, ok := item.Get(tt.target)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnumNameAndOrdinalAreIdentical(t *testing.T) {
	client := mailclient.NewMemoryClient()

	byName := newTestItem(t, client)
	require.NoError(t, Apply(context.Background(), byName, "Importance", String("High"), Env{Client: client}))

	byOrdinal := newTestItem(t, client)
	require.NoError(t, Apply(context.Background(), byOrdinal, "Importance", Int(2), Env{Client: client}))

	nameVal, _ := byName.Get("Importance")
	ordinalVal, _ := byOrdinal.Get("Importance")
	assert.Equal(t, nameVal, ordinalVal)
}

func TestApplyDateTimeProperties(t *testing.T) {
	stamp := time.Date(2024, time.March, 7, 9, 5, 33, 0, time.UTC)

	tests := []struct {
		property string
		target   string
	}{
		{property: "DeferredDeliveryTime", target: "DeferredDeliveryTime"},
		{property: "ExpiryTime", target: "ExpiryTime"},
		{property: "FlagDueBy", target: "FlagDueBy"},
		{property: "ReminderTime", target: "FlagDueBy"},
	}

	for _, tt := range tests {
		t.Run(tt.property, func(t *testing.T) {
			client := mailclient.NewMemoryClient()
			item := newTestItem(t, client)

			require.NoError(t, Apply(context.Background(), item, tt.property, Time(stamp), Env{Client: client}))
			got, ok := item.Get(tt.target)
			require.True(t, ok)
			assert.Equal(t, "2024-03-07 09:05", got)

			rejected := newTestItem(t, client)
			err := Apply(context.Background(), rejected, tt.property, String("2024-03-07"), Env{Client: client})
			var mismatch *TypeMismatchError
			assert.ErrorAs(t, err, &mismatch)
		})
	}
}

func TestApplyAccumulationProperties(t *testing.T) {
	for _, property := range []string{"Attachments", "ReplyRecipients"} {
		t.Run(property, func(t *testing.T) {
			client := mailclient.NewMemoryClient()
			item := newTestItem(t, client)

			require.NoError(t, Apply(context.Background(), item, property, String("x;y;z"), Env{Client: client}))
			got, ok := item.Get(property)
			require.True(t, ok)
			assert.Equal(t, []string{"x", "y", "z"}, got, "tokens must be appended individually in order")

			require.NoError(t, Apply(context.Background(), item, property, List("w"), Env{Client: client}))
			got, _ = item.Get(property)
			assert.Equal(t, []string{"x", "y", "z", "w"}, got, "appending must not replace existing entries")

			err := Apply(context.Background(), item, property, Bool(true), Env{Client: client})
			var mismatch *TypeMismatchError
			assert.ErrorAs(t, err, &mismatch)
		})
	}
}

func TestApplySaveSentMessageFolder(t *testing.T) {
	client := mailclient.NewMemoryClient()
	client.AddFolder("Personal/Archive/2024")
	client.AddFolder("Personal/Sent")

	t.Run("by name", func(t *testing.T) {
		item := newTestItem(t, client)
		require.NoError(t, Apply(context.Background(), item, "SaveSentMessageFolder", String("Personal/Archive/2024"), Env{Client: client}))

		got, ok := item.Get("SaveSentMessageFolder")
		require.True(t, ok)
		folder, ok := got.(mailclient.Folder)
		require.True(t, ok)
		assert.Equal(t, "2024", folder.Name())
	})

	t.Run("by positional index", func(t *testing.T) {
		item := newTestItem(t, client)
		require.NoError(t, Apply(context.Background(), item, "SaveSentMessageFolder", String("1/2"), Env{Client: client}))

		got, _ := item.Get("SaveSentMessageFolder")
		folder := got.(mailclient.Folder)
		assert.Equal(t, "Sent", folder.Name())
	})

	t.Run("unresolved segment", func(t *testing.T) {
		item := newTestItem(t, client)
		err := Apply(context.Background(), item, "SaveSentMessageFolder", String("Personal/Nowhere"), Env{Client: client})

		var notFound *mailclient.FolderNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "Nowhere", notFound.Segment)
	})
}

func TestApplyFallback(t *testing.T) {
	client := mailclient.NewMemoryClient()

	t.Run("raw assignment with warning", func(t *testing.T) {
		item := newTestItem(t, client)
		var warnings []string
		env := Env{Client: client, Warnf: func(format string, args ...any) {
			warnings = append(warnings, fmt.Sprintf(format, args...))
		}}

		require.NoError(t, Apply(context.Background(), item, "Mileage", String("1200"), env))
		got, ok := item.Get("Mileage")
		require.True(t, ok)
		assert.Equal(t, "1200", got)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "Mileage")
	})

	t.Run("unsupported property", func(t *testing.T) {
		item := newTestItem(t, client)
		err := Apply(context.Background(), item, "Frobnicate", String("x"), Env{Client: client})

		var unknown *UnknownPropertyError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "Frobnicate", unknown.Property)
	})
}

func TestRoundTripAllSetterFamilies(t *testing.T) {
	client := mailclient.NewMemoryClient()
	client.AddFolder("Archive")
	item := newTestItem(t, client)

	block, err := DecodeBlock(`
Subject: Quarterly report
To:
  - a@example.com
  - b@example.com
CC: c@example.com
ReadReceiptRequested: true
Importance: High
Sensitivity: 2
DeferredDeliveryTime: 2024-06-01 08:30:00
Attachments: report.pdf;summary.xlsx
SaveSentMessageFolder: Archive
`)
	require.NoError(t, err)

	env := Env{Client: client}
	for _, entry := range block.Entries() {
		require.NoError(t, Apply(context.Background(), item, entry.Name, entry.Value, env), "property %s", entry.Name)
	}

	expect := map[string]any{
		"Subject":              "Quarterly report",
		"To":                   "a@example.com;b@example.com",
		"CC":                   "c@example.com",
		"ReadReceiptRequested": true,
		"Importance":           2,
		"Sensitivity":          2,
		"DeferredDeliveryTime": "2024-06-01 08:30",
		"Attachments":          []string{"report.pdf", "summary.xlsx"},
	}
	for field, want := range expect {
		got, ok := item.Get(field)
		require.True(t, ok, "field %s", field)
		assert.Equal(t, want, got, "field %s", field)
	}
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`, mustGet(t, item, "DeferredDeliveryTime"))

	folder, _ := item.Get("SaveSentMessageFolder")
	assert.Equal(t, "Archive", folder.(mailclient.Folder).Name())
}

func mustGet(t *testing.T, item mailclient.Item, field string) any {
	t.Helper()
	v, ok := item.Get(field)
	require.True(t, ok)
	return v
}

func TestResolve(t *testing.T) {
	_, ok := Resolve("Subject")
	assert.True(t, ok)
	_, ok = Resolve("subject")
	assert.False(t, ok, "property names are case-sensitive")
	_, ok = Resolve("Frobnicate")
	assert.False(t, ok)
}
