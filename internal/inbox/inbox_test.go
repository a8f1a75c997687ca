package inbox

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/oneguard-gw/internal/storage"
	"github.com/mattjoyce/oneguard-gw/internal/webhook"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "inbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	firstID, err := s.Record(ctx, webhook.Delivery{
		RequestID:  "req-1",
		Body:       json.RawMessage(`{"a":1}`),
		ReceivedAt: base,
	})
	require.NoError(t, err)
	_, err = uuid.Parse(firstID)
	assert.NoError(t, err, "ids are uuids")

	_, err = s.Record(ctx, webhook.Delivery{
		Body:       json.RawMessage(`{"event":"verification.completed"}`),
		ReceivedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.JSONEq(t, `{"event":"verification.completed"}`, string(entries[0].Payload))
	assert.Empty(t, entries[0].RequestID)
	assert.Equal(t, firstID, entries[1].ID)
	assert.Equal(t, "req-1", entries[1].RequestID)
	assert.Equal(t, 7, entries[1].BodyBytes)
	assert.True(t, entries[1].ReceivedAt.Equal(base))
}

func TestRecent_KeepsRawBytes(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	raw := `{ "b" : 2,   "a" : 1 }`

	require.NoError(t, s.Receive(ctx, webhook.Delivery{Body: json.RawMessage(raw)}))

	entries, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, raw, string(entries[0].Payload))
	assert.False(t, entries[0].ReceivedAt.IsZero())
}

func TestRecent_EmptyBody(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Receive(ctx, webhook.Delivery{}))

	entries, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Payload)
	assert.Equal(t, 0, entries[0].BodyBytes)
}

func TestRecent_PaddedBodyStoredVerbatim(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	body := json.RawMessage(" {\"a\":1}\n")
	require.NoError(t, s.Receive(ctx, webhook.Delivery{Body: body}))

	entries, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, body, entries[0].Payload)
	assert.Equal(t, len(body), entries[0].BodyBytes)

	data, err := json.Marshal(entries)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"payload":{"a":1}`)
}

func TestRecent_Limit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Receive(ctx, webhook.Delivery{Body: json.RawMessage(`{}`)}))
	}

	entries, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		_, err := s.Record(ctx, webhook.Delivery{
			Body:       json.RawMessage(`{"n":1}`),
			ReceivedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		})
		require.NoError(t, err)
	}

	n, err := s.Prune(ctx, base.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	n, err = s.Prune(ctx, base)
	require.NoError(t, err)
	assert.Zero(t, n)
}
