package ledger

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanesguild/licensegw/internal/audit"
	"github.com/phanesguild/licensegw/internal/storage"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecordDeliveryAndRecent(t *testing.T) {
	store := NewStore(testDB(t))
	ctx := context.Background()

	base := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	id1, err := store.RecordDelivery(ctx, "first@example.com", "First Buyer", "1001", base)
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := store.RecordDelivery(ctx, "second@example.com", "Second Buyer", "1002", base.Add(time.Minute))
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "1002", entries[0].OrderID)
	assert.Equal(t, "second@example.com", entries[0].BuyerEmail)
	assert.Equal(t, "Second Buyer", entries[0].BuyerName)
	assert.True(t, entries[0].DeliveredAt.Equal(base.Add(time.Minute)))
	assert.Equal(t, "1001", entries[1].OrderID)
}

func TestRecent_LimitAndDefault(t *testing.T) {
	store := NewStore(testDB(t))
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		_, err := store.RecordDelivery(ctx, "buyer@example.com", "Buyer", "1001", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// Non-positive limit falls back to the default window.
	entries, err = store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRecordDelivery_RejectsIncompleteRows(t *testing.T) {
	store := NewStore(testDB(t))
	ctx := context.Background()

	_, err := store.RecordDelivery(ctx, "", "Buyer", "1001", time.Now())
	assert.Error(t, err)

	_, err = store.RecordDelivery(ctx, "buyer@example.com", "Buyer", "", time.Now())
	assert.Error(t, err)
}

func TestRecent_MalformedTimestampIsAnError(t *testing.T) {
	db := testDB(t)
	store := NewStore(db)

	_, err := db.Exec(`
INSERT INTO delivery_ledger(id, buyer_email, buyer_name, order_id, delivered_at)
VALUES('corrupt-row', 'buyer@example.com', 'Buyer', '1001', 'yesterday');
`)
	require.NoError(t, err)

	_, err = store.Recent(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delivered_at")
	assert.Contains(t, err.Error(), "corrupt-row")
}

func TestCount(t *testing.T) {
	store := NewStore(testDB(t))
	ctx := context.Background()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = store.RecordDelivery(ctx, "buyer@example.com", "Buyer", "1001", time.Now())
	require.NoError(t, err)

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSink_KeepsOnlyDeliveries(t *testing.T) {
	store := NewStore(testDB(t))
	sink := NewSink(store)

	require.NoError(t, sink.Write(audit.Event{
		Time:    time.Now(),
		Level:   audit.LevelInfo,
		Message: "Processing order",
	}))

	require.NoError(t, sink.Write(audit.Event{
		Time:      time.Now(),
		Level:     audit.LevelInfo,
		Message:   "License generated for: Ann Lee (buyer@example.com) - Order: 1001",
		OrderID:   "1001",
		Buyer:     "buyer@example.com",
		BuyerName: "Ann Lee",
		Delivered: true,
	}))

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the delivery event is persisted")
}
