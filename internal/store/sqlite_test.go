package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receiptscan/internal/receipt"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sample(owner uuid.UUID, fileName string, createdAt time.Time) Record {
	return Record{
		ID:           uuid.New(),
		OwnerID:      owner,
		FileName:     fileName,
		FilePath:     "/uploads/" + fileName,
		MerchantName: "Walmart",
		TotalAmount:  45.67,
		PurchasedAt:  time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		Confidence:   0.9,
		ItemsJSON:    `[{"name":"Milk","quantity":1,"price":3.99}]`,
		CreatedAt:    createdAt,
	}
}

func TestSQLiteInsertAndLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := uuid.New()

	older := sample(owner, "receipt.pdf", time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	newer := sample(owner, "receipt.pdf", time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC))
	newer.MerchantName = "Target"
	require.NoError(t, s.Insert(ctx, older))
	require.NoError(t, s.Insert(ctx, newer))

	got, err := s.LatestForFile(ctx, owner, "receipt.pdf")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)
	assert.Equal(t, "Target", got.MerchantName)

	rec, err := got.Receipt()
	require.NoError(t, err)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, receipt.Item{Name: "Milk", Quantity: 1, Price: 3.99}, rec.Items[0])
	assert.True(t, rec.IsScanned)
}

func TestSQLiteLatestForUnknownFile(t *testing.T) {
	s := newTestStore(t)
	got, err := s.LatestForFile(context.Background(), uuid.New(), "never-seen.pdf")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteListWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := uuid.New()

	march := sample(owner, "march.pdf", time.Now().UTC())
	april := sample(owner, "april.pdf", time.Now().UTC())
	april.PurchasedAt = time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Insert(ctx, march))
	require.NoError(t, s.Insert(ctx, april))

	got, err := s.List(ctx, owner,
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "march.pdf", got[0].FileName)
}

func TestSQLiteStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := uuid.New()

	first := sample(owner, "a.pdf", time.Now().UTC())
	second := sample(owner, "b.pdf", time.Now().UTC())
	second.TotalAmount = 4.33
	second.PurchasedAt = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Insert(ctx, first))
	require.NoError(t, s.Insert(ctx, second))

	// a different owner's rows must not bleed in
	require.NoError(t, s.Insert(ctx, sample(uuid.New(), "c.pdf", time.Now().UTC())))

	st, err := s.Stats(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Count)
	assert.InDelta(t, 50.0, st.TotalAmount, 0.001)
	assert.InDelta(t, 25.0, st.Average, 0.001)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), st.Earliest)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), st.Latest)
	assert.Equal(t, []MonthCount{{Month: "2024-03", Count: 1}, {Month: "2024-05", Count: 1}}, st.Monthly)
}

func TestSQLiteStatsEmpty(t *testing.T) {
	s := newTestStore(t)
	st, err := s.Stats(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, st.Count)
	assert.Zero(t, st.TotalAmount)
	assert.Zero(t, st.Average)
	assert.True(t, st.Earliest.IsZero())
	assert.True(t, st.Latest.IsZero())
	assert.Empty(t, st.Monthly)
}
