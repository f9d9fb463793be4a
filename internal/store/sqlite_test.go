package store

import (
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkiosk/priceboard/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "priceboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_InsertPriceFacts_Idempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	facts := []model.PriceFact{
		{OrderID: 1, Figure: 12.5, Description: "diesel", Quote: "Test quote"},
		{OrderID: 2, Figure: 1.89, Description: "petrol", Quote: "Test quote"},
		{OrderID: 3, Figure: 7, Description: "lpg", Quote: "Test quote"},
	}

	n, err := s.InsertPriceFacts(ctx, facts)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Same batch again: every row collides on (order_id, description, quote).
	n, err = s.InsertPriceFacts(ctx, facts)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	stored, err := s.LatestPriceFacts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestSQLiteStore_LatestPriceFacts_NewestSurrogateKeyFirst(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		_, err := s.InsertPriceFacts(ctx, []model.PriceFact{
			{OrderID: i, Figure: float64(i), Description: "fuel", Quote: "q"},
		})
		require.NoError(t, err)
	}

	facts, err := s.LatestPriceFacts(ctx, 5)
	require.NoError(t, err)
	require.Len(t, facts, 5)
	for i, want := range []int64{10, 9, 8, 7, 6} {
		assert.Equal(t, want, facts[i].ID)
	}
}

func TestSQLiteStore_InsertPriceFacts_NaNRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := s.InsertPriceFacts(ctx, []model.PriceFact{
		{OrderID: 1, Figure: math.NaN(), Description: "unknown", Quote: "q"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	facts, err := s.LatestPriceFacts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.True(t, math.IsNaN(facts[0].Figure))
}

func TestSQLiteStore_Users(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "a@b.com", "hash")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	_, err = s.CreateUser(ctx, "a@b.com", "otherhash")
	require.ErrorIs(t, err, ErrConflict)

	got, err := s.GetUserByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = s.GetUserByEmail(ctx, "missing@b.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_DisplayLifecycle(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "owner@b.com", "hash")
	require.NoError(t, err)
	other, err := s.CreateUser(ctx, "other@b.com", "hash")
	require.NoError(t, err)

	payload := json.RawMessage(`{"brightness":80,"layout":"grid"}`)
	d, err := s.CreateDisplay(ctx, u.ID, "lobby screen", payload)
	require.NoError(t, err)

	got, err := s.GetDisplay(ctx, u.ID, d.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got.Payload))

	// Another user's ID scopes the display out of reach.
	_, err = s.GetDisplay(ctx, other.ID, d.ID)
	require.ErrorIs(t, err, ErrNotFound)

	list, err := s.ListDisplays(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	updated, err := s.UpdateDisplay(ctx, u.ID, d.ID, "lobby screen v2", json.RawMessage(`{"brightness":50}`))
	require.NoError(t, err)
	assert.Equal(t, "lobby screen v2", updated.Name)
	assert.JSONEq(t, `{"brightness":50}`, string(updated.Payload))

	require.ErrorIs(t, s.DeleteDisplay(ctx, other.ID, d.ID), ErrNotFound)
	require.NoError(t, s.DeleteDisplay(ctx, u.ID, d.ID))

	list, err = s.ListDisplays(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
