package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertSkipConflicts_EmptyRows(t *testing.T) {
	n, err := InsertSkipConflicts(context.TODO(), nil, InsertConfig{
		Table:        "price_facts",
		Columns:      []string{"order_id", "description"},
		ConflictKeys: []string{"order_id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestInsertSkipConflicts_NoColumns(t *testing.T) {
	_, err := InsertSkipConflicts(context.TODO(), nil, InsertConfig{
		Table:        "price_facts",
		ConflictKeys: []string{"order_id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestInsertSkipConflicts_NoConflictKeys(t *testing.T) {
	_, err := InsertSkipConflicts(context.TODO(), nil, InsertConfig{
		Table:   "price_facts",
		Columns: []string{"order_id", "description"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestInsertSkipConflicts_RowWidthMismatch(t *testing.T) {
	_, err := InsertSkipConflicts(context.TODO(), nil, InsertConfig{
		Table:        "price_facts",
		Columns:      []string{"order_id", "description"},
		ConflictKeys: []string{"order_id"},
	}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row has 1 values, want 2")
}

func TestInsertSkipConflicts_CountsOnlyInserted(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO "price_facts" \("order_id", "description"\) VALUES .+ ON CONFLICT \("order_id"\) DO NOTHING`).
		WithArgs(1, "a", 2, "b").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := InsertSkipConflicts(context.Background(), mock, InsertConfig{
		Table:        "price_facts",
		Columns:      []string{"order_id", "description"},
		ConflictKeys: []string{"order_id"},
	}, [][]any{{1, "a"}, {2, "b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"public.price_facts", `"public"."price_facts"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"id", "figure", "quote"})
	assert.Equal(t, `"id", "figure", "quote"`, result)
}
