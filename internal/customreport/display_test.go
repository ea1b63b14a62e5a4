package customreport

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func displayResult() Result {
	return Result{
		Columns: []FieldSpec{
			{Key: "number", Type: FieldText},
			{Key: "status", Type: FieldText},
			{Key: "issue_date", Type: FieldDate},
			{Key: "total", Type: FieldCurrency},
		},
		Rows: []Row{
			{"number": "INV-1", "status": "paid", "issue_date": time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), "total": decimal.RequireFromString("500.25")},
			{"number": "INV-2", "status": "unpaid", "issue_date": time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "total": decimal.RequireFromString("90")},
			{"number": "INV-3", "status": "paid", "issue_date": nil, "total": decimal.RequireFromString("1500")},
		},
	}
}

func TestSortRowsByColumnType(t *testing.T) {
	sorted := SortRows(displayResult(), "total", true)
	require.Equal(t, []string{"INV-3", "INV-1", "INV-2"}, numbers(sorted.Rows))

	byDate := SortRows(displayResult(), "issue_date", false)
	require.Equal(t, []string{"INV-2", "INV-1", "INV-3"}, numbers(byDate.Rows))

	original := displayResult()
	SortRows(original, "total", false)
	require.Equal(t, "INV-1", original.Rows[0]["number"])
}

func TestTotalsAndGroupBy(t *testing.T) {
	result := displayResult()
	totals := Totals(result)
	require.Len(t, totals, 1)
	require.True(t, totals["total"].Equal(decimal.RequireFromString("2090.25")))

	groups := GroupBy(result, "status")
	require.Len(t, groups, 2)
	require.Equal(t, "paid", groups[0].Key)
	require.Len(t, groups[0].Rows, 2)
	require.True(t, groups[0].Totals["total"].Equal(decimal.RequireFromString("2000.25")))
	require.Equal(t, "unpaid", groups[1].Key)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "")
	ctx := context.Background()
	org := uuid.New()

	configs, err := store.Load(ctx, org)
	require.NoError(t, err)
	require.Empty(t, configs)

	saved := []Config{invoiceConfig(FilterSpec{Field: "total", Operator: "greater_than", Value: "1000"})}
	saved[0].ID = uuid.New()
	require.NoError(t, store.Save(ctx, org, saved))
	require.True(t, mr.Exists("customreports:"+org.String()))

	loaded, err := store.Load(ctx, org)
	require.NoError(t, err)
	require.Equal(t, saved, loaded)

	other, err := store.Load(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestMemoryStoreCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	org := uuid.New()
	configs := []Config{invoiceConfig()}
	require.NoError(t, store.Save(ctx, org, configs))
	configs[0].Name = "mutated"

	loaded, err := store.Load(ctx, org)
	require.NoError(t, err)
	require.Equal(t, "Big invoices", loaded[0].Name)
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		fieldType FieldType
		value     any
		want      string
	}{
		{FieldCurrency, decimal.RequireFromString("1500.5"), "1500.50"},
		{FieldNumber, decimal.NewFromInt(3), "3"},
		{FieldDate, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "2024-06-01"},
		{FieldDate, time.Time{}, ""},
		{FieldBoolean, true, "true"},
		{FieldText, "Acme", "Acme"},
		{FieldCurrency, nil, ""},
	}
	for _, tc := range cases {
		if got := FormatValue(tc.fieldType, tc.value); got != tc.want {
			t.Fatalf("FormatValue(%s, %v) = %q, want %q", tc.fieldType, tc.value, got, tc.want)
		}
	}
}
