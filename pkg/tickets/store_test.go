package tickets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTickets() []Ticket {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []Ticket{
		{ID: "t1", Intent: "Refund request", Slots: map[string]string{"product_name": "laptop", "order_id": "1234567", "reason": "broken"}, CreatedAt: base},
		{ID: "t2", Intent: "Product inquiry → Warranty", Slots: map[string]string{"product_name": "tv", "order_id": "7654321"}, CreatedAt: base.Add(time.Minute)},
		{ID: "t3", Intent: "Billing inquiry", Slots: map[string]string{"order_id": "5555555"}, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "t4", Intent: "Product inquiry", Slots: map[string]string{"product_name": "fan", "order_id": "1111111"}, CreatedAt: base.Add(3 * time.Minute)},
	}
}

func newSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn, err := SQLiteDSNForFile(filepath.Join(t.TempDir(), "tickets.db"))
	require.NoError(t, err)
	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	for _, tk := range sampleTickets() {
		require.NoError(t, s.Append(ctx, tk))
	}
	require.Error(t, s.Append(ctx, Ticket{Intent: "Billing inquiry"}))

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, []string{"t1", "t2", "t3", "t4"}, ids(all))
	require.Equal(t, "laptop", all[0].Slots["product_name"])
	require.True(t, all[1].CreatedAt.Equal(sampleTickets()[1].CreatedAt))

	inquiries, err := s.List(ctx, "Product inquiry", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"t2", "t4"}, ids(inquiries))

	bySub, err := s.List(ctx, "Product inquiry → Availability", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"t2", "t4"}, ids(bySub))

	limited, err := s.List(ctx, "", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"t1", "t2"}, ids(limited))

	none, err := s.List(ctx, "Cancellation request", 0)
	require.NoError(t, err)
	require.Empty(t, none)
}

func ids(ts []Ticket) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStore_ListReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Append(context.Background(), sampleTickets()[0]))
	got, err := s.List(context.Background(), "", 0)
	require.NoError(t, err)
	got[0].Slots["product_name"] = "changed"

	again, err := s.List(context.Background(), "", 0)
	require.NoError(t, err)
	require.Equal(t, "laptop", again[0].Slots["product_name"])
}

func TestSQLiteStore(t *testing.T) {
	testStore(t, newSQLite(t))
}

func TestSQLiteStore_DuplicateIDIgnored(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()
	tk := sampleTickets()[0]
	require.NoError(t, s.Append(ctx, tk))
	tk.Intent = "Billing inquiry"
	require.NoError(t, s.Append(ctx, tk))

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Refund request", all[0].Intent)
}

func TestSQLiteStore_ReopenKeepsTickets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.db")
	dsn, err := SQLiteDSNForFile(path)
	require.NoError(t, err)

	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), sampleTickets()[2]))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	all, err := s.List(context.Background(), "", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"t3"}, ids(all))

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSQLiteDSNForFile(t *testing.T) {
	_, err := SQLiteDSNForFile("")
	require.Error(t, err)
	_, err = NewSQLiteStore("")
	require.Error(t, err)
}

func TestBaseIntent(t *testing.T) {
	require.Equal(t, "Product inquiry", BaseIntent("Product inquiry → Warranty"))
	require.Equal(t, "Refund request", BaseIntent("Refund request"))
}

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "support_logs.xlsx")
	require.NoError(t, ExportXLSX(path, sampleTickets()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	require.ElementsMatch(t, []string{"Refund request", "Product inquiry", "Billing inquiry"}, f.GetSheetList())

	rows, err := f.GetRows("Product inquiry")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"order_id", "product_name", "intent", "timestamp"}, rows[0])
	require.Equal(t, "7654321", rows[1][0])
	require.Equal(t, "tv", rows[1][1])
	require.Equal(t, "Product inquiry → Warranty", rows[1][2])

	rows, err = f.GetRows("Refund request")
	require.NoError(t, err)
	require.Equal(t, []string{"order_id", "product_name", "reason", "intent", "timestamp"}, rows[0])
}

func TestExportXLSX_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, ExportXLSX(path, nil))
	_, err := os.Stat(path)
	require.NoError(t, err)
}
