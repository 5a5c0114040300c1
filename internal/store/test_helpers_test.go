package store

import (
	"database/sql"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/atomgen/internal/collation"
	"github.com/roach88/atomgen/internal/descriptor"
	"github.com/roach88/atomgen/internal/ir"
	tu "github.com/roach88/atomgen/internal/testutil"
)

// createTestStore opens a fresh store in a temp dir, closed on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// sampleCatalog collates a small schema covering every catalog table:
// a chained state atom, a pulled atom, enum fields and all three signature
// kinds.
func sampleCatalog(t *testing.T) *ir.Catalog {
	t.Helper()
	state := tu.Enum("State",
		descriptor.EnumValue{Name: "OFF", Number: 0},
		descriptor.EnumValue{Name: "ON", Number: 1},
	)
	ble := tu.Message("BleScanStateChanged").
		Chain(1).
		Field("state", 2, descriptor.KindEnum, tu.OfEnum(state), tu.State(descriptor.StateFieldOption{
			ExclusiveState:    true,
			DefaultStateValue: descriptor.Int32(0),
			Nested:            descriptor.Bool(false),
		})).
		Build()
	cpu := tu.Message("CpuTime").
		Field("uid", 1, descriptor.KindInt32, tu.UID()).
		Field("time_ms", 2, descriptor.KindInt64).
		Build()
	wifi := tu.Message("WifiLock").
		Field("uid", 1, descriptor.KindInt32, tu.UID()).
		Field("mode", 2, descriptor.KindInt32).
		Build()

	atoms, diags := collation.Collate(tu.Schema(
		tu.Atom("cpu_time", 10001, cpu),
		tu.Atom("ble_scan_state_changed", 2, ble),
		tu.Atom("wifi_lock", 3, wifi),
	), "")
	require.Zero(t, diags.Len(), diags.All())
	return atoms.Catalog("")
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	require.NoError(t, err)
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             any
		)
		require.NoError(t, rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk))
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	require.NoError(t, err)
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(list []string, item string) bool {
	return slices.Contains(list, item)
}
