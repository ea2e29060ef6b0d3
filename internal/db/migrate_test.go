package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func columnNames(t *testing.T, db *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := db.Query(`PRAGMA table_info(` + table + `)`)
	require.NoError(t, err)
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, typ string
		var notNull, pk int
		var dflt sql.NullString
		require.NoError(t, rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk))
		cols[name] = true
	}
	require.NoError(t, rows.Err())
	return cols
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	// Run migrations a second time; it must succeed.
	err := Migrate(db)
	require.NoError(t, err)

	// Third time for good measure.
	err = Migrate(db)
	require.NoError(t, err)
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	expected := []string{"projects", "wbs_nodes", "node_dependencies"}
	for _, table := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"idx_wbs_nodes_project",
		"idx_wbs_nodes_parent",
		"idx_node_dependencies_target",
		"idx_projects_short_id",
	}
	for _, idx := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestMigrate_ForeignKeysEnabled(t *testing.T) {
	db := openTestDB(t)

	var fk int
	err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk)
	require.NoError(t, err)
	assert.Equal(t, 1, fk, "foreign keys should be enabled")
}

func TestMigrate_WALModeRequested(t *testing.T) {
	// In-memory SQLite uses "memory" journal mode; WAL only applies to file DBs.
	db := openTestDB(t)

	var mode string
	err := db.QueryRow(`PRAGMA journal_mode`).Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "memory", mode)
}

func TestMigrate_Columns(t *testing.T) {
	db := openTestDB(t)

	projectCols := columnNames(t, db, "projects")
	assert.True(t, projectCols["short_id"])
	assert.True(t, projectCols["root_id"])

	nodeCols := columnNames(t, db, "wbs_nodes")
	for _, c := range []string{"start_explicit", "start_inherited", "end_explicit", "end_inherited", "duration_days", "trl"} {
		assert.True(t, nodeCols[c], "wbs_nodes.%s should exist", c)
	}
}

func seedProject(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO projects (id, name, short_id, created_at, updated_at)
		VALUES ('p1', 'Probe', 'PRB01', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO wbs_nodes (id, project_id, name, level, created_at, updated_at)
		VALUES ('n1', 'p1', 'Probe', 1, '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	require.NoError(t, err)
}

func TestMigrate_NodeCheckConstraints(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db)

	_, err := db.Exec(`INSERT INTO wbs_nodes (id, project_id, parent_id, name, level, created_at, updated_at)
		VALUES ('n2', 'p1', 'n1', 'Too deep', 4, '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	assert.Error(t, err, "level outside 1-3 should be rejected")

	_, err = db.Exec(`INSERT INTO wbs_nodes (id, project_id, parent_id, name, level, status, created_at, updated_at)
		VALUES ('n2', 'p1', 'n1', 'Phase', 2, 'done', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	assert.Error(t, err, "unknown status should be rejected")

	_, err = db.Exec(`INSERT INTO wbs_nodes (id, project_id, parent_id, name, level, status, created_at, updated_at)
		VALUES ('n2', 'p1', 'n1', 'Phase', 2, 'in-progress', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	assert.NoError(t, err)
}

func TestMigrate_ShortIDUniqueWhenSet(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db)

	_, err := db.Exec(`INSERT INTO projects (id, name, short_id, created_at, updated_at)
		VALUES ('p2', 'Other', 'PRB01', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	assert.Error(t, err, "short id already taken")

	for _, id := range []string{"p3", "p4"} {
		_, err = db.Exec(`INSERT INTO projects (id, name, created_at, updated_at)
			VALUES (?, 'Unnamed', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`, id)
		assert.NoError(t, err, "empty short ids do not collide")
	}

	var rootID string
	require.NoError(t, db.QueryRow(`SELECT root_id FROM projects WHERE id = 'p3'`).Scan(&rootID))
	assert.Empty(t, rootID)
}

func TestMigrate_DependencyConstraints(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db)

	_, err := db.Exec(`INSERT INTO node_dependencies (node_id, depends_on_id) VALUES ('n1', 'n1')`)
	assert.Error(t, err, "self dependency should be rejected")

	_, err = db.Exec(`INSERT INTO node_dependencies (node_id, depends_on_id) VALUES ('n1', 'ghost')`)
	assert.Error(t, err, "dangling dependency should be rejected by the foreign key")
}

func TestMigrate_DeletingProjectCascades(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db)

	_, err := db.Exec(`DELETE FROM projects WHERE id = 'p1'`)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM wbs_nodes`).Scan(&count))
	assert.Equal(t, 0, count)
}
