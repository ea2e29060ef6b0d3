package db

import (
	"database/sql"
	"fmt"
)

// Migrate runs all schema migrations. Every statement is idempotent.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id         TEXT PRIMARY KEY,
		short_id   TEXT NOT NULL DEFAULT '',
		name       TEXT NOT NULL,
		currency   TEXT NOT NULL DEFAULT 'USD',
		root_id    TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS wbs_nodes (
		id              TEXT PRIMARY KEY,
		project_id      TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		parent_id       TEXT REFERENCES wbs_nodes(id) ON DELETE CASCADE,
		name            TEXT NOT NULL,
		level           INTEGER NOT NULL CHECK(level BETWEEN 1 AND 3),
		order_index     INTEGER NOT NULL DEFAULT 0,
		cost            REAL NOT NULL DEFAULT 0,
		total_cost      REAL NOT NULL DEFAULT 0,
		start_explicit  TEXT,
		start_inherited TEXT,
		end_explicit    TEXT,
		end_inherited   TEXT,
		duration_days   INTEGER,
		status          TEXT NOT NULL DEFAULT 'not-started'
		                CHECK(status IN ('','not-started','in-progress','completed')),
		responsible     TEXT NOT NULL DEFAULT '',
		description     TEXT NOT NULL DEFAULT '',
		trl             INTEGER,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_short_id ON projects(short_id) WHERE short_id != ''`,

	`CREATE INDEX IF NOT EXISTS idx_wbs_nodes_project ON wbs_nodes(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_wbs_nodes_parent ON wbs_nodes(parent_id)`,

	`CREATE TABLE IF NOT EXISTS node_dependencies (
		node_id       TEXT NOT NULL REFERENCES wbs_nodes(id) ON DELETE CASCADE,
		depends_on_id TEXT NOT NULL REFERENCES wbs_nodes(id) ON DELETE CASCADE,
		position      INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (node_id, depends_on_id),
		CHECK(node_id != depends_on_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_node_dependencies_target ON node_dependencies(depends_on_id)`,
}
