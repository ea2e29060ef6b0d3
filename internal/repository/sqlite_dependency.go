package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/wbs/internal/db"
)

// SQLiteDependencyRepo implements DependencyRepo using a SQLite database.
type SQLiteDependencyRepo struct {
	db db.DBTX
}

// NewSQLiteDependencyRepo creates a new SQLiteDependencyRepo.
func NewSQLiteDependencyRepo(conn db.DBTX) *SQLiteDependencyRepo {
	return &SQLiteDependencyRepo{db: conn}
}

func (r *SQLiteDependencyRepo) Create(ctx context.Context, nodeID, dependsOnID string, position int) error {
	query := `INSERT INTO node_dependencies (node_id, depends_on_id, position) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, nodeID, dependsOnID, position); err != nil {
		return fmt.Errorf("inserting dependency %s -> %s: %w", nodeID, dependsOnID, err)
	}
	return nil
}

func (r *SQLiteDependencyRepo) ListByProject(ctx context.Context, projectID string) (map[string][]string, error) {
	query := `SELECT d.node_id, d.depends_on_id
		FROM node_dependencies d
		JOIN wbs_nodes n ON n.id = d.node_id
		WHERE n.project_id = ?
		ORDER BY d.node_id, d.position`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing dependencies: %w", err)
	}
	defer rows.Close()

	deps := make(map[string][]string)
	for rows.Next() {
		var nodeID, dependsOnID string
		if err := rows.Scan(&nodeID, &dependsOnID); err != nil {
			return nil, fmt.Errorf("scanning dependency: %w", err)
		}
		deps[nodeID] = append(deps[nodeID], dependsOnID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dependencies: %w", err)
	}
	return deps, nil
}

func (r *SQLiteDependencyRepo) DeleteByProject(ctx context.Context, projectID string) error {
	query := `DELETE FROM node_dependencies
		WHERE node_id IN (SELECT id FROM wbs_nodes WHERE project_id = ?)`
	if _, err := r.db.ExecContext(ctx, query, projectID); err != nil {
		return fmt.Errorf("deleting dependencies of project %s: %w", projectID, err)
	}
	return nil
}
