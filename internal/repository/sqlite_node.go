package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/wbs/internal/db"
	"github.com/alexanderramin/wbs/internal/domain"
)

// nodeColumns is the canonical SELECT column list for wbs_nodes.
const nodeColumns = `id, project_id, parent_id, name, level, order_index,
		cost, total_cost, start_explicit, start_inherited, end_explicit, end_inherited,
		duration_days, status, responsible, description, trl, created_at, updated_at`

// SQLiteNodeRepo implements NodeRepo using a SQLite database.
type SQLiteNodeRepo struct {
	db db.DBTX
}

// NewSQLiteNodeRepo creates a new SQLiteNodeRepo.
func NewSQLiteNodeRepo(conn db.DBTX) *SQLiteNodeRepo {
	return &SQLiteNodeRepo{db: conn}
}

func (r *SQLiteNodeRepo) Create(ctx context.Context, n *domain.TreeNode) error {
	query := `INSERT INTO wbs_nodes (` + nodeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.ProjectID,
		n.ParentID, // *string: nil becomes SQL NULL
		n.Name,
		int(n.Level),
		n.OrderIndex,
		n.Cost,
		n.TotalCost,
		nullableTimeToString(n.Start.Explicit, dateLayout),
		nullableTimeToString(n.Start.Inherited, dateLayout),
		nullableTimeToString(n.End.Explicit, dateLayout),
		nullableTimeToString(n.End.Inherited, dateLayout),
		nullableIntToValue(n.DurationDays),
		string(n.Status),
		n.Responsible,
		n.Description,
		nullableIntToValue(n.TRL),
		n.CreatedAt.Format(time.RFC3339),
		n.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting node %q: %w", n.Name, err)
	}
	return nil
}

func (r *SQLiteNodeRepo) GetByID(ctx context.Context, id string) (*domain.TreeNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM wbs_nodes WHERE id = ?`
	n, err := scanNode(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node: %w", ErrNotFound)
		}
		return nil, err
	}
	return n, nil
}

// ListByProject returns the project's nodes ordered top-down, siblings by
// order_index, so parents always precede their children.
func (r *SQLiteNodeRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.TreeNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM wbs_nodes WHERE project_id = ?
		ORDER BY level, order_index, created_at`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing nodes by project: %w", err)
	}
	defer rows.Close()

	var nodes []*domain.TreeNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}
	return nodes, nil
}

func (r *SQLiteNodeRepo) DeleteByProject(ctx context.Context, projectID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM wbs_nodes WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("deleting nodes of project %s: %w", projectID, err)
	}
	return nil
}

func scanNode(row rowScanner) (*domain.TreeNode, error) {
	var n domain.TreeNode
	var level int
	var status, createdAtStr, updatedAtStr string
	var parentID sql.NullString
	var startExplicit, startInherited, endExplicit, endInherited sql.NullString
	var durationDays, trl sql.NullInt64

	err := row.Scan(
		&n.ID, &n.ProjectID, &parentID, &n.Name, &level, &n.OrderIndex,
		&n.Cost, &n.TotalCost, &startExplicit, &startInherited, &endExplicit, &endInherited,
		&durationDays, &status, &n.Responsible, &n.Description, &trl, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning node row: %w", err)
	}

	if parentID.Valid {
		pid := parentID.String
		n.ParentID = &pid
	}
	n.Level = domain.Level(level)
	n.Status = domain.Status(status)
	n.Start = domain.ScheduleDate{
		Explicit:  parseNullableTime(startExplicit, dateLayout),
		Inherited: parseNullableTime(startInherited, dateLayout),
	}
	n.End = domain.ScheduleDate{
		Explicit:  parseNullableTime(endExplicit, dateLayout),
		Inherited: parseNullableTime(endInherited, dateLayout),
	}
	n.DurationDays = nullableIntFromSQL(durationDays)
	n.TRL = nullableIntFromSQL(trl)

	n.CreatedAt, n.UpdatedAt, err = parseTimestamps(createdAtStr, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing node timestamps: %w", err)
	}
	return &n, nil
}
