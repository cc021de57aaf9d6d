package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so membership
// checks can run inside or outside a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// memberRole returns the user's role in the project. It returns
// ErrNotProjectMember when no active membership row exists.
func memberRole(ctx context.Context, q querier, projectID, userID string) (string, error) {
	const selectRoleQuery = `
SELECT role
FROM project_members
WHERE project_id = $1 AND
      user_id = $2 AND
      state = 'active'
`
	var role string
	err := q.QueryRow(ctx, selectRoleQuery, projectID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotProjectMember
		}
		return "", err
	}
	return role, nil
}

// activeMemberIDs lists the user ids of the project's active members,
// used for task fan-out and change feed audiences.
func activeMemberIDs(ctx context.Context, q querier, projectID string) ([]string, error) {
	const selectMembersQuery = `
SELECT user_id
FROM project_members
WHERE project_id = $1 AND
      state = 'active'
`
	rows, err := q.Query(ctx, selectMembersQuery, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
