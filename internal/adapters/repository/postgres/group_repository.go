package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

type groupRepository struct {
	db *sql.DB
}

func NewGroupRepository(db *sql.DB) ports.GroupRepository {
	return &groupRepository{
		db: db,
	}
}

func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO groups (name, owner_id) VALUES ($1, $2) RETURNING id, created_at`,
		group.Name, group.OwnerID,
	).Scan(&group.ID, &group.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrGroupNameTaken
		}
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if len(group.MemberIDs) > 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id)
			 SELECT $1, unnest($2::bigint[])
			 ON CONFLICT DO NOTHING`,
			group.ID, pq.Array(group.MemberIDs),
		)
		if err != nil {
			return fmt.Errorf("failed to insert group members: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, id int64) (*domain.Group, error) {
	group := &domain.Group{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at FROM groups WHERE id = $1`, id,
	).Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	members, err := r.MemberIDs(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	group.MemberIDs = members
	return group, nil
}

func (r *groupRepository) MemberIDs(ctx context.Context, groupIDs []int64) ([]int64, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM group_members WHERE group_id = ANY($1) ORDER BY user_id`,
		pq.Array(groupIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group members: %w", err)
	}
	return ids, nil
}
