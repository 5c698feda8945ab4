package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

const pollColumns = `id, title, question, answer_type, status, start_date, end_date, is_public, background_url, author_id, token, created_at, updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

func (r *pollRepository) Create(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryPoll := `
		INSERT INTO polls (title, question, answer_type, status, start_date, end_date, is_public, background_url, author_id, token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, queryPoll,
		poll.Title, poll.Question, poll.AnswerType, poll.Status, poll.StartDate, poll.EndDate,
		poll.IsPublic, poll.BackgroundURL, poll.AuthorID, poll.Token,
	).Scan(&poll.ID, &poll.CreatedAt, &poll.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	if err := r.insertOptions(ctx, tx, poll.ID, poll.AnswerOptions); err != nil {
		return err
	}
	if err := r.replaceInvitations(ctx, tx, poll.ID, poll.InvitedUserIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id int64) (*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls WHERE id = $1`

	poll, err := scanPoll(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	if err := r.fetchRelations(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

func (r *pollRepository) List(ctx context.Context, filter ports.PollFilter) ([]*domain.Poll, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.AuthorID != 0 {
		add("author_id = $%d", filter.AuthorID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.IsPublic != nil {
		add("is_public = $%d", *filter.IsPublic)
	}
	if filter.Query != "" {
		add("title ILIKE $%d", "%"+filter.Query+"%")
	}

	query := `SELECT ` + pollColumns + ` FROM polls`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

func (r *pollRepository) ListByStatusWindow(ctx context.Context, status domain.PollStatus, field domain.DateField, from, to time.Time) ([]*domain.Poll, error) {
	var column string
	switch field {
	case domain.DateFieldStart:
		column = "start_date"
	case domain.DateFieldEnd:
		column = "end_date"
	default:
		return nil, fmt.Errorf("unsupported date field %q", field)
	}

	query := `SELECT ` + pollColumns + ` FROM polls
		WHERE status = $1 AND ` + column + ` BETWEEN $2 AND $3
		ORDER BY ` + column + ` ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, status, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to scan polls by %s window: %w", column, err)
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

func (r *pollRepository) Update(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The row is only rewritten while it still has the status the caller read.
	query := `
		UPDATE polls
		SET title = $2, question = $3, answer_type = $4, start_date = $5, end_date = $6,
		    is_public = $7, background_url = $8, updated_at = NOW()
		WHERE id = $1 AND status = $9 AND status IN ('draft', 'pending')
		RETURNING updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		poll.ID, poll.Title, poll.Question, poll.AnswerType, poll.StartDate, poll.EndDate,
		poll.IsPublic, poll.BackgroundURL, poll.Status,
	).Scan(&poll.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.updateMissed(ctx, tx, poll.ID)
		}
		return fmt.Errorf("failed to update poll: %w", err)
	}

	keep := []int64{}
	for _, opt := range poll.AnswerOptions {
		if opt.ID != 0 {
			keep = append(keep, opt.ID)
		}
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM answer_options WHERE poll_id = $1 AND NOT (id = ANY($2))`,
		poll.ID, pq.Array(keep),
	)
	if err != nil {
		return fmt.Errorf("failed to delete answer options: %w", err)
	}

	var fresh []domain.AnswerOption
	for i := range poll.AnswerOptions {
		opt := &poll.AnswerOptions[i]
		opt.PollID = poll.ID
		opt.Position = i
		if opt.ID == 0 {
			fresh = append(fresh, *opt)
			continue
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE answer_options SET content = $3, picture_url = $4, position = $5 WHERE id = $1 AND poll_id = $2`,
			opt.ID, poll.ID, opt.Content, opt.PictureURL, opt.Position,
		)
		if err != nil {
			return fmt.Errorf("failed to update answer option: %w", err)
		}
	}

	if err := r.insertOptions(ctx, tx, poll.ID, fresh); err != nil {
		return err
	}
	// Copy generated ids back onto the caller's options.
	j := 0
	for i := range poll.AnswerOptions {
		if poll.AnswerOptions[i].ID == 0 {
			poll.AnswerOptions[i].ID = fresh[j].ID
			j++
		}
	}

	if err := r.replaceInvitations(ctx, tx, poll.ID, poll.InvitedUserIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *pollRepository) Transition(ctx context.Context, t domain.StatusTransition) (bool, error) {
	query := `
		UPDATE polls
		SET status = $3,
		    start_date = COALESCE($4, start_date),
		    end_date = COALESCE($5, end_date),
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	res, err := r.db.ExecContext(ctx, query, t.PollID, t.From, t.To, t.StartDate, t.EndDate)
	if err != nil {
		return false, fmt.Errorf("failed to transition poll %d from %s to %s: %w", t.PollID, t.From, t.To, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read transition result: %w", err)
	}
	return affected == 1, nil
}

func (r *pollRepository) SetInvitedUsers(ctx context.Context, pollID int64, userIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.replaceInvitations(ctx, tx, pollID, userIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *pollRepository) MarkWinners(ctx context.Context, pollID int64, optionIDs []int64) error {
	query := `UPDATE answer_options SET is_winner = (id = ANY($2)) WHERE poll_id = $1`
	if _, err := r.db.ExecContext(ctx, query, pollID, pq.Array(optionIDs)); err != nil {
		return fmt.Errorf("failed to mark winners for poll %d: %w", pollID, err)
	}
	return nil
}

func (r *pollRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM polls WHERE id = $1 AND status <> 'ongoing'`, id)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 1 {
		return nil
	}

	if _, err := pollStatus(ctx, r.db, id); err != nil {
		return err
	}
	return domain.ErrPollDeleteOngoing
}

// updateMissed explains why a guarded Update matched no row.
func (r *pollRepository) updateMissed(ctx context.Context, q queryer, id int64) error {
	status, err := pollStatus(ctx, q, id)
	if err != nil {
		return err
	}
	if status.Editable() {
		return domain.ErrTransitionLost
	}
	return domain.ErrPollNotEditable
}

func pollStatus(ctx context.Context, q queryer, id int64) (domain.PollStatus, error) {
	var status domain.PollStatus
	err := q.QueryRowContext(ctx, `SELECT status FROM polls WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrPollNotFound
		}
		return "", fmt.Errorf("failed to read poll status: %w", err)
	}
	return status, nil
}

func (r *pollRepository) insertOptions(ctx context.Context, q queryer, pollID int64, options []domain.AnswerOption) error {
	query := `
		INSERT INTO answer_options (poll_id, content, picture_url, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	for i := range options {
		opt := &options[i]
		opt.PollID = pollID
		if err := q.QueryRowContext(ctx, query, pollID, opt.Content, opt.PictureURL, opt.Position).Scan(&opt.ID); err != nil {
			return fmt.Errorf("failed to insert answer option: %w", err)
		}
	}
	return nil
}

func (r *pollRepository) replaceInvitations(ctx context.Context, q queryer, pollID int64, userIDs []int64) error {
	// A NULL array would match nothing and keep every old invitation.
	if userIDs == nil {
		userIDs = []int64{}
	}
	_, err := q.ExecContext(ctx,
		`DELETE FROM poll_invitations WHERE poll_id = $1 AND NOT (user_id = ANY($2))`,
		pollID, pq.Array(userIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to delete invitations: %w", err)
	}

	if len(userIDs) == 0 {
		return nil
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO poll_invitations (poll_id, user_id)
		 SELECT $1, unnest($2::bigint[])
		 ON CONFLICT DO NOTHING`,
		pollID, pq.Array(userIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to insert invitations: %w", err)
	}
	return nil
}

func (r *pollRepository) scanPolls(ctx context.Context, rows *sql.Rows) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}
	rows.Close()

	for _, poll := range polls {
		if err := r.fetchRelations(ctx, poll); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

func (r *pollRepository) fetchRelations(ctx context.Context, poll *domain.Poll) error {
	options, err := r.fetchOptions(ctx, poll.ID)
	if err != nil {
		return err
	}
	poll.AnswerOptions = options

	invited, err := r.fetchInvitations(ctx, poll.ID)
	if err != nil {
		return err
	}
	poll.InvitedUserIDs = invited
	return nil
}

// fetchOptions loads the poll's options with their vote counts derived from
// the votes table.
func (r *pollRepository) fetchOptions(ctx context.Context, pollID int64) ([]domain.AnswerOption, error) {
	query := `
		SELECT ao.id, ao.poll_id, ao.content, ao.picture_url, ao.position, ao.is_winner,
		       (SELECT COUNT(*) FROM votes v WHERE v.poll_id = ao.poll_id AND ao.id = ANY(v.answer_option_ids))
		FROM answer_options ao
		WHERE ao.poll_id = $1
		ORDER BY ao.position ASC, ao.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answer options: %w", err)
	}
	defer rows.Close()

	var options []domain.AnswerOption
	for rows.Next() {
		var opt domain.AnswerOption
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Content, &opt.PictureURL, &opt.Position, &opt.IsWinner, &opt.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan answer option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating answer options: %w", err)
	}
	return options, nil
}

func (r *pollRepository) fetchInvitations(ctx context.Context, pollID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM poll_invitations WHERE poll_id = $1 ORDER BY user_id`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invitations: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoll(row rowScanner) (*domain.Poll, error) {
	var (
		poll       domain.Poll
		start, end sql.NullTime
	)
	err := row.Scan(
		&poll.ID, &poll.Title, &poll.Question, &poll.AnswerType, &poll.Status, &start, &end,
		&poll.IsPublic, &poll.BackgroundURL, &poll.AuthorID, &poll.Token, &poll.CreatedAt, &poll.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if start.Valid {
		t := start.Time
		poll.StartDate = &t
	}
	if end.Valid {
		t := end.Time
		poll.EndDate = &t
	}
	return &poll, nil
}
