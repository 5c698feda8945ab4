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

const voteColumns = `id, poll_id, participant_id, input, answer_option_ids, created_at, updated_at`

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

// Upsert only writes while the poll is ongoing. The poll row is share-locked
// for the statement, so a concurrent completion waits for the vote to commit.
func (r *voteRepository) Upsert(ctx context.Context, vote *domain.Vote) (*domain.Vote, error) {
	query := `
		WITH open_poll AS (
			SELECT id FROM polls WHERE id = $1 AND status = 'ongoing' FOR SHARE
		)
		INSERT INTO votes (poll_id, participant_id, input, answer_option_ids)
		SELECT id, $2::bigint, $3::text, $4::bigint[] FROM open_poll
		ON CONFLICT ON CONSTRAINT votes_poll_participant_key DO UPDATE
		SET input = EXCLUDED.input,
		    answer_option_ids = EXCLUDED.answer_option_ids,
		    updated_at = NOW()
		RETURNING ` + voteColumns

	optionIDs := vote.AnswerOptionIDs
	if optionIDs == nil {
		optionIDs = []int64{}
	}

	saved, err := scanVote(r.db.QueryRowContext(ctx, query,
		vote.PollID, vote.ParticipantID, nullableString(vote.Input), pq.Array(optionIDs),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, err := pollStatus(ctx, r.db, vote.PollID); err != nil {
				return nil, err
			}
			return nil, domain.ErrPollNotOngoing
		}
		return nil, fmt.Errorf("failed to save vote: %w", err)
	}
	return saved, nil
}

func (r *voteRepository) GetByParticipant(ctx context.Context, pollID, participantID int64) (*domain.Vote, error) {
	query := `SELECT ` + voteColumns + ` FROM votes WHERE poll_id = $1 AND participant_id = $2`

	vote, err := scanVote(r.db.QueryRowContext(ctx, query, pollID, participantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVoteNotFound
		}
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return vote, nil
}

func (r *voteRepository) List(ctx context.Context, filter ports.VoteFilter) ([]*domain.Vote, error) {
	query := `SELECT ` + voteColumns + ` FROM votes WHERE ($1 = 0 OR poll_id = $1) AND ($2 = 0 OR participant_id = $2) ORDER BY id ASC`
	args := []any{filter.PollID, filter.ParticipantID}

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
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []*domain.Vote
	for rows.Next() {
		vote, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}
	return votes, nil
}

func (r *voteRepository) VoterIDs(ctx context.Context, pollID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT participant_id FROM votes WHERE poll_id = $1 ORDER BY participant_id`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voters: %w", err)
	}
	return ids, nil
}

func scanVote(row rowScanner) (*domain.Vote, error) {
	var (
		vote      domain.Vote
		input     sql.NullString
		optionIDs pq.Int64Array
	)
	err := row.Scan(&vote.ID, &vote.PollID, &vote.ParticipantID, &input, &optionIDs, &vote.CreatedAt, &vote.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if input.Valid {
		s := input.String
		vote.Input = &s
	}
	vote.AnswerOptionIDs = []int64(optionIDs)
	return &vote, nil
}
