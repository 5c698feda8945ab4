package domain

import (
	"time"
)

type Vote struct {
	ID              int64     `json:"id"`
	PollID          int64     `json:"poll_id"`
	ParticipantID   int64     `json:"participant_id"`
	Input           *string   `json:"input,omitempty"`
	AnswerOptionIDs []int64   `json:"answer_option_ids"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
