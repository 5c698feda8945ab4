package domain

type PollResult struct {
	PollID     int64             `json:"poll_id"`
	AnswerType AnswerType        `json:"answer_type"`
	Status     PollStatus        `json:"status"`
	TotalVotes int64             `json:"total_votes"`
	Options    []PollOptionStats `json:"options,omitempty"`
	Winners    []AnswerOption    `json:"winners,omitempty"`
	Answers    []string          `json:"answers,omitempty"`
}

type PollOptionStats struct {
	Option     AnswerOption `json:"option"`
	VoteCount  int64        `json:"vote_count"`
	Percentage float64      `json:"percentage"`
}

// WinningOptions returns every option whose vote count equals the maximum.
// Ties are all included. With no votes at all there is no winner.
func WinningOptions(options []AnswerOption) []AnswerOption {
	var max int64
	for _, opt := range options {
		if opt.VoteCount > max {
			max = opt.VoteCount
		}
	}
	if max == 0 {
		return nil
	}

	var winners []AnswerOption
	for _, opt := range options {
		if opt.VoteCount == max {
			winners = append(winners, opt)
		}
	}
	return winners
}

// OptionStats computes per option percentages over the total number of
// selections.
func OptionStats(options []AnswerOption) ([]PollOptionStats, int64) {
	var total int64
	for _, opt := range options {
		total += opt.VoteCount
	}

	stats := make([]PollOptionStats, 0, len(options))
	for _, opt := range options {
		percentage := 0.0
		if total > 0 {
			percentage = (float64(opt.VoteCount) / float64(total)) * 100
		}
		stats = append(stats, PollOptionStats{
			Option:     opt,
			VoteCount:  opt.VoteCount,
			Percentage: percentage,
		})
	}
	return stats, total
}
