package http

import (
	"encoding/json"
	"net/http"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

const pollTokenHeader = "X-Poll-Token"

type VoteHandler struct {
	service ports.VoteService
	polls   ports.PollService
}

func NewVoteHandler(service ports.VoteService, polls ports.PollService) *VoteHandler {
	return &VoteHandler{
		service: service,
		polls:   polls,
	}
}

type voteRequest struct {
	Input           *string `json:"input"`
	AnswerOptionIDs []int64 `json:"answer_option_ids"`
}

// VoteOnPoll godoc
// @Summary      Votes on a poll
// @Description  Creates the caller's vote or replaces the one already cast. Callers that are not invited need the poll token in the `X-Poll-Token` header.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      400
// @Failure      403
// @Failure      404
// @Failure      409
// @Router       /polls/{id}/vote [put]
func (h *VoteHandler) VoteOnPoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}
	pollID, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid poll id", http.StatusBadRequest)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.checkAccess(r, pollID, userID); err != nil {
		writeError(w, err)
		return
	}

	vote, err := h.service.UpsertVote(r.Context(), ports.VoteInput{
		PollID:          pollID,
		ParticipantID:   userID,
		Input:           req.Input,
		AnswerOptionIDs: req.AnswerOptionIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, vote)
}

func (h *VoteHandler) GetMyVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}
	pollID, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid poll id", http.StatusBadRequest)
		return
	}

	vote, err := h.service.GetVoteForParticipant(r.Context(), pollID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, vote)
}

// ListVotes is restricted to the poll author.
func (h *VoteHandler) ListVotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}
	pollID, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid poll id", http.StatusBadRequest)
		return
	}

	poll, err := h.polls.GetPoll(r.Context(), pollID)
	if err != nil {
		writeError(w, err)
		return
	}
	if poll.AuthorID != userID {
		writeError(w, domain.ErrNotPollAuthor)
		return
	}

	votes, err := h.service.ListVotes(r.Context(), ports.VoteFilter{
		PollID: pollID,
		Limit:  intQuery(r, "limit"),
		Offset: intQuery(r, "offset"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if votes == nil {
		votes = []*domain.Vote{}
	}

	writeJSON(w, http.StatusOK, votes)
}

// checkAccess lets a user vote on public polls, on polls they are invited
// to, or when they present the poll's capability token.
func (h *VoteHandler) checkAccess(r *http.Request, pollID, userID int64) error {
	poll, err := h.polls.GetPoll(r.Context(), pollID)
	if err != nil {
		return err
	}
	if poll.IsInvited(userID) || poll.AuthorID == userID {
		return nil
	}
	if token := r.Header.Get(pollTokenHeader); token != "" && token == poll.Token {
		return nil
	}
	return domain.ErrForbidden
}
