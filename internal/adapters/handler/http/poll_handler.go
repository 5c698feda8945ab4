package http

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

const maxUploadSize = 32 << 20

type PollHandler struct {
	service ports.PollService
}

func NewPollHandler(service ports.PollService) *PollHandler {
	return &PollHandler{
		service: service,
	}
}

type answerOptionRequest struct {
	ID         int64  `json:"id"`
	Content    string `json:"content"`
	PictureURL string `json:"picture_url"`
	ImageIndex *int   `json:"image_index"`
}

type pollRequest struct {
	Title            string                `json:"title"`
	Question         string                `json:"question"`
	AnswerType       domain.AnswerType     `json:"answer_type"`
	StartDate        *time.Time            `json:"start_date"`
	EndDate          *time.Time            `json:"end_date"`
	IsPublic         bool                  `json:"is_public"`
	Draft            bool                  `json:"draft"`
	AnswerOptions    []answerOptionRequest `json:"answer_options"`
	InvitedUserIDs   []int64               `json:"invited_user_ids"`
	InvitedGroupIDs  []int64               `json:"invited_group_ids"`
	RemoveBackground bool                  `json:"remove_background"`
}

type invitedUsersRequest struct {
	UserIDs []int64 `json:"user_ids"`
}

type notificationRequest struct {
	Kind ports.NotificationKind `json:"kind"`
}

func (req pollRequest) options() []ports.AnswerOptionInput {
	options := make([]ports.AnswerOptionInput, 0, len(req.AnswerOptions))
	for _, opt := range req.AnswerOptions {
		options = append(options, ports.AnswerOptionInput{
			ID:         opt.ID,
			Content:    opt.Content,
			PictureURL: opt.PictureURL,
			ImageIndex: opt.ImageIndex,
		})
	}
	return options
}

func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}

	var req pollRequest
	background, pictures, err := decodePollRequest(r, &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	poll, err := h.service.Create(r.Context(), ports.CreatePollInput{
		AuthorID:        userID,
		Title:           req.Title,
		Question:        req.Question,
		AnswerType:      req.AnswerType,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		IsPublic:        req.IsPublic,
		Draft:           req.Draft,
		AnswerOptions:   req.options(),
		InvitedUserIDs:  req.InvitedUserIDs,
		InvitedGroupIDs: req.InvitedGroupIDs,
		Background:      background,
		Pictures:        pictures,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, poll)
}

func (h *PollHandler) EditPoll(w http.ResponseWriter, r *http.Request) {
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

	var req pollRequest
	background, pictures, err := decodePollRequest(r, &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	poll, err := h.service.Edit(r.Context(), ports.EditPollInput{
		PollID:           pollID,
		ActorID:          userID,
		Title:            req.Title,
		Question:         req.Question,
		AnswerType:       req.AnswerType,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		IsPublic:         req.IsPublic,
		AnswerOptions:    req.options(),
		InvitedUserIDs:   req.InvitedUserIDs,
		InvitedGroupIDs:  req.InvitedGroupIDs,
		Background:       background,
		RemoveBackground: req.RemoveBackground,
		Pictures:         pictures,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, poll)
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid poll id", http.StatusBadRequest)
		return
	}

	poll, err := h.service.GetPoll(r.Context(), pollID)
	if err != nil {
		writeError(w, err)
		return
	}

	userID, _ := userIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, redactToken(poll, userID))
}

func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ports.PollFilter{
		Status: domain.PollStatus(q.Get("status")),
		Query:  q.Get("q"),
		Limit:  intQuery(r, "limit"),
		Offset: intQuery(r, "offset"),
	}
	if q.Get("mine") == "true" {
		if userID, ok := userIDFromContext(r.Context()); ok {
			filter.AuthorID = userID
		}
	}
	if public := q.Get("public"); public != "" {
		isPublic := public == "true"
		filter.IsPublic = &isPublic
	}

	polls, err := h.service.ListPolls(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if polls == nil {
		polls = []*domain.Poll{}
	}
	userID, _ := userIDFromContext(r.Context())
	for _, poll := range polls {
		redactToken(poll, userID)
	}

	writeJSON(w, http.StatusOK, polls)
}

func (h *PollHandler) PostPoll(w http.ResponseWriter, r *http.Request) {
	h.lifecycleAction(w, r, h.service.Post)
}

func (h *PollHandler) StartPoll(w http.ResponseWriter, r *http.Request) {
	h.lifecycleAction(w, r, h.service.StartNow)
}

func (h *PollHandler) EndPoll(w http.ResponseWriter, r *http.Request) {
	h.lifecycleAction(w, r, h.service.EndNow)
}

func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.Delete(r.Context(), pollID, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PollHandler) UpdateInvitedUsers(w http.ResponseWriter, r *http.Request) {
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

	var req invitedUsersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	poll, err := h.service.UpdateInvitedUsers(r.Context(), pollID, userID, req.UserIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, poll)
}

func (h *PollHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
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

	var req notificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.SendNotification(r.Context(), pollID, userID, req.Kind); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *PollHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	pollID, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid poll id", http.StatusBadRequest)
		return
	}

	result, err := h.service.GetResults(r.Context(), pollID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// redactToken hides the capability token from everyone but the author.
func redactToken(poll *domain.Poll, userID int64) *domain.Poll {
	if poll.AuthorID != userID {
		poll.Token = ""
	}
	return poll
}

type lifecycleFunc func(ctx context.Context, pollID, actorID int64) (*domain.Poll, error)

func (h *PollHandler) lifecycleAction(w http.ResponseWriter, r *http.Request, action lifecycleFunc) {
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

	poll, err := action(r.Context(), pollID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, poll)
}

// decodePollRequest accepts either a JSON body or a multipart form with the
// JSON in a "poll" field plus "background" and "pictures" files.
func decodePollRequest(r *http.Request, req *pollRequest) (*ports.UploadedFile, []ports.UploadedFile, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			return nil, nil, fmt.Errorf("invalid request body")
		}
		return nil, nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, nil, fmt.Errorf("invalid multipart form")
	}
	if err := json.Unmarshal([]byte(r.FormValue("poll")), req); err != nil {
		return nil, nil, fmt.Errorf("invalid poll field")
	}

	var background *ports.UploadedFile
	if headers := r.MultipartForm.File["background"]; len(headers) > 0 {
		file, err := uploadedFile(headers[0])
		if err != nil {
			return nil, nil, err
		}
		background = &file
	}

	var pictures []ports.UploadedFile
	for _, header := range r.MultipartForm.File["pictures"] {
		file, err := uploadedFile(header)
		if err != nil {
			return nil, nil, err
		}
		pictures = append(pictures, file)
	}
	return background, pictures, nil
}

func uploadedFile(header *multipart.FileHeader) (ports.UploadedFile, error) {
	src, err := header.Open()
	if err != nil {
		return ports.UploadedFile{}, fmt.Errorf("failed to open file %s", header.Filename)
	}
	return ports.UploadedFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     src,
	}, nil
}
