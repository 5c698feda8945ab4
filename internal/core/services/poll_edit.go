package services

import (
	"context"
	"slices"
	"strings"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

// Edit rewrites a draft or pending poll. Files that the poll no longer
// references afterwards are removed from storage.
func (s *PollService) Edit(ctx context.Context, input ports.EditPollInput) (*domain.Poll, error) {
	current, err := s.authorPoll(ctx, input.PollID, input.ActorID)
	if err != nil {
		return nil, err
	}
	if !current.Status.Editable() {
		return nil, domain.ErrPollNotEditable
	}

	next := *current
	next.Title = strings.TrimSpace(input.Title)
	next.Question = strings.TrimSpace(input.Question)
	next.AnswerType = input.AnswerType
	next.StartDate = input.StartDate
	next.EndDate = input.EndDate
	next.IsPublic = input.IsPublic
	if err := validatePollFields(&next); err != nil {
		return nil, err
	}

	if next.Status == domain.PollStatusPending {
		now := s.clock.Now()
		if next.StartDate == nil || !next.StartDate.After(now) {
			return nil, domain.NewValidationError("a pending poll needs a future start date")
		}
	}

	invited, err := s.resolveInvited(ctx, input.InvitedUserIDs, input.InvitedGroupIDs)
	if err != nil {
		return nil, err
	}
	next.InvitedUserIDs = invited

	uploads, err := s.storeUploads(ctx, input.Background, input.Pictures)
	if err != nil {
		return nil, err
	}

	switch {
	case uploads.background != "":
		next.BackgroundURL = uploads.background
	case input.RemoveBackground:
		next.BackgroundURL = ""
	}

	options, err := buildOptions(next.AnswerType, input.AnswerOptions, uploads, current)
	if err != nil {
		s.deleteFiles(ctx, uploads.all())
		return nil, err
	}
	next.AnswerOptions = options

	if err := s.polls.Update(ctx, &next); err != nil {
		s.deleteFiles(ctx, uploads.all())
		return nil, err
	}

	stale := unreferenced(append(current.FileURLs(), uploads.all()...), next.FileURLs())
	s.deleteFiles(ctx, stale)

	s.logger.Info("poll edited", "poll_id", next.ID, "answer_type", next.AnswerType, "files_removed", len(stale))
	return s.polls.GetByID(ctx, next.ID)
}

// uploads holds the URLs stored for one submission.
type uploads struct {
	background string
	pictures   []string
}

func (u *uploads) all() []string {
	var urls []string
	if u.background != "" {
		urls = append(urls, u.background)
	}
	return append(urls, u.pictures...)
}

func (s *PollService) storeUploads(ctx context.Context, background *ports.UploadedFile, pictures []ports.UploadedFile) (*uploads, error) {
	stored := &uploads{}

	if background != nil {
		url, err := s.files.ResolvePictureURL(ctx, *background)
		if err != nil {
			return nil, err
		}
		stored.background = url
	}

	for _, picture := range pictures {
		url, err := s.files.ResolvePictureURL(ctx, picture)
		if err != nil {
			s.deleteFiles(ctx, stored.all())
			return nil, err
		}
		stored.pictures = append(stored.pictures, url)
	}
	return stored, nil
}

// buildOptions turns the submitted options into answer options. Input polls
// take no options and no pictures. Existing options are matched by id
// against previous, which is nil on creation.
func buildOptions(answerType domain.AnswerType, inputs []ports.AnswerOptionInput, stored *uploads, previous *domain.Poll) ([]domain.AnswerOption, error) {
	if !answerType.HasOptions() {
		if len(stored.pictures) > 0 {
			return nil, domain.NewValidationError("input polls do not take answer pictures")
		}
		return nil, nil
	}

	var known []string
	if previous != nil {
		known = previous.FileURLs()
	}

	options := make([]domain.AnswerOption, 0, len(inputs))
	for i, in := range inputs {
		opt := domain.AnswerOption{
			ID:       in.ID,
			Content:  strings.TrimSpace(in.Content),
			Position: i,
		}
		if opt.Content == "" {
			return nil, domain.NewValidationError("answer option %d has no content", i)
		}

		if opt.ID != 0 {
			if previous == nil {
				return nil, domain.ErrAnswerOptionNotFound
			}
			if _, ok := previous.Option(opt.ID); !ok {
				return nil, domain.ErrAnswerOptionNotFound
			}
		}

		switch {
		case in.ImageIndex != nil:
			idx := *in.ImageIndex
			if idx < 0 || idx >= len(stored.pictures) {
				return nil, domain.NewValidationError("image index %d does not match an uploaded picture", idx)
			}
			opt.PictureURL = stored.pictures[idx]
		case in.PictureURL != "":
			if !slices.Contains(known, in.PictureURL) {
				return nil, domain.NewValidationError("answer option %d references an unknown picture", i)
			}
			opt.PictureURL = in.PictureURL
		}

		options = append(options, opt)
	}

	if len(options) < 2 {
		return nil, domain.NewValidationError("at least two answer options are required")
	}
	return options, nil
}
