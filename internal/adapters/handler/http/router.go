package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Auth   *Authenticator
	Polls  *PollHandler
	Votes  *VoteHandler
	Groups *GroupHandler
	Users  *UserHandler
}

func NewHandler(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("welcome"))
		})

		r.Post("/password-reset", h.Users.RequestPasswordReset)

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.Middleware)

			r.Get("/me", h.Users.GetMe)

			r.Route("/polls", func(r chi.Router) {
				r.Get("/", h.Polls.ListPolls)
				r.Post("/", h.Polls.CreatePoll)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Polls.GetPoll)
					r.Put("/", h.Polls.EditPoll)
					r.Delete("/", h.Polls.DeletePoll)
					r.Post("/post", h.Polls.PostPoll)
					r.Post("/start", h.Polls.StartPoll)
					r.Post("/end", h.Polls.EndPoll)
					r.Put("/invited-users", h.Polls.UpdateInvitedUsers)
					r.Post("/notifications", h.Polls.SendNotification)
					r.Get("/results", h.Polls.GetResults)

					r.Put("/vote", h.Votes.VoteOnPoll)
					r.Get("/vote", h.Votes.GetMyVote)
					r.Get("/votes", h.Votes.ListVotes)
				})
			})

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", h.Groups.CreateGroup)
				r.Get("/{id}", h.Groups.GetGroup)
			})
		})
	})

	return r
}
