package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/diplomacy/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	eng, st := deps.Engine, deps.Store

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Diplomacy API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, map[string]health.Checker{
		"sqlite": health.DBChecker{DB: deps.DB},
	}).Routes())

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", handleRegister(logger, st, deps.SessionTTL))
		r.Post("/login", handleLogin(logger, st, deps.SessionTTL))
		r.Post("/logout", handleLogout(st))

		r.Group(func(r chi.Router) {
			r.Use(requireUser(st))
			r.Get("/me", handleMe())

			r.Get("/games", handleListGames(logger, eng))
			r.Post("/games", handleCreateGame(logger, eng, st))
			r.Route("/games/{gameID}", func(r chi.Router) {
				r.Get("/state", handleGameState(logger, eng, st))
				r.Post("/advance", handleAdvance(logger, eng, st))
				r.Post("/proposals", handleCreateProposal(logger, eng, st))
				r.Post("/acknowledge", handleAcknowledge(logger, eng, st))
				r.Post("/discussions", handleLookupDiscussion(logger, eng, st))
				r.Get("/events", handleEvents(logger, eng, st))
			})

			r.Post("/proposals/{proposalID}/votes", handleVote(logger, eng, st))

			r.Route("/discussions/{discussionID}", func(r chi.Router) {
				r.Put("/participants", handleUpdateDiscussion(logger, eng, st))
				r.Post("/messages", handleSendMessage(logger, eng, st))
				r.Get("/ws", handleDiscussionSocket(logger, eng, st))
			})
		})
	})

	if deps.WebDir != "" {
		if info, err := os.Stat(deps.WebDir); err == nil && info.IsDir() {
			logger.Info("serving web client", "dir", deps.WebDir)
			r.NotFound(handleSPA(deps.WebDir))
		}
	}
}
