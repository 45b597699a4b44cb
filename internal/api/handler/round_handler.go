package handler

import (
	"context"
	"net/http"
	"strconv"

	"roundjudge/internal/api/middleware"
	"roundjudge/internal/common"
	"roundjudge/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type RoundLister interface {
	ListRounds(ctx context.Context, userID string) ([]model.RoundInfo, error)
	Challenge(ctx context.Context, userID string, round int) (*model.Challenge, error)
}

type RoundHandler struct {
	rounds RoundLister
}

func NewRoundHandler(rounds RoundLister) *RoundHandler {
	return &RoundHandler{rounds: rounds}
}

func (h *RoundHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/rounds", h.listRounds)       // GET /api/v1/challenges/rounds
	r.Get("/rounds/{round}", h.getRound) // GET /api/v1/challenges/rounds/2
}

func (h *RoundHandler) listRounds(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	rounds, err := h.rounds.ListRounds(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, rounds)
}

func (h *RoundHandler) getRound(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil || round <= 0 {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid round")
		return
	}

	challenge, err := h.rounds.Challenge(r.Context(), userID, round)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, challenge)
}
