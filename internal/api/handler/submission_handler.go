package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"roundjudge/internal/api/middleware"
	"roundjudge/internal/common"
	"roundjudge/internal/domain/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// IdempotencyHeader lets a client mark a manual submit and the deadline
// auto-submit of the same attempt as one submission.
const IdempotencyHeader = "Idempotency-Key"

type Evaluator interface {
	Submit(ctx context.Context, req model.SubmitRequest) (*model.SubmitResult, error)
	Run(ctx context.Context, req model.RunRequest) (*model.RunResult, error)
}

type JobQueue interface {
	Enqueue(ctx context.Context, req model.SubmitRequest) (*model.SubmissionJob, error)
	Job(ctx context.Context, userID, jobID string) (*model.SubmissionJob, error)
}

type SubmissionHandler struct {
	evaluator Evaluator
	jobs      JobQueue
	validator *validator.Validate
}

func NewSubmissionHandler(evaluator Evaluator, jobs JobQueue) *SubmissionHandler {
	return &SubmissionHandler{evaluator: evaluator, jobs: jobs, validator: validator.New()}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/run", h.runCode)
	r.Post("/submit", h.submit)
	r.Post("/submit/async", h.submitAsync)
	r.Get("/jobs/{jobID}", h.getJob)
}

type runCodeRequest struct {
	Code     string `json:"code" validate:"required"`
	Language string `json:"language" validate:"required"`
	Stdin    string `json:"stdin"`
}

type submitRequest struct {
	RoundID  int    `json:"roundId" validate:"required,min=1"`
	Code     string `json:"code" validate:"required"`
	TimeLeft int    `json:"timeLeft" validate:"min=0"`
}

func (h *SubmissionHandler) runCode(w http.ResponseWriter, r *http.Request) {
	var req runCodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.evaluator.Run(r.Context(), model.RunRequest{Code: req.Code, Language: req.Language, Stdin: req.Stdin})
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	subReq, ok := h.submitRequest(w, r)
	if !ok {
		return
	}

	res, err := h.evaluator.Submit(r.Context(), subReq)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *SubmissionHandler) submitAsync(w http.ResponseWriter, r *http.Request) {
	subReq, ok := h.submitRequest(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.Enqueue(r.Context(), subReq)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func (h *SubmissionHandler) getJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	job, err := h.jobs.Job(r.Context(), userID, chi.URLParam(r, "jobID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, job)
}

func (h *SubmissionHandler) submitRequest(w http.ResponseWriter, r *http.Request) (model.SubmitRequest, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return model.SubmitRequest{}, false
	}

	var req submitRequest
	if !h.decode(w, r, &req) {
		return model.SubmitRequest{}, false
	}
	return model.SubmitRequest{
		UserID:          userID,
		RoundID:         req.RoundID,
		Code:            req.Code,
		TimeLeftSeconds: req.TimeLeft,
		IdempotencyKey:  r.Header.Get(IdempotencyHeader),
	}, true
}

func (h *SubmissionHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}
