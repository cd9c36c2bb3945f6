package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"codearena/internal/api/middleware"
	"codearena/internal/app/service"
	"codearena/internal/common"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(ss *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/", h.createSubmission)
	r.Post("/run", h.runCode)
	r.Get("/", h.listMySubmissions)
	r.Get("/usage", h.usage)
	r.Get("/{submissionID}", h.getSubmission)
}

func (h *SubmissionHandler) createSubmission(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := identity(r)
	if !ok {
		common.RespondWithMessage(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var req service.CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}

	submission, err := h.submissionService.CreateSubmission(r.Context(), userID, role, req)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	// 202: judging is asynchronous, the client polls the resource.
	common.RespondWithJSON(w, http.StatusAccepted, submission)
}

func (h *SubmissionHandler) runCode(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := identity(r)
	if !ok {
		common.RespondWithMessage(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var req service.RunCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}

	outcome, err := h.submissionService.RunCode(r.Context(), userID, role, req)
	if err != nil {
		if errors.Is(err, common.ErrPollTimeout) && outcome != nil {
			// Surface the partial results alongside the timeout; the
			// incomplete cases carry explicit markers.
			common.RespondWithJSON(w, http.StatusGatewayTimeout, map[string]any{
				"error":   err.Error(),
				"outcome": outcome,
			})
			return
		}
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, outcome)
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := identity(r)
	if !ok {
		common.RespondWithMessage(w, http.StatusUnauthorized, "missing user context")
		return
	}

	sub, err := h.submissionService.GetSubmission(r.Context(), userID, role, chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) listMySubmissions(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := identity(r)
	if !ok {
		common.RespondWithMessage(w, http.StatusUnauthorized, "missing user context")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	subs, total, err := h.submissionService.ListMySubmissions(r.Context(), userID, page, pageSize)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{
		"submissions": subs,
		"total":       total,
		"page":        page,
	})
}

func (h *SubmissionHandler) usage(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := identity(r)
	if !ok {
		common.RespondWithMessage(w, http.StatusUnauthorized, "missing user context")
		return
	}

	record, err := h.submissionService.Usage(r.Context(), userID)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, record)
}

func identity(r *http.Request) (userID, role string, ok bool) {
	userID, ok = middleware.UserIDFromContext(r.Context())
	if !ok {
		return "", "", false
	}
	role, ok = middleware.UserRoleFromContext(r.Context())
	return userID, role, ok
}
