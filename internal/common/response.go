package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "failed to marshal response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

// RespondWithError maps a domain error onto its HTTP status. Structured
// validation failures carry their details so the client can show which
// language and case rejected the draft.
func RespondWithError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var vErr *ValidationFailedError
	if errors.As(err, &vErr) {
		resp.Details = vErr
	}
	RespondWithJSON(w, HTTPStatusFromError(err), resp)
}

func RespondWithMessage(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}
