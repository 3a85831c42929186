package sandbox

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/khomabhena/h5-airtime/internal/logger"
)

// ErrorResponse is the JSON error body returned by the merchant payment mock.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondJSON sends payload with the given status code.
func respondJSON(w http.ResponseWriter, r *http.Request, statusCode int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.ContextRequestLogger(r.Context()).Error("failed to marshal response",
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(data)
}

// respondError sends a merchant-API-style error body.
func respondError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	respondJSON(w, r, statusCode, ErrorResponse{Code: code, Message: message})
}

// vasEnvelope is the response wrapper used by every VAS mock endpoint.
type vasEnvelope struct {
	Status        string `json:"Status"`
	ResultMessage string `json:"ResultMessage,omitempty"`
}

// respondVASError sends a VAS-style ERROR envelope. The aggregator reports
// most failures with HTTP 200 and an ERROR status, so statusCode is usually
// http.StatusOK.
func respondVASError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	respondJSON(w, r, statusCode, vasEnvelope{Status: "ERROR", ResultMessage: message})
}
