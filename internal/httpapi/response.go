package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

const maxBodyBytes = 16 << 20

// messageResponse is the error body understood by the kiosk.
type messageResponse struct {
	Message     string `json:"message"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// notFoundResponse mirrors the "no data yet" body of the feedback lookup.
type notFoundResponse struct {
	Message string   `json:"message"`
	Score   *float64 `json:"score"`
}

func (h *Handlers) jsonResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

func (h *Handlers) errorResponse(w http.ResponseWriter, statusCode int, message, detail string) {
	h.jsonResponse(w, statusCode, messageResponse{Message: message, ErrorDetail: detail})
}

func parseJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
