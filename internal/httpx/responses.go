package httpx

import (
	"encoding/json"
	"net/http"
)

type SuccessResponse struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   ErrorResponseBody `json:"error"`
	Meta    map[string]any    `json:"meta,omitempty"`
}

type ErrorResponseBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// buildMeta merges the request id into the caller's meta map.
func buildMeta(r *http.Request, customMeta map[string]any) map[string]any {
	var requestID string
	if r != nil {
		requestID = RequestIDFrom(r)
	}
	if requestID == "" && len(customMeta) == 0 {
		return nil
	}
	meta := make(map[string]any, len(customMeta)+1)
	for k, v := range customMeta {
		meta[k] = v
	}
	if requestID != "" {
		meta["request_id"] = requestID
	}
	return meta
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func JSONSuccess(w http.ResponseWriter, r *http.Request, data any, meta map[string]any) {
	writeJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Data:    data,
		Meta:    buildMeta(r, meta),
	})
}

func JSONCreated(w http.ResponseWriter, r *http.Request, data any, meta map[string]any) {
	writeJSON(w, http.StatusCreated, SuccessResponse{
		Success: true,
		Data:    data,
		Meta:    buildMeta(r, meta),
	})
}

func JSONNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func JSONError(w http.ResponseWriter, r *http.Request, statusCode int, code string, message string, details []ErrorDetail) {
	writeJSON(w, statusCode, ErrorResponse{
		Success: false,
		Error: ErrorResponseBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: buildMeta(r, nil),
	})
}
