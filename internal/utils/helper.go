package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidID = errors.New("id must be a positive integer")

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// ParseID parses a positive int64 path segment.
func ParseID(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidID
	}
	return n, nil
}

// QueryInt reads an integer query parameter, returning fallback when absent.
func QueryInt(r *http.Request, key string, fallback int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func WriteJSON(w http.ResponseWriter, code int, success bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(APIResponse{
		Success:   success,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func WriteJSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, false, message, nil)
}
