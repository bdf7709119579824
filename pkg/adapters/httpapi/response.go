package httpapi

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// JSON writes data wrapped in the envelope. Success follows the status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	write(w, statusCode, Response{Success: statusCode < 400, Data: data})
}

// Message writes a data-less reply carrying msg.
func Message(w http.ResponseWriter, statusCode int, msg string) {
	write(w, statusCode, Response{Success: statusCode < 400, Message: msg})
}

// Error writes a failure reply.
func Error(w http.ResponseWriter, statusCode int, err string) {
	write(w, statusCode, Response{Success: false, Error: err})
}

func BadRequest(w http.ResponseWriter, err string) {
	Error(w, http.StatusBadRequest, err)
}

func NotFound(w http.ResponseWriter, err string) {
	Error(w, http.StatusNotFound, err)
}

func InternalError(w http.ResponseWriter, err string) {
	Error(w, http.StatusInternalServerError, err)
}

func write(w http.ResponseWriter, statusCode int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
