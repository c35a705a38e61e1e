package httputil

import (
	"encoding/json"
	"net/http"
)

// MessageResponse is the standard single-message body.
type MessageResponse struct {
	Message string `json:"message"`
}

// ValidationResponse carries a message plus the full list of violated rules.
type ValidationResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// Pagination is the envelope metadata of every list endpoint.
type Pagination struct {
	TotalPages  int  `json:"total_pages"`
	CurrentPage int  `json:"current_page"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
	Count       int  `json:"count"`
}

// Page wraps list results: {results, pagination:{...}}.
type Page struct {
	Results    interface{} `json:"results"`
	Pagination Pagination  `json:"pagination"`
}

// NewPage builds the pagination envelope for a page of results.
func NewPage(results interface{}, total, page, perPage int) Page {
	totalPages := total / perPage
	if total%perPage != 0 || totalPages == 0 {
		totalPages++
	}
	return Page{
		Results: results,
		Pagination: Pagination{
			TotalPages:  totalPages,
			CurrentPage: page,
			HasNext:     page < totalPages,
			HasPrevious: page > 1,
			Count:       total,
		},
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers already sent, nothing left to do.
			return
		}
	}
}

// WriteMessage writes {"message": ...} with the given status.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, MessageResponse{Message: message})
}

// WriteBadRequest writes a 400 Bad Request error
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes a 401 Unauthorized error
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteMessage(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a 403 Forbidden error
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteMessage(w, http.StatusForbidden, message)
}

// WriteNotFound writes a 404 Not Found error
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteMessage(w, http.StatusNotFound, message)
}

// WriteInternalError writes a 500 Internal Server Error
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteMessage(w, http.StatusInternalServerError, message)
}
