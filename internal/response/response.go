// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"metro-ticketing/internal/apperr"
)

type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

func NewPagination(page, limit, total int) *Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return &Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func write(w http.ResponseWriter, status int, env Envelope) {
	env.Timestamp = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

// Success writes data in a success envelope. A nil data renders as null.
func Success(w http.ResponseWriter, status int, message string, data any) {
	env := Envelope{Success: true, Message: message, Data: data}
	if data == nil {
		env.Data = json.RawMessage("null")
	}
	write(w, status, env)
}

func Paginated(w http.ResponseWriter, message string, data any, p *Pagination) {
	write(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data, Pagination: p})
}

func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Success: false, Message: message})
}

// FromError maps err to its status and client message. Internal errors are
// logged and answered with a generic message.
func FromError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logger.Error().Err(err).Msg("Unhandled error")
	}
	Error(w, kind.HTTPStatus(), apperr.MessageOf(err))
}
