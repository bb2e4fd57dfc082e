package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// Response represents a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the error payload of a failed response
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// Error sends an error response with a stable code
func Error(w http.ResponseWriter, status int, code, message string) {
	write(w, status, Response{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// NoContent sends a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Created sends a 201 Created response with data
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// OK sends a 200 OK response with data
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// BadRequest sends a 400 Bad Request response
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, "INVALID_INPUT", message)
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// ValidationError reports struct validation failures field by field
func ValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		BadRequest(w, err.Error())
		return
	}

	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			fields[field] = "field is required"
		case "email":
			fields[field] = "invalid email format"
		case "min":
			fields[field] = "must be at least " + e.Param() + " characters"
		case "max":
			fields[field] = "must be at most " + e.Param() + " characters"
		default:
			fields[field] = "validation failed on " + e.Tag()
		}
	}

	write(w, http.StatusBadRequest, Response{
		Success: false,
		Error: &ErrorBody{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Fields:  fields,
		},
	})
}

var sentinels = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{domain.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{domain.ErrEventNotFound, http.StatusNotFound, "EVENT_NOT_FOUND"},
	{domain.ErrUserNotInEvent, http.StatusNotFound, "USER_NOT_IN_EVENT"},
	{domain.ErrDuplicateEmail, http.StatusConflict, "DUPLICATE_EMAIL"},
	{domain.ErrEventAlreadyExists, http.StatusConflict, "EVENT_ALREADY_EXISTS"},
	{domain.ErrUserAlreadyInEvent, http.StatusConflict, "USER_ALREADY_IN_EVENT"},
	{domain.ErrConcurrencyConflict, http.StatusConflict, "CONCURRENT_UPDATE"},
	{domain.ErrDegenerateVector, http.StatusBadGateway, "DEGENERATE_VECTOR"},
	{domain.ErrCountExtraction, http.StatusBadGateway, "COUNT_EXTRACTION_ERROR"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
}

// FromError maps err onto a status code and stable error code. Unknown
// errors are logged with the request id and surface as a generic 500.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		code, message := "COMPLETION_SERVICE_ERROR", "completion service request failed"
		if provErr.Kind == domain.ProviderEmbedding {
			code, message = "EMBEDDING_SERVICE_ERROR", "embedding service request failed"
		}
		log.Warn().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("Provider call failed")
		Error(w, provErr.Status, code, message)
		return
	}

	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			Error(w, s.status, s.code, err.Error())
			return
		}
	}

	var persistErr *domain.PersistenceError
	if errors.As(err, &persistErr) {
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("Persistence failure")
		code := strings.ToUpper(persistErr.Entity + "_" + string(persistErr.Op) + "_ERROR")
		Error(w, http.StatusInternalServerError, code,
			fmt.Sprintf("failed to %s %s", persistErr.Op, persistErr.Entity))
		return
	}

	log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("Unhandled error")
	Error(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error")
}
