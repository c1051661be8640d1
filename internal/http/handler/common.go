package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/service"
	"go.uber.org/zap"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondFile sends a binary download
func respondFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, err error) {
	fields := make(map[string]interface{})
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}

	respondJSON(w, http.StatusBadRequest, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: fields,
	})
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must contain at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.APIError{
		Type:   getErrorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

// getErrorType returns the appropriate error type for an HTTP status code
func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrorTypeBadRequest
	case http.StatusUnauthorized:
		return domain.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return domain.ErrorTypeForbidden
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	default:
		return domain.ErrorTypeInternal
	}
}

// respondServiceError maps a service error onto its status code. Unexpected errors are logged
// and reported as a generic 500 with the given message.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error, message string) {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		respondJSON(w, http.StatusConflict, domain.APIError{
			Type:   domain.ErrorTypeInsufficientStock,
			Title:  "Insufficient Stock",
			Status: http.StatusConflict,
			Detail: stockErr.Error(),
			Errors: map[string]interface{}{
				"available": stockErr.Available,
				"requested": stockErr.Requested,
			},
		})
	case errors.Is(err, service.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, "Authentication with an active organization is required")
	case errors.Is(err, service.ErrForbidden):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrValidation):
		respondJSON(w, http.StatusBadRequest, domain.APIError{
			Type:   domain.ErrorTypeValidation,
			Title:  "Validation Error",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
		})
	case errors.Is(err, service.ErrInvalidStateTransition):
		respondJSON(w, http.StatusConflict, domain.APIError{
			Type:   domain.ErrorTypeInvalidTransition,
			Title:  "Invalid State Transition",
			Status: http.StatusConflict,
			Detail: err.Error(),
		})
	case errors.Is(err, service.ErrBusy):
		w.Header().Set("Retry-After", "1")
		respondWithError(w, http.StatusConflict, "The stock record is busy, please retry")
	default:
		logger.Error(message, zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, message)
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// parseID parses the {id} path parameter
func parseID(w http.ResponseWriter, r *http.Request, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s ID format", entity))
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads page and pageSize, defaulting to 1 and 20
func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}

// queryUUID parses an optional uuid query parameter
func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &id, nil
}

// queryDate parses an optional date parameter given as YYYY-MM-DD or RFC 3339
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s, expected YYYY-MM-DD", name)
	}
	t = t.UTC()
	return &t, nil
}

// dateRange reads the from and to query parameters. A bare "to" date includes that whole day.
func dateRange(r *http.Request) (*time.Time, *time.Time, error) {
	from, err := queryDate(r, "from")
	if err != nil {
		return nil, nil, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return nil, nil, err
	}
	if to != nil && len(r.URL.Query().Get("to")) == len("2006-01-02") {
		end := to.AddDate(0, 0, 1)
		to = &end
	}
	return from, to, nil
}
