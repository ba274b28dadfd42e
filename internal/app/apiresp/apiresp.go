package apiresp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type ErrorPayload struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
}

type Envelope struct {
	OK    bool          `json:"ok"`
	Data  interface{}   `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
	Meta  Meta          `json:"meta"`
}

func WriteOK(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	write(w, r, status, Envelope{OK: true, Data: data})
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	WriteErrorDetails(w, r, status, msg, nil)
}

// WriteErrorDetails carries a reason list, used for 400 responses.
func WriteErrorDetails(w http.ResponseWriter, r *http.Request, status int, msg string, details []string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	write(w, r, status, Envelope{
		OK: false,
		Error: &ErrorPayload{
			Code:    codeFromStatus(status),
			Message: msg,
			Details: details,
		},
	})
}

func write(w http.ResponseWriter, r *http.Request, status int, res Envelope) {
	res.Meta = Meta{RequestID: middleware.GetReqID(r.Context())}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}

// ValidationReasons turns validator field errors into readable reasons.
func ValidationReasons(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := fieldName(fe)
		switch fe.Tag() {
		case "required":
			out = append(out, field+" is required")
		case "gt":
			out = append(out, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
		case "min", "gte":
			out = append(out, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "lte", "max":
			out = append(out, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "oneof":
			out = append(out, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		default:
			out = append(out, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return out
}

func fieldName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" {
		return name
	}
	return "value"
}

// NewValidator reports fields by their json names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func codeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		if status >= 200 && status < 300 {
			return ""
		}
		return "error"
	}
}
