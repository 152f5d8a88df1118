// Package render writes the JSON envelope shared by every endpoint and maps service errors to statuses.
package render

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

// OK writes data with status 200.
func OK(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, envelope{Success: true, Data: data})
}

// Created writes data with status 201.
func Created(w http.ResponseWriter, data any) {
	write(w, http.StatusCreated, envelope{Success: true, Data: data})
}

// StatusOf maps an error kind to an HTTP status.
func StatusOf(err error) int {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err. Internal errors are logged and replaced by a generic message carrying the request id.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		reqID := middleware.GetReqID(r.Context())
		slog.Error("Internal error", "error", err, "method", r.Method, "path", r.URL.Path, "request_id", reqID)
		write(w, status, envelope{Error: "internal server error", Details: map[string]string{"requestId": reqID}})

		return
	}

	slog.Warn("Request failed", "error", err, "status", status, "path", r.URL.Path)
	write(w, status, envelope{Error: err.Error()})
}

// BadRequest writes a 400 for input that never reached a service. Validator errors are listed per field.
func BadRequest(w http.ResponseWriter, err error) {
	slog.Error("Error decoding request", "error", err)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Namespace()] = fe.Tag()
		}
		write(w, http.StatusBadRequest, envelope{Error: "validation failed", Details: details})

		return
	}

	write(w, http.StatusBadRequest, envelope{Error: err.Error()})
}

// PathID parses a positive integer chi path parameter.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validation("invalid %s", name)
	}

	return id, nil
}
