package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/dukerupert/basket/internal/backup"
	"github.com/dukerupert/basket/internal/lineitem"
	"github.com/dukerupert/basket/internal/naming"
	"github.com/dukerupert/basket/internal/websocket"
	"github.com/dukerupert/basket/internal/widget"
	"github.com/go-playground/validator/v10"
)

// responder holds what every handler needs to answer and notify.
type responder struct {
	hub      *websocket.Hub
	logger   *slog.Logger
	validate *validator.Validate
}

func newResponder(hub *websocket.Hub, logger *slog.Logger) responder {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return responder{hub: hub, logger: logger, validate: v}
}

func (rs responder) broadcast(msg websocket.Message) {
	if rs.hub != nil {
		rs.hub.Broadcast(msg)
	}
}

// fail maps an error to a JSON error response. Validation errors become
// 400, duplicate names 409, anything unexpected a logged 500.
func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, naming.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "name is required")
	case errors.Is(err, naming.ErrDuplicateName):
		writeError(w, http.StatusConflict, "that name is already in use")
	case errors.Is(err, lineitem.ErrInvalidEdit):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, widget.ErrUnknownKind):
		writeError(w, http.StatusNotFound, "unknown widget kind")
	case errors.Is(err, backup.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, backup.ErrNotReady):
		writeError(w, http.StatusConflict, err.Error())
	default:
		rs.logger.ErrorContext(r.Context(), "request failed", "action", action, "error", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
	}
}

// decode reads a JSON body into v and validates it. It writes the 400
// response itself and reports whether the handler may continue.
func (rs responder) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	return rs.decodeBody(w, r, v, false)
}

// decodeOptional is decode for endpoints whose body may be omitted.
func (rs responder) decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	return rs.decodeBody(w, r, v, true)
}

func (rs responder) decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return true
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	if err := rs.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return strings.TrimSpace("invalid " + fe.Field() + ": must satisfy " + fe.Tag() + " " + fe.Param())
	}
	return "invalid request"
}

// pathID parses a numeric path parameter, answering 400 when malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func notFound(w http.ResponseWriter, what string) {
	writeError(w, http.StatusNotFound, what+" not found")
}

// orEmpty keeps JSON arrays from encoding as null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
