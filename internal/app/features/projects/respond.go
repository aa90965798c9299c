package projects

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/projecthub/internal/app/features/apierrors"
	"github.com/dalemusser/projecthub/internal/app/services/projectsvc"
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/dalemusser/projecthub/internal/app/system/limits"
	"go.uber.org/zap"
)

func actor(r *http.Request) projectsvc.Actor {
	u, ok := auth.CurrentUser(r)
	if !ok || u == nil {
		return projectsvc.Actor{}
	}
	return projectsvc.Actor{ID: u.ID, Email: u.Email, Name: u.Name}
}

// decodeJSON decodes the request body into v. An empty body leaves v
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// fail maps a service error to its response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *projectsvc.ValidationError
	switch {
	case errors.As(err, &ve):
		h.ErrLog.LogBadRequest(w, r, op+": invalid input", err, ve.Message)
	case errors.Is(err, projectsvc.ErrNotFound):
		h.ErrLog.LogNotFound(w, r, op+": nothing found")
	default:
		h.ErrLog.LogServerError(w, r, op+" failed", err, "")
	}
}

func (h *Handler) ok(w http.ResponseWriter, r *http.Request, op string, status int, v any) {
	h.Log.Info(op, zap.String("path", r.URL.Path), zap.Int("status", status))
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	apierrors.WriteJSON(w, status, v)
}
