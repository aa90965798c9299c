// internal/app/features/apierrors/errors.go
package apierrors

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"go.uber.org/zap"
)

// GenericMessage is the client-facing text for malformed requests.
const GenericMessage = "One of the parameters is not set correctly"

// Body is the JSON error envelope.
type Body struct {
	Error string `json:"error"`
}

// WriteJSON writes v with the given status. A nil v writes the JSON
// literal null.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorLogger logs a request failure and writes the matching JSON
// response.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{Log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	fs := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if _, _, uid, ok := authz.UserCtx(r); ok {
		fs = append(fs, zap.String("user_id", uid.Hex()))
	}
	if err != nil {
		fs = append(fs, zap.Error(err))
	}
	return fs
}

// LogBadRequest responds 400 with userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	e.Log.Warn(logMsg, e.fields(r, err)...)
	if userMsg == "" {
		userMsg = GenericMessage
	}
	WriteJSON(w, http.StatusBadRequest, Body{Error: userMsg})
}

// LogForbidden responds 403 with userMsg.
func (e *ErrorLogger) LogForbidden(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	e.Log.Warn(logMsg, e.fields(r, err)...)
	if userMsg == "" {
		userMsg = "forbidden"
	}
	WriteJSON(w, http.StatusForbidden, Body{Error: userMsg})
}

// LogNotFound responds 404 with a null body.
func (e *ErrorLogger) LogNotFound(w http.ResponseWriter, r *http.Request, logMsg string) {
	e.Log.Info(logMsg, e.fields(r, nil)...)
	WriteJSON(w, http.StatusNotFound, nil)
}

// LogServerError responds 500 with userMsg. err is logged, never sent.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	e.Log.Error(logMsg, e.fields(r, err)...)
	if userMsg == "" {
		userMsg = "A server error occurred."
	}
	WriteJSON(w, http.StatusInternalServerError, Body{Error: userMsg})
}

// LogTooManyRequests responds 429 with userMsg.
func (e *ErrorLogger) LogTooManyRequests(w http.ResponseWriter, r *http.Request, logMsg string, userMsg string) {
	e.Log.Warn(logMsg, e.fields(r, nil)...)
	if userMsg == "" {
		userMsg = "Too many requests."
	}
	WriteJSON(w, http.StatusTooManyRequests, Body{Error: userMsg})
}

// NotFound is the router's fallback for unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusNotFound, nil)
}

// MethodNotAllowed is the router's fallback for known paths with an
// unsupported method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusMethodNotAllowed, Body{Error: "method not allowed"})
}
