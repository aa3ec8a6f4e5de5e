// Package httputil writes fastcore envelopes and decodes request bodies.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/fastcore-dev/fastcore/errors"
	"github.com/fastcore-dev/fastcore/pkg/logger"
	"github.com/fastcore-dev/fastcore/schemas"
)

// WriteJSON serializes v with the given status. Serialization failures are
// unrecoverable at this point; the status line has already been written.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps payload in the success envelope.
func WriteData(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, schemas.NewDataResponse(data))
}

// WriteMessage wraps payload in the success envelope with a message.
func WriteMessage(w http.ResponseWriter, status int, data interface{}, message string) {
	resp := schemas.NewDataResponse(data)
	resp.Message = message
	WriteJSON(w, status, resp)
}

// WriteList wraps items plus pagination info in the list envelope.
func WriteList(w http.ResponseWriter, status int, items []interface{}, total, page, pageSize int) {
	WriteJSON(w, status, schemas.NewListResponse(items, total, page, pageSize))
}

// ErrorWriter is the single translation point from the error taxonomy to the
// wire envelope. Errors outside the taxonomy are logged and rewritten as a
// generic internal error with details suppressed unless debug is set.
type ErrorWriter struct {
	Log   *logger.Logger
	Debug bool
}

// Write translates err into the error envelope.
func (ew ErrorWriter) Write(w http.ResponseWriter, r *http.Request, err error) {
	e := errors.From(err)

	if e.HTTPStatus >= http.StatusInternalServerError {
		log := ew.Log
		if log == nil {
			log = logger.NewDefault("httputil")
		}
		log.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
			"path":   r.URL.Path,
			"method": r.Method,
			"status": e.HTTPStatus,
		}).Error("request failed")
	}

	info := schemas.ErrorInfo{
		Code:    string(e.Code),
		Message: e.Message,
		Field:   e.Field,
		Details: e.Details,
	}
	if e.HTTPStatus >= http.StatusInternalServerError && !ew.Debug {
		// Hide internals from 5xx bodies outside debug mode.
		info.Details = nil
	} else if ew.Debug && e.Err != nil {
		if info.Details == nil {
			info.Details = map[string]interface{}{}
		}
		info.Details["cause"] = e.Err.Error()
	}

	WriteJSON(w, e.HTTPStatus, schemas.NewErrorResponse(string(e.Code), e.Message, info))
}

// WriteError translates err into the error envelope without request logging
// context. Prefer ErrorWriter inside middleware.
func WriteError(w http.ResponseWriter, err error) {
	e := errors.From(err)
	WriteJSON(w, e.HTTPStatus, schemas.NewErrorResponse(string(e.Code), e.Message, schemas.ErrorInfo{
		Code:    string(e.Code),
		Message: e.Message,
		Field:   e.Field,
		Details: e.Details,
	}))
}
