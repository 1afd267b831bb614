// Package responses writes the JSON envelopes every handler returns.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
)

// Success wraps a handler result as {"data": ...}.
type Success struct {
	Data any `json:"data"`
}

// Failure wraps an error as {"error": {...}}.
type Failure struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Success{Data: data})
}

// WriteError maps err onto its HTTP status. Untyped errors become 500s whose text
// never reaches the client; typed errors expose their message unless the code hides it.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	body := APIError{Code: string(typed.Code()), Message: publicMessage(typed, meta)}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	if logg != nil {
		logError(ctx, logg, err, typed, meta)
	}
	writeJSON(w, meta.HTTPStatus, Failure{Error: body})
}

func publicMessage(typed *pkgerrors.Error, meta pkgerrors.Metadata) string {
	switch typed.Code() {
	case pkgerrors.CodeInternal, pkgerrors.CodeDependency:
		return meta.PublicMessage
	}
	if msg := typed.Message(); msg != "" {
		return msg
	}
	return meta.PublicMessage
}

// Client mistakes log at warn; server-side failures log at error with driver diagnostics.
func logError(ctx context.Context, logg *logger.Logger, err error, typed *pkgerrors.Error, meta pkgerrors.Metadata) {
	dump := pkgerrors.Dump(err)
	fields := dump.PG.Fields()
	fields["error_code"] = dump.Code
	fields["http_status"] = meta.HTTPStatus
	if meta.HTTPStatus < http.StatusInternalServerError {
		fields["error"] = typed.Message()
		logg.Warn(logg.WithFields(ctx, fields), "request.rejected")
		return
	}
	fields["error_chain"] = dump.Chain
	logg.Error(logg.WithFields(ctx, fields), "request.failed", err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		raw = []byte(`{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(raw, '\n'))
}
