// Package errors define el envelope de error de la API ({code, message, detail})
// y el mapeo de los errores de dominio a status HTTP.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dropDatabas3/oauthabl/internal/accounts"
	"github.com/dropDatabas3/oauthabl/internal/clientauth"
	"github.com/dropDatabas3/oauthabl/internal/codes"
	"github.com/dropDatabas3/oauthabl/internal/kv"
	"github.com/dropDatabas3/oauthabl/internal/sessions"
	"github.com/dropDatabas3/oauthabl/internal/store"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe err como envelope JSON.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// FromError convierte un error de cualquier capa en AppError.
// Lo no reconocido es 500 (la causa queda en Err, nunca en la respuesta).
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case err == nil:
		return ErrInternalServerError
	case stderrors.Is(err, clientauth.ErrUnauthorized):
		return ErrUnauthorized.WithCause(err)
	case stderrors.Is(err, accounts.ErrInvalidCredentials):
		return ErrInvalidCredentials.WithCause(err)
	case stderrors.Is(err, accounts.ErrInvalidCode),
		stderrors.Is(err, codes.ErrMismatch):
		return ErrInvalidCode.WithCause(err)
	case stderrors.Is(err, store.ErrNotFound),
		stderrors.Is(err, sessions.ErrNotFound),
		stderrors.Is(err, codes.ErrNotFound):
		return ErrNotFound.WithCause(err)
	case stderrors.Is(err, store.ErrConflict):
		return ErrUnprocessable.WithCause(err)
	case stderrors.Is(err, accounts.ErrInvalidInput),
		stderrors.Is(err, store.ErrInvalidInput),
		stderrors.Is(err, codes.ErrInvalidKind):
		return ErrBadRequest.WithDetail(detailOf(err)).WithCause(err)
	case stderrors.Is(err, kv.ErrStoreUnavailable):
		return ErrServiceUnavailable.WithCause(err)
	default:
		return ErrInternalServerError.WithCause(err)
	}
}

// detailOf expone el mensaje de validación (no contiene datos del store).
func detailOf(err error) string {
	return err.Error()
}
