package api

import (
	"errors"
	"net/http"

	"keyshelf/internal/domain"
	"keyshelf/internal/middleware"
)

// Error kinds carried in error bodies. Conflict kinds come from domain.ConflictKind.
const (
	kindInvalidInput        = "INVALID_INPUT"
	kindNotAuthenticated    = "NOT_AUTHENTICATED"
	kindNotAuthorized       = "NOT_AUTHORIZED"
	kindNotFound            = "NOT_FOUND"
	kindReferentialConflict = "REFERENTIAL_CONFLICT"
	kindVaultWriteFailed    = "VAULT_WRITE_FAILED"
	kindVaultReadFailed     = "VAULT_READ_FAILED"
	kindInternal            = "INTERNAL"
)

type errorBody struct {
	Code      int    `json:"code"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// errorResponse maps a domain error to its status and public body. Unknown
// errors and secret store failures get a generic message.
func errorResponse(err error) errorBody {
	var notFound *domain.NotFoundError
	var unauthenticated *domain.UnauthenticatedError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var referential *domain.ReferentialConflictError
	var vault *domain.VaultError

	switch {
	case errors.As(err, &validation):
		return errorBody{Code: http.StatusBadRequest, Kind: kindInvalidInput, Message: validation.Message}
	case errors.As(err, &unauthenticated):
		return errorBody{Code: http.StatusUnauthorized, Kind: kindNotAuthenticated, Message: unauthenticated.Message}
	case errors.As(err, &accessDenied):
		return errorBody{Code: http.StatusForbidden, Kind: kindNotAuthorized, Message: accessDenied.Message}
	case errors.As(err, &notFound):
		return errorBody{Code: http.StatusNotFound, Kind: kindNotFound, Message: notFound.Message}
	case errors.As(err, &conflict):
		return errorBody{Code: http.StatusConflict, Kind: string(conflict.Kind), Message: conflict.Message}
	case errors.As(err, &referential):
		return errorBody{Code: http.StatusConflict, Kind: kindReferentialConflict, Message: referential.Message}
	case errors.As(err, &vault):
		kind := kindVaultReadFailed
		if vault.Op == domain.VaultOpWrite {
			kind = kindVaultWriteFailed
		}
		return errorBody{
			Code:      http.StatusServiceUnavailable,
			Kind:      kind,
			Message:   "secret storage is temporarily unavailable, please retry",
			Retryable: vault.Retryable(),
		}
	default:
		return errorBody{Code: http.StatusInternalServerError, Kind: kindInternal, Message: "internal error"}
	}
}

// writeError renders err. Server-side failures are logged with the request ID;
// the response never carries their detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorResponse(err)
	if body.Code >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"kind", body.Kind,
			"error", err,
		)
	}
	writeJSON(w, body.Code, body)
}
