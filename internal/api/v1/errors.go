package v1

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/aegis/internal/domain"
)

// mapGuardError translates the guarded executor's error kinds to HTTP
// statuses: 400 validation, 403 permission, 429 rate limit, 502 for failed or
// invalid-result operations. The structured kinds make this a pure errors.Is
// dispatch; messages are never inspected.
func mapGuardError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return huma.Error400BadRequest("invalid request")
	case errors.Is(err, domain.ErrUnauthorized):
		return huma.Error403Forbidden("permission denied")
	case errors.Is(err, domain.ErrRateLimited):
		return huma.Error429TooManyRequests("rate limit exceeded")
	case errors.Is(err, domain.ErrResultInvalid), errors.Is(err, domain.ErrOperationFailed):
		return huma.Error502BadGateway("operation failed", err)
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}
