package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/geo-tasks/internal/auth"
	"github.com/adanyl0v/geo-tasks/internal/repository"
	"github.com/adanyl0v/geo-tasks/internal/services"
)

var errInvalidRequestBody = errors.New("invalid request body")

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newForbiddenError(message string) apiError {
	return newAPIError(http.StatusForbidden, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

func newPreconditionFailedError(message string) apiError {
	return newAPIError(http.StatusPreconditionFailed, message)
}

// abortDispatchError maps dispatch-service errors onto the wire
// contract: authorization failures are 403, malformed queries 412,
// lost claims and unknown ids 404 (deliberately indistinguishable),
// anything else a generic 500.
func (h *handlerImpl) abortDispatchError(c *gin.Context, err error) {
	var validationErr *repository.ValidationError

	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		abort(c, newForbiddenError(auth.ErrMissingCredential.Error()))
	case errors.Is(err, auth.ErrRoleMismatch):
		abort(c, newForbiddenError(auth.ErrRoleMismatch.Error()))
	case errors.Is(err, services.ErrInvalidQuery):
		abort(c, newPreconditionFailedError(services.ErrInvalidQuery.Error()))
	case errors.Is(err, services.ErrInvalidRadius):
		abort(c, newPreconditionFailedError(services.ErrInvalidRadius.Error()))
	case errors.Is(err, repository.ErrClaimFailed):
		abort(c, newNotFoundError(repository.ErrClaimFailed.Error()))
	case errors.Is(err, repository.ErrTaskNotFound):
		abort(c, newNotFoundError(repository.ErrTaskNotFound.Error()))
	case errors.As(err, &validationErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
	default:
		h.logger.Error().
			Err(err).
			Msg("dispatch operation failed")
		abort(c, newStatusTextError(http.StatusInternalServerError))
	}
}
