package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tutorhub/class-engine/internal/apperror"
)

// Classify maps a service error to its HTTP status, error code, field
// messages and detail object.
func Classify(err error) (int, ErrCode, map[string]string, interface{}) {
	var (
		ve  *apperror.ValidationError
		nf  *apperror.NotFoundError
		ce  *apperror.ConflictError
		le  *apperror.LimitExceededError
		te  *apperror.InvalidStateTransitionError
		de  *apperror.DependencyError
		pge *pgconn.PgError
	)

	switch {
	case errors.As(err, &ve):
		var fields map[string]string
		if ve.Field != "" {
			fields = map[string]string{ve.Field: ve.Message}
		}
		return http.StatusBadRequest, ErrValidation, fields, ve
	case errors.As(err, &nf):
		return http.StatusNotFound, ErrNotFound, nil, nf
	case errors.As(err, &ce):
		if ce.Conflicts != nil {
			return http.StatusConflict, ErrScheduleConflict, nil, ce
		}
		return http.StatusConflict, ErrConflict, nil, ce
	case errors.As(err, &le):
		return http.StatusUnprocessableEntity, ErrLimitExceeded, nil, le
	case errors.As(err, &te):
		return http.StatusConflict, ErrInvalidStateTransition, nil, te
	case errors.As(err, &de):
		return http.StatusServiceUnavailable, ErrDependencyFailed, nil, gin.H{"dependency": de.Dependency}
	case errors.As(err, &pge) && pge.Code == "23505":
		return http.StatusConflict, ErrConflict, nil, nil
	default:
		return http.StatusInternalServerError, ErrInternal, nil, nil
	}
}

// FailWithError renders err using Classify. Server-side failures are attached
// to the gin context so the access log shows them.
func FailWithError(c *gin.Context, err error) {
	status, code, fields, details := Classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	FailWithDetails(c, status, code, fields, details)
}
