package httpadapter

import (
	"net/http"

	"ReviewScanner/internal/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidProductURL):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrReportNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrSessionUnavailable):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrNoReviewsFound):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrSessionInit),
		domain.IsKind(err, domain.ErrModelUnavailable),
		domain.IsKind(err, domain.ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
