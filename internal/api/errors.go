package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/konnyaku/konnyaku/internal/inference"
	"github.com/konnyaku/konnyaku/internal/modelstore"
	"github.com/konnyaku/konnyaku/internal/translate"
)

// Error kinds on the wire. Clients branch on kind, not on message text.
const (
	kindInvalidInput     = "invalid_input"
	kindContextOverflow  = "context_overflow"
	kindDownloadFailed   = "download_failed"
	kindLoadFailed       = "load_failed"
	kindGenerationFailed = "generation_failed"
	kindIOFailure        = "io_failure"
	kindCanceled         = "canceled"
)

// writeServiceError maps a service error onto status and kind. Unrecognized
// errors are reported as generation failures rather than leaked verbatim.
func writeServiceError(c *echo.Context, err error) error {
	status, kind := classify(err)
	return writeError(c, status, kind, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, translate.ErrInvalidInput):
		return http.StatusBadRequest, kindInvalidInput
	case errors.Is(err, inference.ErrContextOverflow):
		return http.StatusUnprocessableEntity, kindContextOverflow
	case errors.Is(err, modelstore.ErrDownloadFailed):
		return http.StatusBadGateway, kindDownloadFailed
	case errors.Is(err, inference.ErrLoadFailed):
		return http.StatusInternalServerError, kindLoadFailed
	case errors.Is(err, modelstore.ErrIO):
		return http.StatusInternalServerError, kindIOFailure
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return 499, kindCanceled
	default:
		return http.StatusInternalServerError, kindGenerationFailed
	}
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, kindInvalidInput, msg)
}

func writeError(c *echo.Context, status int, kind, msg string) error {
	return c.JSON(status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: msg}})
}
