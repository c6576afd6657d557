package handler

import (
	"errors"
	"net/http"

	"smartsahuji/internal/apperr"
	"smartsahuji/internal/auth"
	"smartsahuji/internal/middleware"
	"smartsahuji/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockError is the data attached to an insufficient stock rejection.
type StockError struct {
	Available int `json:"available"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindOutOfStock, apperr.KindInsufficientStock:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes err as the standard envelope. Internal failures are
// logged and replaced by a generic message.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.Internal("internal server error", err)
	}

	status := statusFor(e.Kind)
	if status == http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(err))
		}
		_ = c.Error(err)
		c.JSON(status, response.Error(status, "Internal server error"))
		return
	}

	if e.Kind == apperr.KindInsufficientStock {
		c.JSON(status, response.ErrorWithData(status, e.Message, StockError{Available: e.Available}))
		return
	}
	c.JSON(status, response.Error(status, e.Message))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}

// principal returns the authenticated caller or writes a 401.
func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
		return auth.Principal{}, false
	}
	return p, true
}

// pathID parses the :id parameter or writes a 400.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}
