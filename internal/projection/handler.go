package projection

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	httperr "github.com/aevon-lab/fsevents/internal/core/errors"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/subscriptions/:id/flushes", s.HandleListFlushes)
	r.GET("/v1/subscriptions/:id/summary", s.HandleSummary)
	r.GET("/v1/files/:file_uuid/flushes", s.HandleFileHistory)
}

type subscriptionURI struct {
	ID int64 `uri:"id"`
}

type limitQuery struct {
	Limit int `form:"limit"`
}

// HandleListFlushes handles GET /v1/subscriptions/:id/flushes?limit=
func (s *Service) HandleListFlushes(c *gin.Context) {
	var uri subscriptionURI
	var query limitQuery
	if !bindURI(c, &uri) || !bindQuery(c, &query) {
		return
	}

	resp, err := s.ListFlushes(c.Request.Context(), uri.ID, query.Limit)
	if err != nil {
		writeQueryError(c, "Failed to list flushes", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleSummary handles GET /v1/subscriptions/:id/summary
func (s *Service) HandleSummary(c *gin.Context) {
	var uri subscriptionURI
	if !bindURI(c, &uri) {
		return
	}

	resp, err := s.Summarize(c.Request.Context(), uri.ID)
	if err != nil {
		writeQueryError(c, "Failed to summarize subscription", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleFileHistory handles GET /v1/files/:file_uuid/flushes?limit=
func (s *Service) HandleFileHistory(c *gin.Context) {
	var uri struct {
		FileUUID string `uri:"file_uuid" binding:"required"`
	}
	var query limitQuery
	if !bindURI(c, &uri) || !bindQuery(c, &query) {
		return
	}

	resp, err := s.FileHistory(c.Request.Context(), uri.FileUUID, query.Limit)
	if err != nil {
		writeQueryError(c, "Failed to query file history", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func bindURI(c *gin.Context, dst any) bool {
	if err := c.ShouldBindUri(dst); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid path parameters",
			Details:   err.Error(),
		})
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return false
	}
	return true
}

func writeQueryError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid flush query",
			Details:   err.Error(),
		})
	case errors.Is(err, ErrJournalDisabled):
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpServiceUnavailableError,
			Message:   "Flush journal is disabled",
		})
	default:
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   message,
			Details:   err.Error(),
		})
	}
}
