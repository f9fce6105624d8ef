package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aevon-lab/fsevents/internal/aggregation"
	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
	coreagg "github.com/aevon-lab/fsevents/internal/core/aggregation"
	httperr "github.com/aevon-lab/fsevents/internal/core/errors"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgEmitFailed     = "Failed to emit event"
	msgUnavailable    = "Event manager is shutting down"
)

// Request types accepted by POST /v1/events. file_accessed is split into its
// two producing operations.
const (
	requestFileOpened   = "file_opened"
	requestFileReleased = "file_released"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

type eventRequest struct {
	Type     string `json:"type" binding:"required"`
	FileUUID string `json:"file_uuid"`
	Offset   int64  `json:"offset"`
	Size     int64  `json:"size"`
	FileSize *int64 `json:"file_size"`
}

type subscriptionRequest struct {
	ID               int64  `json:"id"`
	Type             string `json:"type" binding:"required"`
	CounterThreshold int64  `json:"counter_threshold"`
	TimeThreshold    string `json:"time_threshold"`
	SizeThreshold    int64  `json:"size_threshold"`
}

type subscriptionResponse struct {
	ID               int64     `json:"id"`
	Type             string    `json:"type"`
	CounterThreshold int64     `json:"counter_threshold"`
	TimeThresholdMs  int64     `json:"time_threshold_ms"`
	SizeThreshold    int64     `json:"size_threshold"`
	PendingCount     int64     `json:"pending_count"`
	PendingSize      int64     `json:"pending_size"`
	PendingFiles     int       `json:"pending_files"`
	CreatedAt        time.Time `json:"created_at"`
}

// EmitHandler handles POST /v1/events.
func (s *Service) EmitHandler(c *gin.Context) {
	var req eventRequest
	payloadSize, ierr := s.bindBody(c, &req)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	ev, ierr := req.toEvent()
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	emitted, err := s.manager.Emit(c.Request.Context(), ev)
	if err != nil {
		writeError(c, emitError(err))
		return
	}

	slog.Debug("Received Event",
		"event_type", emitted.Type,
		"file_uuid", emitted.FileUUID,
		"payload_size", payloadSize)

	c.JSON(http.StatusAccepted, emitted)
}

// ListSubscriptionsHandler handles GET /v1/subscriptions.
func (s *Service) ListSubscriptionsHandler(c *gin.Context) {
	states, err := s.manager.Subscriptions(c.Request.Context())
	if err != nil {
		writeError(c, subscriptionError(err))
		return
	}

	out := make([]subscriptionResponse, len(states))
	for i, st := range states {
		out[i] = toSubscriptionResponse(st)
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": out})
}

// SubscribeHandler handles POST /v1/subscriptions.
func (s *Service) SubscribeHandler(c *gin.Context) {
	var req subscriptionRequest
	if _, ierr := s.bindBody(c, &req); ierr != nil {
		writeError(c, ierr)
		return
	}

	window, err := coreagg.ParseTimeThreshold(req.TimeThreshold)
	if err != nil {
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidSubscriptionError,
			message:    err.Error(),
		})
		return
	}

	sub := v1.Subscription{
		ID:   req.ID,
		Type: v1.SubscriptionType(req.Type),
		Thresholds: v1.Thresholds{
			Counter: req.CounterThreshold,
			Time:    window,
			Size:    req.SizeThreshold,
		},
	}
	if err := s.manager.Subscribe(c.Request.Context(), sub); err != nil {
		writeError(c, subscriptionError(err))
		return
	}

	slog.Info("Subscription created over admin API", "subscription_id", sub.ID, "type", sub.Type)
	c.JSON(http.StatusCreated, toSubscriptionResponse(aggregation.SubscriptionState{Subscription: sub}))
}

// CancelHandler handles DELETE /v1/subscriptions/:id.
func (s *Service) CancelHandler(c *gin.Context) {
	var uri struct {
		ID int64 `uri:"id"`
	}
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Invalid path parameters",
			details:    err.Error(),
		})
		return
	}

	if err := s.manager.Unsubscribe(c.Request.Context(), uri.ID); err != nil {
		writeError(c, subscriptionError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// bindBody reads the request body under the size limit and binds it as JSON.
// Returns the raw payload size (used for structured logging upstream).
func (s *Service) bindBody(c *gin.Context, dst any) (int, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	if err := c.ShouldBindJSON(dst); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}
	return len(bodyBytes), nil
}

func (r eventRequest) toEvent() (v1.Event, *ingestionError) {
	ev := v1.Event{FileUUID: r.FileUUID, Offset: r.Offset, Size: r.Size, FileSize: r.FileSize}

	switch r.Type {
	case string(v1.EventRead):
		ev.Type = v1.EventRead
		ev.FileSize = nil
	case string(v1.EventWrite):
		ev.Type = v1.EventWrite
	case string(v1.EventTruncate):
		ev.Type = v1.EventTruncate
		ev.Offset, ev.Size = 0, 0
	case requestFileOpened:
		ev = v1.NewFileOpenedEvent(r.FileUUID)
	case requestFileReleased:
		ev = v1.NewFileReleasedEvent(r.FileUUID)
	case string(v1.EventFileRemoval):
		ev = v1.NewFileRemovalEvent(r.FileUUID)
	default:
		return v1.Event{}, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidEventError,
			message:    fmt.Sprintf("unknown event type %q", r.Type),
		}
	}
	return ev, nil
}

func toSubscriptionResponse(st aggregation.SubscriptionState) subscriptionResponse {
	return subscriptionResponse{
		ID:               st.Subscription.ID,
		Type:             string(st.Subscription.Type),
		CounterThreshold: st.Subscription.Thresholds.Counter,
		TimeThresholdMs:  st.Subscription.Thresholds.Time.Milliseconds(),
		SizeThreshold:    st.Subscription.Thresholds.Size,
		PendingCount:     st.PendingCount,
		PendingSize:      st.PendingSize,
		PendingFiles:     st.PendingFiles,
		CreatedAt:        st.CreatedAt,
	}
}

// emitError maps a manager emit failure. Anything that is not a shutdown or
// cancellation is a validation failure.
func emitError(err error) *ingestionError {
	if unavailable(err) {
		return &ingestionError{
			statusCode: http.StatusServiceUnavailable,
			errorType:  httperr.HttpServiceUnavailableError,
			message:    msgUnavailable,
		}
	}

	slog.Warn("Event validation failed", "error", err)
	return &ingestionError{
		statusCode: http.StatusBadRequest,
		errorType:  httperr.HttpInvalidEventError,
		message:    msgEmitFailed,
		details:    err.Error(),
	}
}

func subscriptionError(err error) *ingestionError {
	switch {
	case errors.Is(err, httperr.ErrInvalidSubscription):
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidSubscriptionError,
			message:    err.Error(),
		}
	case errors.Is(err, httperr.ErrDuplicateSubscription):
		return &ingestionError{
			statusCode: http.StatusConflict,
			errorType:  httperr.HttpDuplicateSubscriptionError,
			message:    err.Error(),
		}
	case errors.Is(err, httperr.ErrUnknownSubscription):
		return &ingestionError{
			statusCode: http.StatusNotFound,
			errorType:  httperr.HttpUnknownSubscriptionError,
			message:    err.Error(),
		}
	case unavailable(err):
		return &ingestionError{
			statusCode: http.StatusServiceUnavailable,
			errorType:  httperr.HttpServiceUnavailableError,
			message:    msgUnavailable,
		}
	default:
		slog.Error("Subscription request failed", "error", err)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    err.Error(),
		}
	}
}

func unavailable(err error) bool {
	return errors.Is(err, httperr.ErrEngineStopped) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
