package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/metrics"
	"salonbook/internal/models"
	"salonbook/internal/service"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handler serves the bookings endpoint for one gateway invocation at a time.
// It never returns a non-nil error: every fault becomes a 500 response.
type Handler struct {
	cfg    *config.Config
	opener domain.StoreOpener
	locker domain.SlotLocker
	bus    domain.EventPublisher
	logger *zerolog.Logger
}

// NewHandler builds a Handler. locker and bus may be nil.
func NewHandler(cfg *config.Config, opener domain.StoreOpener, locker domain.SlotLocker, bus domain.EventPublisher, logger *zerolog.Logger) *Handler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Handler{
		cfg:    cfg,
		opener: opener,
		locker: locker,
		bus:    bus,
		logger: logger,
	}
}

// Handle answers one gateway event. The store is opened per call and closed
// on every exit path; the returned error is always nil.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
	method := req.HTTPMethod
	if method == "" {
		method = http.MethodGet
	}
	logger := h.requestLogger(ctx, req, method)
	start := time.Now()

	defer func() {
		metrics.IncRequest(method, resp.StatusCode)
		logger.Info().Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("request handled")
	}()
	defer func() {
		if r := recover(); r != nil {
			resp, err = h.fault(logger, fmt.Errorf("panic: %v", r)), nil
		}
	}()

	if method == http.MethodOptions {
		return preflightResponse(), nil
	}

	dsn := h.cfg.Database.URL
	if dsn == "" {
		logger.Error().Msg("DATABASE_URL is not set")
		return errorResponse(http.StatusInternalServerError, models.MsgDatabaseMissing), nil
	}

	store, err := h.opener.Open(ctx, dsn)
	if err != nil {
		return h.fault(logger, err), nil
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to close store")
		}
	}()

	svc := service.NewBookingService(store, h.locker, h.cfg.Locks.TTL, h.bus, logger)

	switch method {
	case http.MethodGet:
		return h.listBookedSlots(ctx, logger, svc), nil
	case http.MethodPost:
		return h.createBooking(ctx, logger, svc, req), nil
	default:
		return errorResponse(http.StatusMethodNotAllowed, models.MsgMethodNotAllowed), nil
	}
}

func (h *Handler) listBookedSlots(ctx context.Context, logger *zerolog.Logger, svc domain.BookingService) events.APIGatewayProxyResponse {
	slots, err := svc.ListBookedSlots(ctx)
	if err != nil {
		return h.fault(logger, err)
	}
	return jsonResponse(http.StatusOK, models.BookedSlotsResponse{BookedSlots: slots})
}

func (h *Handler) createBooking(ctx context.Context, logger *zerolog.Logger, svc domain.BookingService, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	booking, err := decodeBooking(req)
	if err != nil {
		return h.fault(logger, err)
	}

	if err := svc.CreateBooking(ctx, booking); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			logger.Info().Str("date", booking.BookingDate).Str("time", booking.BookingTime).Msg("slot already booked")
			return errorResponse(http.StatusConflict, models.MsgSlotTaken)
		}
		return h.fault(logger, err)
	}

	return jsonResponse(http.StatusCreated, models.MessageResponse{Message: models.MsgBookingCreated})
}

// fault logs err and turns it into a 500 reply.
func (h *Handler) fault(logger *zerolog.Logger, err error) events.APIGatewayProxyResponse {
	logger.Error().Err(err).Msg("request failed")
	msg := err.Error()
	if h.cfg.API.OpaqueErrors {
		msg = models.MsgInternalError
	}
	return errorResponse(http.StatusInternalServerError, msg)
}

func (h *Handler) requestLogger(ctx context.Context, req events.APIGatewayProxyRequest, method string) *zerolog.Logger {
	l := h.logger.With().
		Str("request_id", requestID(ctx, req)).
		Str("method", method).
		Str("path", req.Path)
	if userID := header(req.Headers, models.HeaderUserID); userID != "" {
		l = l.Str("user_id", userID)
	}
	logger := l.Logger()
	return &logger
}

func requestID(ctx context.Context, req events.APIGatewayProxyRequest) string {
	if req.RequestContext.RequestID != "" {
		return req.RequestContext.RequestID
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}

// header looks a name up case-insensitively; gateways do not normalize keys.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// decodeBooking reads the POST body. An absent body counts as {}.
func decodeBooking(req events.APIGatewayProxyRequest) (*models.Booking, error) {
	body := req.Body
	if req.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 body: %w", err)
		}
		body = string(raw)
	}
	if strings.TrimSpace(body) == "" {
		body = "{}"
	}

	booking := models.NewBooking()
	if err := json.Unmarshal([]byte(body), booking); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	return booking, nil
}

func preflightResponse() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Methods": models.CORSAllowMethods,
			"Access-Control-Allow-Headers": models.CORSAllowHeaders,
			"Access-Control-Max-Age":       models.CORSMaxAge,
		},
		Body:            "",
		IsBase64Encoded: false,
	}
}

func jsonResponse(statusCode int, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		statusCode = http.StatusInternalServerError
		body = []byte(`{"error":"` + models.MsgInternalError + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body:            string(body),
		IsBase64Encoded: false,
	}
}

func errorResponse(statusCode int, message string) events.APIGatewayProxyResponse {
	return jsonResponse(statusCode, models.ErrorResponse{Error: message})
}
