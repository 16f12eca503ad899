package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"salonbook/internal/config"
	"salonbook/internal/models"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// ErrSMSCredentials is returned when the API key or owner phone is unset.
var ErrSMSCredentials = errors.New(models.MsgSMSNotConfigured)

// smsStatusOK is the sms.ru status_code of an accepted request.
const smsStatusOK = 100

type smsResponse struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	StatusText string `json:"status_text,omitempty"`
}

// SMSService sends owner notifications through the sms.ru HTTP gateway.
type SMSService struct {
	cfg        config.SMSConfig
	httpClient *http.Client
	logger     *zerolog.Logger
}

func NewSMSService(cfg config.SMSConfig, logger *zerolog.Logger) *SMSService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SMSService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// OwnerMessage renders the notification text for a booking.
func OwnerMessage(b *models.Booking) string {
	var sb strings.Builder
	sb.WriteString(models.MsgNotificationTitle)
	fmt.Fprintf(&sb, "\nКлиент: %s", b.ClientName)
	fmt.Fprintf(&sb, "\nУслуги: %s", b.Services)
	fmt.Fprintf(&sb, "\nДата: %s", b.BookingDate)
	fmt.Fprintf(&sb, "\nВремя: %s", b.BookingTime)
	if b.Wishes != "" {
		fmt.Fprintf(&sb, "\nПожелания: %s", b.Wishes)
	}
	return sb.String()
}

// NotifyOwner sends one SMS to the configured owner phone. Any gateway
// answer other than status_code 100 is an error.
func (s *SMSService) NotifyOwner(ctx context.Context, booking *models.Booking) error {
	if s.cfg.APIKey == "" || s.cfg.OwnerPhone == "" {
		return ErrSMSCredentials
	}

	params := url.Values{}
	params.Set("api_id", s.cfg.APIKey)
	params.Set("to", s.cfg.OwnerPhone)
	params.Set("msg", OwnerMessage(booking))
	params.Set("json", "1")
	endpoint := s.cfg.BaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", redactKey(err, s.cfg.APIKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read sms response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("SMS API error: http %d", resp.StatusCode)
	}

	var result smsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("SMS API error: decode response: %w", err)
	}
	if result.StatusCode != smsStatusOK {
		return fmt.Errorf("SMS API error: %s", strings.TrimSpace(string(body)))
	}

	s.logger.Debug().Str("status", result.Status).Msg("sms sent")
	return nil
}

// redactKey strips the API key from transport errors, which quote the URL.
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	msg := strings.ReplaceAll(err.Error(), url.QueryEscape(key), "***")
	msg = strings.ReplaceAll(msg, key, "***")
	return errors.New(msg)
}
