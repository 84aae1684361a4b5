package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	sensors "sensor-cloud/internal/sensors/domain"
)

const defaultResendURL = "https://api.resend.com/emails"

// EmailSender delivers a rendered alert email to one recipient.
type EmailSender struct {
	apiURL   string
	apiKey   string
	from     string
	appURL   string
	template *Template
	client   *http.Client
}

// EmailOption configures the sender.
type EmailOption func(*EmailSender)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) EmailOption {
	return func(s *EmailSender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithAPIURL overrides the delivery API endpoint.
func WithAPIURL(url string) EmailOption {
	return func(s *EmailSender) {
		if url != "" {
			s.apiURL = url
		}
	}
}

// NewEmailSender constructs a sender backed by the Resend HTTP API.
func NewEmailSender(apiKey, from, appURL string, template *Template, opts ...EmailOption) (*EmailSender, error) {
	if apiKey == "" {
		return nil, errors.New("email sender: empty api key")
	}
	if from == "" {
		from = "Sensor Cloud <alerts@sensor-cloud.local>"
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	sender := &EmailSender{
		apiURL:   defaultResendURL,
		apiKey:   apiKey,
		from:     from,
		appURL:   appURL,
		template: template,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(sender)
	}
	return sender, nil
}

type emailPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send renders and delivers one alert email.
func (s *EmailSender) Send(ctx context.Context, sensor sensors.Sensor, recipient string) error {
	if s == nil {
		return errors.New("email sender: nil sender")
	}
	if recipient == "" {
		return errors.New("email sender: empty recipient")
	}
	html, err := s.template.Render(TemplateData{
		SensorName:   sensor.Name,
		SensorType:   sensor.Type,
		LocationName: sensor.LocationName(),
		SensorURL:    s.appURL + "/dashboard/" + sensor.ID,
	})
	if err != nil {
		return err
	}
	payload := emailPayload{
		From:    s.from,
		To:      []string{recipient},
		Subject: fmt.Sprintf("Sensor Alert: %s is Inactive", sensor.Name),
		HTML:    html,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email api status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	return nil
}

// LogSender stands in for the email channel when no API key is configured.
// Sends always succeed and are only written to the log.
type LogSender struct {
	logger *log.Logger
}

// NewLogSender constructs a log-only sender.
func NewLogSender(logger *log.Logger) *LogSender {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the alert instead of delivering it.
func (s *LogSender) Send(_ context.Context, sensor sensors.Sensor, recipient string) error {
	if s == nil || s.logger == nil {
		return nil
	}
	s.logger.Printf("alert (log only): sensor=%s recipient=%s", sensor.Name, recipient)
	return nil
}
