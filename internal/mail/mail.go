// Package mail sends the booking confirmation to the customer.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/avstrong/bookingdesk/internal/apperror"
	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/logger"
)

const DefaultEndpoint = "https://api.brevo.com/v3/smtp/email"

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<p>Dear {{.Customer.Name}},</p>
<p>Your booking <strong>{{.Code}}</strong> is confirmed.</p>
<p>Check-in: {{.CheckIn.Format "Mon, 02 Jan 2006 15:04"}}<br>
Check-out: {{.CheckOut.Format "Mon, 02 Jan 2006 15:04"}}</p>
<ul>{{range .Rooms}}<li>Room {{.Number}}</li>{{end}}</ul>
<p>We look forward to welcoming you.</p>`))

type HTTPConf struct {
	L           *logger.Logger
	Endpoint    string
	APIKey      string
	SenderEmail string
	SenderName  string
	Timeout     time.Duration
}

// HTTPMailer posts transactional mail to a Brevo compatible API.
type HTTPMailer struct {
	l           *logger.Logger
	endpoint    string
	apiKey      string
	senderEmail string
	senderName  string
	client      *http.Client
}

func NewHTTPMailer(conf HTTPConf) *HTTPMailer {
	endpoint := conf.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second //nolint:gomnd
	}

	return &HTTPMailer{
		l:           conf.L,
		endpoint:    endpoint,
		apiKey:      conf.APIKey,
		senderEmail: conf.SenderEmail,
		senderName:  conf.SenderName,
		client:      &http.Client{Timeout: timeout}, //nolint:exhaustruct
	}
}

type contact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type payload struct {
	Sender      contact   `json:"sender"`
	To          []contact `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent"`
}

func (m *HTTPMailer) SendBookingConfirmation(ctx context.Context, b *booking.Booking) error {
	if b.Customer.Email == "" {
		return apperror.Validation("customer.email", "booking has no customer email")
	}

	html, err := render(b)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload{
		Sender:      contact{Email: m.senderEmail, Name: m.senderName},
		To:          []contact{{Email: b.Customer.Email, Name: b.Customer.Name}},
		Subject:     Subject(b),
		HTMLContent: html,
	})
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return apperror.Remote("send confirmation", 0, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10)) //nolint:gomnd

		return apperror.Remote("send confirmation", resp.StatusCode, fmt.Errorf("mail api: %s", msg)) //nolint:goerr113
	}

	m.l.LogInfo("Confirmation for booking %s sent to %s", b.ID, b.Customer.Email)

	return nil
}

// LogMailer only logs the mail. It is used when no mail API is configured.
type LogMailer struct {
	l *logger.Logger
}

func NewLogMailer(l *logger.Logger) *LogMailer {
	return &LogMailer{l: l}
}

func (m *LogMailer) SendBookingConfirmation(_ context.Context, b *booking.Booking) error {
	m.l.WithFields(map[string]any{
		"booking_id": b.ID,
		"to":         b.Customer.Email,
	}).LogInfo("Mail not sent, no mail API configured: %s", Subject(b))

	return nil
}

func Subject(b *booking.Booking) string {
	return fmt.Sprintf("Booking %s confirmed", b.Code)
}

func render(b *booking.Booking) (string, error) {
	var buf bytes.Buffer

	if err := confirmationTmpl.Execute(&buf, b); err != nil {
		return "", fmt.Errorf("render confirmation mail: %w", err)
	}

	return buf.String(), nil
}
