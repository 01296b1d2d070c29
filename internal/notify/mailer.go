package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"vatbill/entity"
	"vatbill/internal/config"
	"vatbill/lib/sl"
)

// Mailer delivers payment-confirmation email through the platform's
// serverless email function. The function accepts a JSON body of
// {to, subject, body} and sends through its own provider; this client
// only hands the payload over.
type Mailer struct {
	hc       *http.Client
	endpoint string
	apiKey   string
	log      *slog.Logger
}

// NewMailer returns nil when no endpoint is configured; callers treat
// a nil mailer as notifications disabled.
func NewMailer(conf *config.Config, logger *slog.Logger) *Mailer {
	if conf.Notify.EmailEndpoint == "" {
		return nil
	}
	return &Mailer{
		hc:       &http.Client{Timeout: 10 * time.Second},
		endpoint: conf.Notify.EmailEndpoint,
		apiKey:   conf.Notify.EmailApiKey,
		log:      logger.With(sl.Module("notify.mailer")),
	}
}

func (m *Mailer) Send(ctx context.Context, msg *entity.EmailMessage) error {
	log := m.log.With(slog.String("to", msg.To))

	status := "ERROR"
	t1 := time.Now()
	defer func() {
		log.Debug("email function request completed",
			slog.String("duration", fmt.Sprintf("%.3fms", float64(time.Since(t1))/float64(time.Millisecond))),
			slog.String("status", status))
	}()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.hc.Do(req)
	if err != nil {
		return fmt.Errorf("email function request: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	status = resp.Status
	if resp.StatusCode >= 300 {
		return fmt.Errorf("email function %s: %s", resp.Status, body)
	}
	return nil
}
