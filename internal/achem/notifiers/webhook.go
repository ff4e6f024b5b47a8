package notifiers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/daniacca/cellchem/internal/achem"
)

// WebhookNotifier POSTs step events as JSON to a URL
type WebhookNotifier struct {
	id      string
	url     string
	client  *http.Client
	headers map[string]string
	summary bool
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(id, url string) *WebhookNotifier {
	return &WebhookNotifier{
		id:      id,
		url:     url,
		client:  &http.Client{Timeout: 5 * time.Second},
		headers: make(map[string]string),
	}
}

// SetHeader sets a custom header to include in webhook requests
func (wn *WebhookNotifier) SetHeader(key, value string) {
	if wn.headers == nil {
		wn.headers = make(map[string]string)
	}
	wn.headers[key] = value
}

// SetSummary makes the notifier post StepSummary bodies instead of the full
// event with per-cell reports.
func (wn *WebhookNotifier) SetSummary(summary bool) {
	wn.summary = summary
}

func (wn *WebhookNotifier) ID() string {
	return wn.id
}

func (wn *WebhookNotifier) Type() string {
	return "webhook"
}

// StepSummary is the compact webhook body: molecule totals over all cells
// instead of one report per cell.
type StepSummary struct {
	EnvironmentID achem.EnvironmentID `json:"environment_id"`
	Step          int64               `json:"step"`
	EnvTime       float64             `json:"env_time"`
	Timestamp     int64               `json:"timestamp"`
	Fired         int                 `json:"fired"`
	Cells         int                 `json:"cells"`
	Totals        map[string]int      `json:"totals"`
}

// Summarize folds an event's cell reports into a StepSummary.
func Summarize(event achem.NotificationEvent) StepSummary {
	s := StepSummary{
		EnvironmentID: event.EnvironmentID,
		Step:          event.Step,
		EnvTime:       event.EnvTime,
		Timestamp:     event.Timestamp,
		Fired:         event.Fired,
		Cells:         len(event.Cells),
		Totals:        make(map[string]int),
	}
	for _, c := range event.Cells {
		for name, n := range c.Counts {
			s.Totals[name] += n
		}
	}
	return s
}

func (wn *WebhookNotifier) body(event achem.NotificationEvent) ([]byte, error) {
	if wn.summary {
		return json.Marshal(Summarize(event))
	}
	return event.JSON()
}

// Notify sends the notification event to the webhook URL
func (wn *WebhookNotifier) Notify(ctx context.Context, event achem.NotificationEvent) error {
	jsonData, err := wn.body(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wn.url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Cellchem-Environment", string(event.EnvironmentID))
	req.Header.Set("X-Cellchem-Step", strconv.FormatInt(event.Step, 10))
	for key, value := range wn.headers {
		req.Header.Set(key, value)
	}

	resp, err := wn.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Close closes the notifier (no-op for webhook)
func (wn *WebhookNotifier) Close() error {
	return nil
}
