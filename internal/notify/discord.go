package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/donaldgifford/mailin-buyback/internal/metrics"
)

const (
	colorBlue   = 0x3498DB // kit sent, assessed
	colorGreen  = 0x2ECC71 // approved, paid
	colorOrange = 0xE67E22 // rejected, returned
)

// Discord allows 30 webhook posts per minute per channel.
const (
	defaultDiscordRate  = rate.Limit(0.5)
	defaultDiscordBurst = 5
)

// DiscordNotifier implements Notifier via Discord webhook. It is used for
// the shop's staff channel.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
		limiter:    rate.NewLimiter(defaultDiscordRate, defaultDiscordBurst),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

// WithRateLimit sets the outbound post rate. A non-positive perSecond
// disables throttling.
func WithRateLimit(perSecond float64, burst int) DiscordOption {
	return func(d *DiscordNotifier) {
		if perSecond <= 0 {
			d.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		d.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Notify posts the event as a single Discord embed.
func (d *DiscordNotifier) Notify(ctx context.Context, event *Event) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("discord rate limiter wait: %w", err)
	}

	payload := discordWebhookPayload{
		Embeds: []discordEmbed{buildEmbed(event)},
	}
	return d.post(ctx, payload)
}

func buildEmbed(event *Event) discordEmbed {
	embed := discordEmbed{
		Title: fmt.Sprintf("%s: %s", actionTitle(event.Action), event.RequestNumber),
		Color: actionColor(event.Action),
		Fields: []discordEmbedField{
			{Name: "Customer", Value: event.CustomerName, Inline: true},
			{Name: "Status", Value: string(event.Status), Inline: true},
			{Name: "Items", Value: fmt.Sprintf("%d", event.ItemCount), Inline: true},
		},
	}

	if event.Price != nil {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name: "Price", Value: formatYen(*event.Price), Inline: true,
		})
	}

	if !event.OccurredAt.IsZero() {
		embed.Timestamp = event.OccurredAt.UTC().Format(time.RFC3339)
	}

	return embed
}

func actionTitle(a Action) string {
	switch a {
	case ActionKitSent:
		return "Kit Sent"
	case ActionAssessed:
		return "Assessment Complete"
	case ActionApproved:
		return "Customer Approved"
	case ActionRejected:
		return "Customer Rejected"
	case ActionPaid:
		return "Payout Complete"
	case ActionReturned:
		return "Device Returned"
	default:
		return string(a)
	}
}

func actionColor(a Action) int {
	switch a {
	case ActionApproved, ActionPaid:
		return colorGreen
	case ActionRejected, ActionReturned:
		return colorOrange
	default:
		return colorBlue
	}
}

// formatYen renders an amount with thousands separators, e.g. ¥51,000.
func formatYen(amount int) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	s := fmt.Sprintf("%d", amount)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + "¥" + s
}

func (d *DiscordNotifier) post(ctx context.Context, payload discordWebhookPayload) error {
	start := time.Now()
	defer func() {
		metrics.NotificationDuration.WithLabelValues("discord").Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
