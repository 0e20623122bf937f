package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrWebhookStatus is returned when the webhook responds with a non-2xx status.
var ErrWebhookStatus = errors.New("webhook rejected alert")

// Embed colors per alert kind.
var kindColors = map[Kind]int{
	KindSale:    0x2ecc71,
	KindAnomaly: 0xe67e22,
	KindReport:  0x3498db,
}

// webhookPayload is a chat webhook message with a single embed.
type webhookPayload struct {
	Content string         `json:"content"`
	Embeds  []webhookEmbed `json:"embeds"`
}

type webhookEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color,omitempty"`
	Fields      []webhookField `json:"fields,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Footer      *webhookFooter `json:"footer,omitempty"`
}

type webhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type webhookFooter struct {
	Text string `json:"text"`
}

// WebhookOptions configures a WebhookNotifier.
type WebhookOptions struct {
	URL string
	// RecipientID is mentioned in every message.
	RecipientID string
	Timeout     time.Duration
}

// WebhookNotifier posts alerts to a chat webhook.
type WebhookNotifier struct {
	http        *resty.Client
	url         string
	recipientID string
}

// NewWebhookNotifier creates a WebhookNotifier.
func NewWebhookNotifier(opts WebhookOptions) *WebhookNotifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		http:        resty.New().SetTimeout(opts.Timeout).SetRetryCount(0),
		url:         opts.URL,
		recipientID: opts.RecipientID,
	}
}

// Notify posts the alert.
func (n *WebhookNotifier) Notify(ctx context.Context, a Alert) error {
	resp, err := n.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(n.payload(a)).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("post webhook: %w: %d", ErrWebhookStatus, resp.StatusCode())
	}
	return nil
}

func (n *WebhookNotifier) payload(a Alert) webhookPayload {
	content := a.Title
	if n.recipientID != "" {
		content = fmt.Sprintf("<@%s> %s", n.recipientID, a.Title)
	}

	embed := webhookEmbed{
		Title:       a.Title,
		Description: a.Body,
		Color:       kindColors[a.Kind],
	}
	if !a.Timestamp.IsZero() {
		embed.Timestamp = a.Timestamp.UTC().Format(time.RFC3339)
	}
	if a.Kind == KindSale {
		embed.Fields = []webhookField{
			{Name: "Item", Value: a.Item, Inline: true},
			{Name: "Amount", Value: strconv.FormatInt(a.Amount, 10), Inline: true},
			{Name: "Group", Value: strconv.FormatInt(a.GroupID, 10), Inline: true},
		}
	}
	if a.Ref != "" {
		embed.Footer = &webhookFooter{Text: "ref " + a.Ref}
	}

	return webhookPayload{Content: content, Embeds: []webhookEmbed{embed}}
}
