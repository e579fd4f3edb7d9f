package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

const defaultSendTimeout = 10 * time.Second

type webhookRequest struct {
	To           string `json:"to"`
	Channel      string `json:"channel"`
	CampaignID   string `json:"campaignId"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	BloodType    string `json:"bloodType,omitempty"`
	FacilityName string `json:"facilityName,omitempty"`
}

// WebhookAdapter delivers notifications through a provider-gateway webhook.
// Each channel gets its own adapter instance bound to its gateway endpoint;
// the address used per recipient depends on the channel (device token for
// push, phone for WhatsApp/SMS, email address for email).
type WebhookAdapter struct {
	channel  domain.Channel
	client   *resty.Client
	endpoint string
}

func NewPushAdapter(endpoint string) (*WebhookAdapter, error) {
	return newWebhookAdapter(domain.ChannelPush, endpoint, nil)
}

func NewWhatsAppAdapter(endpoint string) (*WebhookAdapter, error) {
	return newWebhookAdapter(domain.ChannelWhatsApp, endpoint, nil)
}

func NewSMSAdapter(endpoint string) (*WebhookAdapter, error) {
	return newWebhookAdapter(domain.ChannelSMS, endpoint, nil)
}

func NewEmailAdapter(endpoint string) (*WebhookAdapter, error) {
	return newWebhookAdapter(domain.ChannelEmail, endpoint, nil)
}

// NewWebhookAdapterWithClient builds an adapter with a caller-supplied resty
// client, used by tests and custom wiring.
func NewWebhookAdapterWithClient(ch domain.Channel, endpoint string, client *resty.Client) (*WebhookAdapter, error) {
	return newWebhookAdapter(ch, endpoint, client)
}

func newWebhookAdapter(ch domain.Channel, endpoint string, client *resty.Client) (*WebhookAdapter, error) {
	if !ch.IsValid() {
		return nil, fmt.Errorf("invalid channel %q", ch)
	}

	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("%s endpoint is required", strings.ToLower(ch.String()))
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid %s endpoint: %w", strings.ToLower(ch.String()), err)
	}

	if client == nil {
		client = resty.New()
		client.SetTimeout(defaultSendTimeout)
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookAdapter{
		channel:  ch,
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (a *WebhookAdapter) Channel() domain.Channel {
	if a == nil {
		return ""
	}
	return a.channel
}

func (a *WebhookAdapter) Send(ctx context.Context, recipient domain.Recipient, payload Payload) (*SendResult, error) {
	if a == nil || a.client == nil {
		return nil, fmt.Errorf("adapter is not initialized")
	}

	address := addressFor(a.channel, recipient)
	if address == "" {
		return nil, &AdapterError{
			Channel:   a.channel.String(),
			Message:   fmt.Sprintf("recipient %s has no %s address", recipient.ID, strings.ToLower(a.channel.String())),
			Transient: false,
		}
	}

	reqBody := webhookRequest{
		To:           address,
		Channel:      strings.ToLower(a.channel.String()),
		CampaignID:   payload.CampaignID,
		Title:        payload.Title,
		Body:         payload.Body,
		BloodType:    payload.BloodType,
		FacilityName: payload.FacilityName,
	}

	response, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(a.endpoint)
	if err != nil {
		return nil, &AdapterError{
			Channel:   a.channel.String(),
			Message:   "gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &AdapterError{
			Channel:   a.channel.String(),
			Message:   "gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &SendResult{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  gatewayMessageID(response),
		}, nil
	}

	return nil, &AdapterError{
		Channel:    a.channel.String(),
		StatusCode: statusCode,
		Message:    gatewayErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func addressFor(ch domain.Channel, recipient domain.Recipient) string {
	switch ch {
	case domain.ChannelPush:
		return strings.TrimSpace(recipient.DeviceToken)
	case domain.ChannelWhatsApp, domain.ChannelSMS:
		return strings.TrimSpace(recipient.Phone)
	case domain.ChannelEmail:
		return strings.TrimSpace(recipient.Email)
	}
	return ""
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func gatewayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("gateway returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func gatewayMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Message-ID", "X-Message-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
