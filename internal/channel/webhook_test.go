package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

func TestWebhookAdapterSendSuccess(t *testing.T) {
	t.Parallel()

	var gotBody webhookRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("X-Message-ID", "gw-msg-1")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	adapter, err := NewSMSAdapter(server.URL)
	if err != nil {
		t.Fatalf("NewSMSAdapter() error = %v", err)
	}

	recipient := domain.Recipient{ID: "r1", Phone: "+905551112233"}
	payload := Payload{
		CampaignID:   "c1",
		Title:        "Urgent O- blood needed",
		Body:         "City General needs 2 units of O- blood.",
		BloodType:    "O-",
		FacilityName: "City General",
	}

	result, err := adapter.Send(context.Background(), recipient, payload)
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if result.StatusCode != http.StatusAccepted {
		t.Fatalf("StatusCode = %d, want %d", result.StatusCode, http.StatusAccepted)
	}
	if result.MessageID != "gw-msg-1" {
		t.Fatalf("MessageID = %q, want %q", result.MessageID, "gw-msg-1")
	}

	if gotBody.To != recipient.Phone {
		t.Fatalf("request.to = %q, want %q", gotBody.To, recipient.Phone)
	}
	if gotBody.Channel != "sms" {
		t.Fatalf("request.channel = %q, want %q", gotBody.Channel, "sms")
	}
	if gotBody.CampaignID != "c1" {
		t.Fatalf("request.campaignId = %q, want %q", gotBody.CampaignID, "c1")
	}
}

func TestWebhookAdapterStatusClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantTransient bool
	}{
		{name: "too many requests is transient", statusCode: http.StatusTooManyRequests, wantTransient: true},
		{name: "bad request is permanent", statusCode: http.StatusBadRequest, wantTransient: false},
		{name: "internal server error is transient", statusCode: http.StatusInternalServerError, wantTransient: true},
		{name: "bad gateway is transient", statusCode: http.StatusBadGateway, wantTransient: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
			}))
			defer server.Close()

			adapter, err := NewEmailAdapter(server.URL)
			if err != nil {
				t.Fatalf("NewEmailAdapter() error = %v", err)
			}

			_, err = adapter.Send(context.Background(), domain.Recipient{ID: "r1", Email: "donor@example.com"}, Payload{CampaignID: "c1"})
			if err == nil {
				t.Fatal("Send() expected error")
			}

			var adapterErr *AdapterError
			if !errors.As(err, &adapterErr) {
				t.Fatalf("Send() error type = %T, want *AdapterError", err)
			}
			if adapterErr.StatusCode != tc.statusCode {
				t.Fatalf("StatusCode = %d, want %d", adapterErr.StatusCode, tc.statusCode)
			}
			if IsTransient(err) != tc.wantTransient {
				t.Fatalf("IsTransient() = %v, want %v", IsTransient(err), tc.wantTransient)
			}
		})
	}
}

func TestWebhookAdapterMissingAddressIsPermanent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway should not be called without an address")
	}))
	defer server.Close()

	adapter, err := NewPushAdapter(server.URL)
	if err != nil {
		t.Fatalf("NewPushAdapter() error = %v", err)
	}

	_, err = adapter.Send(context.Background(), domain.Recipient{ID: "r1", Phone: "+905551112233"}, Payload{CampaignID: "c1"})
	if err == nil {
		t.Fatal("Send() expected error for missing device token")
	}
	if IsTransient(err) {
		t.Fatal("missing address should be a permanent failure")
	}
}

func TestNewWebhookAdapterValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewPushAdapter(""); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	if _, err := NewSMSAdapter("not a url"); err == nil {
		t.Fatal("expected error for invalid endpoint")
	}
	if _, err := NewWebhookAdapterWithClient(domain.Channel("FAX"), "https://gw.example.com", nil); err == nil {
		t.Fatal("expected error for invalid channel")
	}
}

func TestAddressFor(t *testing.T) {
	t.Parallel()

	recipient := domain.Recipient{
		ID:          "r1",
		Phone:       "+905551112233",
		Email:       "donor@example.com",
		DeviceToken: "tok-1",
	}

	tests := []struct {
		channel domain.Channel
		want    string
	}{
		{channel: domain.ChannelPush, want: "tok-1"},
		{channel: domain.ChannelWhatsApp, want: "+905551112233"},
		{channel: domain.ChannelSMS, want: "+905551112233"},
		{channel: domain.ChannelEmail, want: "donor@example.com"},
	}

	for _, tt := range tests {
		if got := addressFor(tt.channel, recipient); got != tt.want {
			t.Fatalf("addressFor(%s) = %q, want %q", tt.channel, got, tt.want)
		}
	}
}
