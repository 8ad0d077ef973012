// Package services provides external service integrations and technical concerns like gateways and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/glowdesk/invite-engine/config"
	"github.com/glowdesk/invite-engine/models"
	"github.com/glowdesk/invite-engine/utils"
)

// SendResult is the synchronous outcome of handing one message to a provider.
// Delivered is set when the provider confirms delivery in the send response
// itself, without waiting for a webhook.
type SendResult struct {
	Accepted          bool
	Delivered         bool
	ProviderMessageID *string
	FailureReason     *string
}

// MessageGateway hands rendered invitation messages to the upstream provider
// for one channel. Implementations must be safe for concurrent use.
type MessageGateway interface {
	Send(ctx context.Context, channel, destination, body string) (*SendResult, error)
}

// MessageGatewayImpl implements MessageGateway against HTTP providers
type MessageGatewayImpl struct {
	smsConfig  *config.SMSConfig
	chatConfig *config.ChatConfig
	client     *http.Client
}

// gatewayRequest represents the request payload for the provider send API
type gatewayRequest struct {
	SrcNum         string `json:"srcNum,omitempty"` // Format: 98**********
	Recipient      string `json:"recipient"`
	Body           string `json:"body"`
	RetryCount     int    `json:"retryCount"`
	ValidityPeriod int    `json:"validityPeriod"` // Validity in seconds
}

// gatewayResponse represents one message result from the provider send API
type gatewayResponse struct {
	MessageID  string `json:"messageId"`
	Recipient  string `json:"recipient"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
}

// NewMessageGateway creates a new provider-backed message gateway
func NewMessageGateway(smsCfg *config.SMSConfig, chatCfg *config.ChatConfig) MessageGateway {
	timeout := smsCfg.Timeout
	if chatCfg.Timeout > timeout {
		timeout = chatCfg.Timeout
	}
	return &MessageGatewayImpl{
		smsConfig:  smsCfg,
		chatConfig: chatCfg,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send hands one message to the provider for the given channel.
// A non-nil error means the provider could not be reached; a SendResult
// with Accepted=false means the provider rejected the message.
func (g *MessageGatewayImpl) Send(ctx context.Context, channel, destination, body string) (*SendResult, error) {
	var url, apiKey string
	request := gatewayRequest{
		Recipient: destination,
		Body:      body,
	}

	switch channel {
	case models.ChannelSMS:
		url = fmt.Sprintf("https://%s/api/v3.0.1/send", g.smsConfig.ProviderDomain)
		apiKey = g.smsConfig.APIKey
		request.SrcNum = g.smsConfig.SourceNumber
		request.RetryCount = g.smsConfig.RetryCount
		request.ValidityPeriod = g.smsConfig.ValidityPeriod
	case models.ChannelChat:
		url = fmt.Sprintf("https://%s/api/v1/messages", g.chatConfig.ProviderDomain)
		apiKey = g.chatConfig.APIKey
	default:
		return nil, fmt.Errorf("unknown channel: %s", channel)
	}

	requestBody, err := json.Marshal([]gatewayRequest{request})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send gateway request: %w", err)
	}
	defer resp.Body.Close()

	var results []gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("empty gateway response")
	}

	result := results[0]
	if result.StatusCode != 200 || (result.Status != "ACCEPTED" && result.Status != "DELIVERED") {
		reason := fmt.Sprintf("%s (%d)", result.Status, result.StatusCode)
		return &SendResult{
			Accepted:      false,
			FailureReason: &reason,
		}, nil
	}

	return &SendResult{
		Accepted:          true,
		Delivered:         result.Status == "DELIVERED",
		ProviderMessageID: &result.MessageID,
	}, nil
}

// MockMessageGateway implements MessageGateway for testing
type MockMessageGateway struct {
	mu           sync.Mutex
	SentMessages []MockSentMessage

	// FailDestinations maps destination -> rejection reason
	FailDestinations map[string]string

	// Err, when set, is returned from every Send call
	Err error

	counter int
}

// MockSentMessage represents one recorded gateway call
type MockSentMessage struct {
	Channel           string
	Destination       string
	Body              string
	ProviderMessageID string
	SentAt            time.Time
}

// NewMockMessageGateway creates a new mock message gateway
func NewMockMessageGateway() *MockMessageGateway {
	return &MockMessageGateway{
		SentMessages:     make([]MockSentMessage, 0),
		FailDestinations: make(map[string]string),
	}
}

func (m *MockMessageGateway) Send(ctx context.Context, channel, destination, body string) (*SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	if reason, found := m.FailDestinations[destination]; found {
		return &SendResult{
			Accepted:      false,
			FailureReason: &reason,
		}, nil
	}

	m.counter++
	providerID := fmt.Sprintf("mock-%d", m.counter)
	m.SentMessages = append(m.SentMessages, MockSentMessage{
		Channel:           channel,
		Destination:       destination,
		Body:              body,
		ProviderMessageID: providerID,
		SentAt:            utils.UTCNow(),
	})

	return &SendResult{
		Accepted:          true,
		ProviderMessageID: &providerID,
	}, nil
}

// Sent returns a copy of all recorded gateway calls
func (m *MockMessageGateway) Sent() []MockSentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]MockSentMessage, len(m.SentMessages))
	copy(out, m.SentMessages)
	return out
}
