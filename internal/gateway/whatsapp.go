// internal/gateway/whatsapp.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "portal-notifier/internal/common/errors"
	"portal-notifier/internal/common/httpclient"
	"portal-notifier/internal/models"
)

// WhatsAppClient talks to the outbound WhatsApp messaging gateway. The
// contract is a POST of {phone, message}; the gateway answers with an opaque
// message id on success and a human-readable reason on failure.
type WhatsAppClient struct {
	baseURL string
	apiKey  string
	client  *httpclient.Client
}

func NewWhatsAppClient(baseURL, apiKey string, timeout time.Duration) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  httpclient.NewClient(timeout),
	}
}

func (w *WhatsAppClient) Channel() string {
	return models.ChannelWhatsApp
}

type whatsAppRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type whatsAppResponse struct {
	MessageID string `json:"messageId"`
	Reason    string `json:"reason,omitempty"`
}

func (w *WhatsAppClient) Send(ctx context.Context, msg Message) (string, error) {
	payload, err := json.Marshal(whatsAppRequest{Phone: msg.Address, Message: msg.Body})
	if err != nil {
		return "", apperrors.NewGatewaySendFailedError(fmt.Sprintf("marshal request: %v", err), false)
	}

	req, err := http.NewRequest(http.MethodPost, w.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.NewGatewaySendFailedError(fmt.Sprintf("build request: %v", err), false)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.client.DoWithContext(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", apperrors.NewGatewayTimeoutError(err.Error())
		}
		return "", apperrors.NewGatewaySendFailedError(err.Error(), true)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var out whatsAppResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return "", apperrors.NewGatewaySendFailedError(fmt.Sprintf("decode response: %v", err), true)
		}
		return out.MessageID, nil
	}

	reason := gatewayReason(body, resp.StatusCode)

	// 4xx means the gateway rejected the message itself (bad number, bad
	// payload); retrying the same row cannot help. 429 and 5xx can.
	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return "", apperrors.NewGatewaySendFailedError(reason, retryable)
}

func gatewayReason(body []byte, statusCode int) string {
	var out whatsAppResponse
	if err := json.Unmarshal(body, &out); err == nil && out.Reason != "" {
		return fmt.Sprintf("gateway returned %d: %s", statusCode, out.Reason)
	}
	return fmt.Sprintf("gateway returned %d", statusCode)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
