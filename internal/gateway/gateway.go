// internal/gateway/gateway.go

// Package gateway holds the outbound delivery channels. Every channel
// implements Sender; the Router picks one per notification from recipient
// preferences and channel enablement.
package gateway

import (
	"context"

	apperrors "portal-notifier/internal/common/errors"
	"portal-notifier/internal/models"
)

// Message is the rendered payload handed to a channel.
type Message struct {
	// Address is the deliverable address in the channel's own format:
	// a phone number for whatsapp/sms, an email address for email.
	Address string
	Subject string
	Body    string
}

// Sender delivers one message and returns the gateway's opaque message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
	Channel() string
}

// Router selects the delivery channel for a recipient. Order: the
// recipient's preferred channel when usable, then whatsapp, sms, email.
type Router struct {
	senders map[string]Sender
}

func NewRouter(senders ...Sender) *Router {
	m := make(map[string]Sender, len(senders))
	for _, s := range senders {
		m[s.Channel()] = s
	}
	return &Router{senders: m}
}

// Resolve returns the sender and address to use for a recipient, or a
// terminal error when no enabled channel has a usable address.
func (r *Router) Resolve(rec *models.Recipient) (Sender, string, error) {
	ordered := []string{models.ChannelWhatsApp, models.ChannelSMS, models.ChannelEmail}
	if pref := rec.Preferences.Channel; pref != "" {
		ordered = append([]string{pref}, ordered...)
	}

	for _, ch := range ordered {
		sender, ok := r.senders[ch]
		if !ok {
			continue
		}
		if addr := addressFor(rec, ch); addr != "" {
			return sender, addr, nil
		}
	}
	return nil, "", apperrors.NewNoDeliverableAddressError(rec.ID)
}

func addressFor(rec *models.Recipient, channel string) string {
	switch channel {
	case models.ChannelWhatsApp, models.ChannelSMS:
		return rec.Phone
	case models.ChannelEmail:
		return rec.Email
	}
	return ""
}
