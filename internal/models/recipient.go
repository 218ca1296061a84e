// internal/models/recipient.go
package models

// Recipient is the profile record notifications are resolved against.
type Recipient struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Phone       string      `json:"phone,omitempty"`
	Email       string      `json:"email,omitempty"`
	Preferences Preferences `json:"preferences"`
}

// Preferences controls per-category suppression and channel selection.
type Preferences struct {
	// Muted lists notification types the recipient opted out of.
	Muted []string `json:"muted,omitempty"`
	// Channel is the preferred delivery channel; empty falls back to the
	// first enabled channel with a usable address.
	Channel string `json:"channel,omitempty"`
}

// Delivery channels
const (
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"
	ChannelEmail    = "email"
)

// IsMuted reports whether the recipient suppressed the given category.
func (p Preferences) IsMuted(notificationType string) bool {
	for _, t := range p.Muted {
		if t == notificationType {
			return true
		}
	}
	return false
}
