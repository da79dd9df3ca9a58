package devino

import "github.com/devinotele/pushsdk-go/internal/api"

// Priority of an outgoing message.
type Priority string

const (
	PriorityLow    Priority = Priority(api.PriorityLow)
	PriorityMedium Priority = Priority(api.PriorityMedium)
	PriorityHigh   Priority = Priority(api.PriorityHigh)
)

// Button is an action button shown on a delivered message.
type Button struct {
	Caption string
	Action  string
}

// Message is an outgoing push sent through the messaging API to this
// device's registered token.
type Message struct {
	Title      string
	Text       string
	Badge      int
	Validity   int
	Priority   Priority
	SilentPush bool
	Sound      string
	MediaURL   string
	Action     string
	Buttons    []Button
	Options    map[string]any
}

// SendMessage submits msg addressed to the registered device token.
// Without a token the call is dropped like any other token-dependent
// operation.
func (c *Client) SendMessage(msg Message) {
	op := api.SendMessage{
		Title:      msg.Title,
		Text:       msg.Text,
		Badge:      msg.Badge,
		Validity:   msg.Validity,
		Priority:   api.Priority(msg.Priority),
		SilentPush: msg.SilentPush,
		Options:    msg.Options,
		Sound:      msg.Sound,
		MediaURL:   msg.MediaURL,
		Action:     msg.Action,
	}
	for _, b := range msg.Buttons {
		op.Buttons = append(op.Buttons, api.Button{Caption: b.Caption, Action: b.Action})
	}
	c.submit(op)
}
