// Package api describes the Devino backend operations: one descriptor per
// logical call, each resolving to an HTTP method, a path and a JSON body.
package api

import (
	"net/url"
)

// ActionType reports how a push was consumed by the user.
type ActionType string

const (
	ActionDelivered ActionType = "DELIVERED"
	ActionOpened    ActionType = "OPENED"
)

// Priority of an outgoing message.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Env carries the device facts injected into request bodies alongside the
// per-operation fields.
type Env struct {
	ApplicationID string
	OSVersion     string
	AppVersion    string
	Language      string
	Subscribed    bool
}

// Request is a resolved wire call, ready for the dispatcher. Path is
// relative to the versioned API prefix. Body is nil for GET operations.
type Request struct {
	Operation string
	Method    string
	Path      string
	Query     url.Values
	Body      any
}

// Operation is the closed set of backend calls. Implementations carry only
// the fields their variant needs.
type Operation interface {
	// resolve builds the wire request. ok is false when the operation
	// requires a registered device token and none is available; such
	// operations produce no request at all.
	resolve(token string, env Env) (req Request, ok bool)
}

// Resolve builds the wire request for op, or reports ok=false when the
// operation must be dropped for lack of a device token.
func Resolve(op Operation, token string, env Env) (Request, bool) {
	return op.resolve(token, env)
}

// UserData updates the backend profile attached to the device.
type UserData struct {
	Email  string
	Phone  string
	Custom map[string]any
}

func (o UserData) resolve(token string, env Env) (Request, bool) {
	if token == "" {
		return Request{}, false
	}
	custom := map[string]any{
		"osVersion":  env.OSVersion,
		"appVersion": env.AppVersion,
		"language":   env.Language,
	}
	for k, v := range o.Custom {
		custom[k] = v
	}
	body := map[string]any{
		"customData":          custom,
		"reportedDateTimeUtc": Now(),
		"applicationId":       env.ApplicationID,
	}
	if o.Email != "" {
		body["email"] = o.Email
	}
	if o.Phone != "" {
		body["phone"] = o.Phone
	}
	return Request{
		Operation: "users-data",
		Method:    "PUT",
		Path:      "sdk/users/" + token + "/data",
		Body:      body,
	}, true
}

// AppStart reports an application launch.
type AppStart struct{}

func (AppStart) resolve(token string, env Env) (Request, bool) {
	if token == "" {
		return Request{}, false
	}
	return Request{
		Operation: "app-start",
		Method:    "POST",
		Path:      "sdk/users/" + token + "/app-start",
		Body: map[string]any{
			"reportedDateTimeUtc": Now(),
			"appVersion":          env.AppVersion,
			"osVersion":           env.OSVersion,
			"platform":            "IOS",
			"language":            env.Language,
			"subscribed":          env.Subscribed,
			"applicationId":       env.ApplicationID,
		},
	}, true
}

// CustomEvent reports an application-defined event.
type CustomEvent struct {
	Name string
	Data map[string]any
}

func (o CustomEvent) resolve(token string, env Env) (Request, bool) {
	if token == "" {
		return Request{}, false
	}
	data := o.Data
	if data == nil {
		data = map[string]any{}
	}
	return Request{
		Operation: "custom-event",
		Method:    "POST",
		Path:      "sdk/users/" + token + "/event",
		Body: map[string]any{
			"eventName":           o.Name,
			"eventData":           data,
			"reportedDateTimeUtc": Now(),
			"applicationId":       env.ApplicationID,
		},
	}, true
}

// SubscriptionChanged reports a change of the push-permission state.
type SubscriptionChanged struct {
	Subscribed bool
}

func (o SubscriptionChanged) resolve(token string, env Env) (Request, bool) {
	if token == "" {
		return Request{}, false
	}
	return Request{
		Operation: "subscription",
		Method:    "POST",
		Path:      "sdk/users/" + token + "/subscription",
		Body: map[string]any{
			"subscribed":          o.Subscribed,
			"reportedDateTimeUtc": Now(),
			"applicationId":       env.ApplicationID,
		},
	}, true
}

// SubscriptionStatus asks the backend for the last known subscription state.
type SubscriptionStatus struct{}

func (SubscriptionStatus) resolve(token string, env Env) (Request, bool) {
	if token == "" {
		return Request{}, false
	}
	q := url.Values{}
	q.Set("applicationId", env.ApplicationID)
	return Request{
		Operation: "subscription-status",
		Method:    "GET",
		Path:      "sdk/users/" + token + "/subscription/status",
		Query:     q,
	}, true
}

// GeoUpdate reports device coordinates.
type GeoUpdate struct {
	Longitude float64
	Latitude  float64
}

func (o GeoUpdate) resolve(token string, env Env) (Request, bool) {
	if token == "" {
		return Request{}, false
	}
	return Request{
		Operation: "geo",
		Method:    "POST",
		Path:      "sdk/users/" + token + "/geo",
		Body: map[string]any{
			"longitude":           o.Longitude,
			"latitude":            o.Latitude,
			"reportedDateTimeUtc": Now(),
			"applicationId":       env.ApplicationID,
		},
	}, true
}

// PushEvent acknowledges delivery or opening of a push.
type PushEvent struct {
	PushID   int64
	Action   ActionType
	ActionID string
}

func (o PushEvent) resolve(token string, env Env) (Request, bool) {
	if token == "" {
		return Request{}, false
	}
	body := map[string]any{
		"pushToken":           token,
		"pushId":              o.PushID,
		"actionType":          string(o.Action),
		"reportedDateTimeUtc": Now(),
		"applicationId":       env.ApplicationID,
	}
	if o.ActionID != "" {
		body["actionId"] = o.ActionID
	}
	return Request{
		Operation: "push-event",
		Method:    "POST",
		Path:      "sdk/messages/events",
		Body:      body,
	}, true
}

// Button is an action button attached to an outgoing message.
type Button struct {
	Caption string `json:"caption"`
	Action  string `json:"action"`
}

// SendMessage submits a push through the messaging API. The backend expects
// a batch envelope, so the body is a one-element array and the application
// id travels as "from" rather than "applicationId".
type SendMessage struct {
	Title      string
	Text       string
	Badge      int
	Validity   int
	Priority   Priority
	SilentPush bool
	Options    map[string]any
	Sound      string
	MediaURL   string
	Buttons    []Button
	Action     string
}

func (o SendMessage) resolve(token string, env Env) (Request, bool) {
	if token == "" {
		return Request{}, false
	}
	apns := map[string]any{}
	if o.Sound != "" {
		apns["sound"] = o.Sound
	}
	if o.MediaURL != "" {
		apns["linkToMedia"] = o.MediaURL
	}
	if len(o.Buttons) > 0 {
		apns["buttons"] = o.Buttons
	}
	if o.Action != "" {
		apns["action"] = o.Action
	}
	msg := map[string]any{
		"from":       env.ApplicationID,
		"to":         token,
		"title":      o.Title,
		"text":       o.Text,
		"badge":      o.Badge,
		"validity":   o.Validity,
		"priority":   string(o.Priority),
		"silentPush": o.SilentPush,
		"apns":       apns,
	}
	if o.Options != nil {
		msg["options"] = o.Options
	}
	return Request{
		Operation: "send-message",
		Method:    "POST",
		Path:      "api/messages",
		Body:      []any{msg},
	}, true
}
