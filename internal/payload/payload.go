// Package payload decodes the loosely-typed notification JSON into a typed
// view. Fields the sender did not set are simply absent; a malformed or
// mistyped field never fails the whole decode.
package payload

import (
	"strconv"

	"github.com/antonholmquist/jason"
)

// Button is an action button attached to an inbound push.
type Button struct {
	Title  string
	Action string
}

// Notification is the decoded view over a push payload. PushID is valid
// only when HasPushID is set; string fields are empty when absent.
type Notification struct {
	PushID    int64
	HasPushID bool
	ActionID  string
	Silent    bool
	Title     string
	Body      string
	Sound     string
	MediaURL  string
	Badge     int64
	Buttons   []Button
}

// Decode parses a raw notification payload. Only top-level JSON syntax
// errors are reported; everything inside is optional.
func Decode(data []byte) (Notification, error) {
	obj, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return Notification{}, err
	}

	var n Notification
	n.PushID, n.HasPushID = pushID(obj)

	if v, err := obj.GetString("aps", "devino", "pushActionId"); err == nil {
		n.ActionID = v
	}
	if v, err := obj.GetBoolean("aps", "devino", "silent"); err == nil {
		n.Silent = v
	}
	if v, err := obj.GetString("aps", "devino", "media-url"); err == nil {
		n.MediaURL = v
	}
	if v, err := obj.GetString("aps", "devino", "alert", "title"); err == nil {
		n.Title = v
	}
	if v, err := obj.GetString("aps", "devino", "alert", "body"); err == nil {
		n.Body = v
	}
	if v, err := obj.GetString("aps", "devino", "alert", "sound"); err == nil {
		n.Sound = v
	}
	if v, err := obj.GetInt64("aps", "badge"); err == nil {
		n.Badge = v
	}
	if actions, err := obj.GetObjectArray("aps", "devino", "actions"); err == nil {
		for _, act := range actions {
			title, terr := act.GetString("title")
			action, aerr := act.GetString("action")
			if terr != nil || aerr != nil {
				continue
			}
			n.Buttons = append(n.Buttons, Button{Title: title, Action: action})
		}
	}
	return n, nil
}

// pushID accepts both wire encodings of the identifier: a native integer
// and a numeric string.
func pushID(obj *jason.Object) (int64, bool) {
	if v, err := obj.GetInt64("aps", "pushId"); err == nil {
		return v, true
	}
	if s, err := obj.GetString("aps", "pushId"); err == nil {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
