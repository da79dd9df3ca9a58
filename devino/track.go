package devino

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/devinotele/pushsdk-go/internal/api"
	"github.com/devinotele/pushsdk-go/internal/payload"
)

// TrackAppLaunch reports an application start. When the persisted
// subscription flag disagrees with the current permission state, a
// subscription update is sent along.
func (c *Client) TrackAppLaunch() {
	st, ok := c.store.Snapshot()
	if !ok {
		c.logger.Warn().Msg("sdk not activated, app launch not tracked")
		return
	}
	if st.DeviceToken == "" {
		c.logger.Info().Msg("no device token registered, app launch not tracked")
		return
	}
	c.submit(api.AppStart{})

	if st.Subscribed != nil && c.authorized != nil {
		if granted := c.authorized(); granted != *st.Subscribed {
			c.submit(api.SubscriptionChanged{Subscribed: granted})
		}
	}
}

// TrackNotificationPermissionsGranted reports a permission change. Repeat
// calls with an unchanged state send nothing.
func (c *Client) TrackNotificationPermissionsGranted(granted bool) {
	st, ok := c.store.Snapshot()
	if !ok {
		c.logger.Warn().Msg("sdk not activated, permission change not tracked")
		return
	}
	if st.Subscribed != nil && *st.Subscribed == granted {
		return
	}
	c.submit(api.SubscriptionChanged{Subscribed: granted})
	if err := c.store.SetSubscribed(granted); err != nil {
		c.logger.Error().Err(err).Msg("persist subscription flag")
	}
}

// TrackReceivedNotification acknowledges delivery of an inbound push. A
// payload without a usable push id is skipped, not an error.
func (c *Client) TrackReceivedNotification(data []byte) {
	n, err := payload.Decode(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("undecodable notification payload")
		return
	}
	if !n.HasPushID {
		c.logger.Info().Msg("notification without push id, delivery not tracked")
		return
	}
	c.submit(api.PushEvent{PushID: n.PushID, Action: api.ActionDelivered})
}

// TrackNotificationResponse reports that the user acted on a push. For the
// platform's default tap (or an empty identifier) the action id derived
// from the payload is used; dismiss and custom button identifiers are
// reported verbatim.
func (c *Client) TrackNotificationResponse(data []byte, actionIdentifier string) {
	n, err := payload.Decode(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("undecodable notification payload")
		return
	}
	if !n.HasPushID {
		c.logger.Info().Msg("notification without push id, response not tracked")
		return
	}
	actionID := actionIdentifier
	if actionIdentifier == "" || actionIdentifier == ActionIdentifierDefault {
		actionID = n.ActionID
	}
	c.submit(api.PushEvent{PushID: n.PushID, Action: api.ActionOpened, ActionID: actionID})
}

// TrackCustomEvent reports an application-defined event.
func (c *Client) TrackCustomEvent(name string, params map[string]any) {
	c.submit(api.CustomEvent{Name: name, Data: params})
}

// TrackAppTerminated reports the application going away.
func (c *Client) TrackAppTerminated() {
	c.TrackCustomEvent("device-terminated", nil)
}

// SetUserData updates the profile contact fields and pushes them to the
// backend.
func (c *Client) SetUserData(email, phone string) {
	c.mu.Lock()
	c.email, c.phone = email, phone
	c.mu.Unlock()
	c.submit(api.UserData{Email: email, Phone: phone})
}

// SendGeo reports a single coordinate pair.
func (c *Client) SendGeo(latitude, longitude float64) {
	c.submit(api.GeoUpdate{Longitude: longitude, Latitude: latitude})
}

// QueryLastSubscriptionStatus asks the backend for the last known
// subscription state. Unlike tracking calls this is a one-shot query: it
// is never retried, and transport, status and decode failures are all
// surfaced to the caller.
func (c *Client) QueryLastSubscriptionStatus(ctx context.Context) (bool, error) {
	st, ok := c.store.Snapshot()
	if !ok {
		return false, ErrNotActivated
	}
	req, ok := api.Resolve(api.SubscriptionStatus{}, st.DeviceToken, c.env(st))
	if !ok {
		return false, errors.New("devino: no device token registered")
	}
	status, body, err := c.dispatcher.Do(ctx, req)
	if err != nil {
		return false, err
	}
	if status > 299 {
		return false, fmt.Errorf("devino: subscription status query failed with status %d", status)
	}
	var out struct {
		Result bool `json:"result"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("devino: decode subscription status: %w", err)
	}
	return out.Result, nil
}
