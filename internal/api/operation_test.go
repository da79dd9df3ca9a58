package api

import (
	"testing"
	"time"
)

var testEnv = Env{
	ApplicationID: "com.devino.demo",
	OSVersion:     "17.2",
	AppVersion:    "1.0",
	Language:      "en",
	Subscribed:    true,
}

func TestResolveRequiresToken(t *testing.T) {
	ops := map[string]Operation{
		"users-data":          UserData{},
		"app-start":           AppStart{},
		"custom-event":        CustomEvent{Name: "x"},
		"subscription":        SubscriptionChanged{Subscribed: true},
		"subscription-status": SubscriptionStatus{},
		"geo":                 GeoUpdate{Longitude: 1, Latitude: 2},
		"push-event":          PushEvent{PushID: 1, Action: ActionDelivered},
		"send-message":        SendMessage{Title: "t"},
	}
	for name, op := range ops {
		if _, ok := Resolve(op, "", testEnv); ok {
			t.Errorf("%s: expected drop without a token", name)
		}
	}
}

func TestResolvePathsAndMethods(t *testing.T) {
	tests := []struct {
		op     Operation
		method string
		path   string
	}{
		{UserData{}, "PUT", "sdk/users/abc/data"},
		{AppStart{}, "POST", "sdk/users/abc/app-start"},
		{CustomEvent{Name: "e"}, "POST", "sdk/users/abc/event"},
		{SubscriptionChanged{}, "POST", "sdk/users/abc/subscription"},
		{SubscriptionStatus{}, "GET", "sdk/users/abc/subscription/status"},
		{GeoUpdate{}, "POST", "sdk/users/abc/geo"},
		{PushEvent{PushID: 7, Action: ActionOpened}, "POST", "sdk/messages/events"},
		{SendMessage{}, "POST", "api/messages"},
	}
	for _, tc := range tests {
		req, ok := Resolve(tc.op, "abc", testEnv)
		if !ok {
			t.Fatalf("%T: unexpected drop", tc.op)
		}
		if req.Method != tc.method || req.Path != tc.path {
			t.Errorf("%T: got %s %s, expected %s %s", tc.op, req.Method, req.Path, tc.method, tc.path)
		}
	}
}

func TestAppStartBody(t *testing.T) {
	req, ok := Resolve(AppStart{}, "abc", testEnv)
	if !ok {
		t.Fatal("unexpected drop")
	}
	body, ok := req.Body.(map[string]any)
	if !ok {
		t.Fatalf("body is %T, expected map", req.Body)
	}
	if body["platform"] != "IOS" {
		t.Errorf("platform=%v, expected IOS", body["platform"])
	}
	if body["subscribed"] != true {
		t.Errorf("subscribed=%v, expected true", body["subscribed"])
	}
	if body["applicationId"] != testEnv.ApplicationID {
		t.Errorf("applicationId=%v", body["applicationId"])
	}
	if _, err := ParseReportedTime(body["reportedDateTimeUtc"].(string)); err != nil {
		t.Errorf("reportedDateTimeUtc not parseable: %v", err)
	}
}

func TestPushEventBody(t *testing.T) {
	req, _ := Resolve(PushEvent{PushID: 42, Action: ActionOpened, ActionID: "open-cart"}, "abc", testEnv)
	body := req.Body.(map[string]any)
	if body["pushToken"] != "abc" {
		t.Errorf("pushToken=%v", body["pushToken"])
	}
	if body["pushId"] != int64(42) {
		t.Errorf("pushId=%v", body["pushId"])
	}
	if body["actionType"] != "OPENED" {
		t.Errorf("actionType=%v", body["actionType"])
	}
	if body["actionId"] != "open-cart" {
		t.Errorf("actionId=%v", body["actionId"])
	}

	req, _ = Resolve(PushEvent{PushID: 42, Action: ActionDelivered}, "abc", testEnv)
	body = req.Body.(map[string]any)
	if _, present := body["actionId"]; present {
		t.Error("actionId should be omitted when empty")
	}
}

func TestUserDataBody(t *testing.T) {
	req, _ := Resolve(UserData{Email: "a@b.c", Custom: map[string]any{"plan": "pro"}}, "abc", testEnv)
	body := req.Body.(map[string]any)
	custom := body["customData"].(map[string]any)
	if custom["osVersion"] != "17.2" || custom["plan"] != "pro" {
		t.Errorf("customData=%v", custom)
	}
	if body["email"] != "a@b.c" {
		t.Errorf("email=%v", body["email"])
	}
	if _, present := body["phone"]; present {
		t.Error("phone should be omitted when empty")
	}
}

func TestSendMessageEnvelope(t *testing.T) {
	op := SendMessage{
		Title:    "hello",
		Text:     "world",
		Priority: PriorityHigh,
		Sound:    "ding.wav",
		Buttons:  []Button{{Caption: "Open", Action: "open"}},
	}
	req, _ := Resolve(op, "abc", testEnv)
	batch, ok := req.Body.([]any)
	if !ok || len(batch) != 1 {
		t.Fatalf("body is %T, expected one-element batch", req.Body)
	}
	msg := batch[0].(map[string]any)
	if msg["from"] != testEnv.ApplicationID {
		t.Errorf("from=%v", msg["from"])
	}
	if msg["to"] != "abc" {
		t.Errorf("to=%v", msg["to"])
	}
	if _, present := msg["applicationId"]; present {
		t.Error("messaging API uses from, not applicationId")
	}
	apns := msg["apns"].(map[string]any)
	if apns["sound"] != "ding.wav" {
		t.Errorf("apns.sound=%v", apns["sound"])
	}
}

func TestSubscriptionStatusQuery(t *testing.T) {
	req, _ := Resolve(SubscriptionStatus{}, "abc", testEnv)
	if req.Body != nil {
		t.Error("status query carries no body")
	}
	if got := req.Query.Get("applicationId"); got != testEnv.ApplicationID {
		t.Errorf("applicationId query=%q", got)
	}
}

func TestReportedTimeRoundTrip(t *testing.T) {
	orig := time.Date(2024, 5, 3, 11, 42, 7, 123_000_000, time.UTC)
	s := FormatReportedTime(orig)
	if s != "2024-05-03T11:42:07.123Z" {
		t.Fatalf("formatted %q", s)
	}
	parsed, err := ParseReportedTime(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Equal(orig) {
		t.Errorf("round trip lost precision: %v != %v", parsed, orig)
	}
}
