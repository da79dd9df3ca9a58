package store

import (
	"errors"
	"testing"
)

func TestUnactivatedStore(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := s.Snapshot(); ok {
		t.Fatal("snapshot should report unactivated")
	}
	if err := s.SetDeviceToken("abc"); !errors.Is(err, ErrNotActivated) {
		t.Fatalf("err=%v, expected ErrNotActivated", err)
	}
	if s.FirstLaunch() {
		t.Fatal("first launch is meaningless before activation")
	}
}

func TestActivatePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Activate(Settings{
		APIKey:        "key",
		APIHost:       "api.devino.example",
		APIPort:       6602,
		ApplicationID: "com.devino.demo",
	}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := s.SetDeviceToken("cafe01"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if err := s.SetSubscribed(true); err != nil {
		t.Fatalf("set subscribed: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	st, ok := reopened.Snapshot()
	if !ok {
		t.Fatal("reopened store lost activation")
	}
	if st.APIKey != "key" || st.APIHost != "api.devino.example" || st.APIPort != 6602 {
		t.Errorf("settings=%+v", st)
	}
	if st.DeviceToken != "cafe01" {
		t.Errorf("token=%q", st.DeviceToken)
	}
	if st.Subscribed == nil || !*st.Subscribed {
		t.Errorf("subscribed=%v", st.Subscribed)
	}
}

func TestReactivationKeepsToken(t *testing.T) {
	s, _ := Open(t.TempDir())
	_ = s.Activate(Settings{APIKey: "k1", APIHost: "h1", ApplicationID: "a"})
	_ = s.SetDeviceToken("tok")
	_ = s.Activate(Settings{APIKey: "k2", APIHost: "h2", ApplicationID: "a"})

	st, _ := s.Snapshot()
	if st.APIKey != "k2" || st.APIHost != "h2" {
		t.Errorf("settings not replaced: %+v", st)
	}
	if st.DeviceToken != "tok" {
		t.Errorf("token lost on reactivation: %q", st.DeviceToken)
	}
}

func TestSetAPIHost(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)
	_ = s.Activate(Settings{APIKey: "k", APIHost: "old", ApplicationID: "a"})
	if err := s.SetAPIHost("new"); err != nil {
		t.Fatalf("set host: %v", err)
	}
	reopened, _ := Open(dir)
	st, _ := reopened.Snapshot()
	if st.APIHost != "new" {
		t.Errorf("host=%q", st.APIHost)
	}
}

func TestFirstLaunchAnswersTrueOnce(t *testing.T) {
	s, _ := Open(t.TempDir())
	_ = s.Activate(Settings{APIKey: "k", APIHost: "h", ApplicationID: "a"})
	if !s.FirstLaunch() {
		t.Fatal("expected first launch")
	}
	if s.FirstLaunch() {
		t.Fatal("first launch must flip after one read")
	}
}
