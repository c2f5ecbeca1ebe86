package permission

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/teslashibe/go-barcode/internal/log"
)

type mockAuthorizer struct {
	status   Status
	granted  bool
	err      error
	requests int
}

func (m *mockAuthorizer) Status(context.Context) Status { return m.status }

func (m *mockAuthorizer) Request(context.Context) (bool, error) {
	m.requests++
	return m.granted, m.err
}

type mockPrompter struct {
	notified []string
}

func (m *mockPrompter) Confirm(context.Context, string) (bool, error) { return false, nil }

func (m *mockPrompter) Notify(title, _ string) {
	m.notified = append(m.notified, title)
}

func TestHasCameraAccess(t *testing.T) {
	tests := []struct {
		name         string
		auth         *mockAuthorizer
		want         bool
		wantRequests int
		wantNotified int
	}{
		{"authorized", &mockAuthorizer{status: Authorized}, true, 0, 0},
		{"denied", &mockAuthorizer{status: Denied}, false, 0, 0},
		{"not determined then granted", &mockAuthorizer{status: NotDetermined, granted: true}, true, 1, 0},
		{"not determined then refused", &mockAuthorizer{status: NotDetermined}, false, 1, 1},
		{"request error counts as refusal", &mockAuthorizer{status: NotDetermined, granted: true, err: errors.New("tty gone")}, false, 1, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prompter := &mockPrompter{}
			b := NewBehaviour(tc.auth, prompter).WithLogger(log.Discard())

			if got := b.HasCameraAccess(context.Background()); got != tc.want {
				t.Errorf("HasCameraAccess: got %v, want %v", got, tc.want)
			}
			if tc.auth.requests != tc.wantRequests {
				t.Errorf("requests: got %d, want %d", tc.auth.requests, tc.wantRequests)
			}
			if len(prompter.notified) != tc.wantNotified {
				t.Errorf("notifications: got %d, want %d", len(prompter.notified), tc.wantNotified)
			}
		})
	}
}

func TestNilPrompter(t *testing.T) {
	b := NewBehaviour(&mockAuthorizer{status: NotDetermined}, nil).WithLogger(log.Discard())
	if b.HasCameraAccess(context.Background()) {
		t.Error("refused request must deny")
	}
}

func TestStaticChecker(t *testing.T) {
	if !Static(true).HasCameraAccess(context.Background()) {
		t.Error("Static(true) denied")
	}
	if Static(false).HasCameraAccess(context.Background()) {
		t.Error("Static(false) granted")
	}
}

func fakeDevices(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "video*")
}

func TestDeviceAuthorizer(t *testing.T) {
	ctx := context.Background()

	t.Run("no devices", func(t *testing.T) {
		a := &DeviceAuthorizer{Pattern: fakeDevices(t)}
		if got := a.Status(ctx); got != Denied {
			t.Errorf("got %v, want denied", got)
		}
	})

	t.Run("accessible without consent", func(t *testing.T) {
		a := &DeviceAuthorizer{Pattern: fakeDevices(t, "video0", "video2")}
		if got := a.Status(ctx); got != Authorized {
			t.Errorf("got %v, want authorized", got)
		}
		if n := len(a.AccessibleDevices()); n != 2 {
			t.Errorf("accessible: got %d, want 2", n)
		}
	})

	t.Run("consent is asked once", func(t *testing.T) {
		asked := 0
		a := &DeviceAuthorizer{
			Pattern: fakeDevices(t, "video0"),
			Consent: func(context.Context) (bool, error) { asked++; return true, nil },
		}
		b := NewBehaviour(a, nil).WithLogger(log.Discard())

		if a.Status(ctx) != NotDetermined {
			t.Fatalf("got %v before consent", a.Status(ctx))
		}
		for i := 0; i < 3; i++ {
			if !b.HasCameraAccess(ctx) {
				t.Fatal("access denied after consent")
			}
		}
		if asked != 1 {
			t.Errorf("consent asked %d times", asked)
		}
	})

	t.Run("refused consent sticks", func(t *testing.T) {
		a := &DeviceAuthorizer{
			Pattern: fakeDevices(t, "video0"),
			Consent: func(context.Context) (bool, error) { return false, nil },
		}
		if granted, _ := a.Request(ctx); granted {
			t.Fatal("expected refusal")
		}
		if a.Status(ctx) != Denied {
			t.Errorf("got %v, want denied", a.Status(ctx))
		}
	})
}

func TestParseYes(t *testing.T) {
	for in, want := range map[string]bool{"y": true, "YES ": true, "": false, "n": false, "maybe": false} {
		if got := parseYes(in); got != want {
			t.Errorf("parseYes(%q) = %v", in, got)
		}
	}
}

func TestStatusString(t *testing.T) {
	if NotDetermined.String() != "notDetermined" || Denied.String() != "denied" || Authorized.String() != "authorized" {
		t.Error("unexpected status names")
	}
}
