package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shelf-cms/shelf/adapters/clock"
	"github.com/shelf-cms/shelf/ports"
)

const testSecret = "0123456789abcdef0123456789abcdef" // 32 chars

func newManager(t *testing.T, cfg Config, clk *clock.Fake) *Manager {
	t.Helper()
	var c ports.Clock
	if clk != nil {
		c = clk
	}
	m, err := New(cfg, c)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestNew_SecretTooShort(t *testing.T) {
	if _, err := New(Config{Secret: "short"}, nil); err == nil {
		t.Error("New() = nil, want error for short secret")
	}
}

func TestNew_Defaults(t *testing.T) {
	m := newManager(t, Config{Secret: testSecret}, nil)
	if m.MaxAge() != DefaultMaxAge {
		t.Errorf("MaxAge() = %v, want %v", m.MaxAge(), DefaultMaxAge)
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	m := newManager(t, Config{Secret: testSecret}, clk)

	token, _, err := m.Issue(Data{
		ItemID:  "user-1",
		ListKey: "User",
		Data:    map[string]any{"name": "Ada"},
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.ItemID != "user-1" || got.ListKey != "User" {
		t.Errorf("Verify() = %+v", got)
	}
	if got.Data["name"] != "Ada" {
		t.Errorf("Verify() data = %v, want name Ada", got.Data)
	}
}

func TestVerify_Expired(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	m := newManager(t, Config{Secret: testSecret, MaxAge: time.Hour}, clk)

	token, _, err := m.Issue(Data{ItemID: "user-1", ListKey: "User"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clk.Advance(59 * time.Minute)
	if _, err := m.Verify(token); err != nil {
		t.Fatalf("Verify() before expiry error = %v", err)
	}

	clk.Advance(2 * time.Minute)
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Verify() after expiry = %v, want ErrInvalidSession", err)
	}
}

func TestVerify_RotatedSecretInvalidatesSessions(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	m1 := newManager(t, Config{Secret: testSecret}, clk)
	m2 := newManager(t, Config{Secret: strings.Repeat("x", 32)}, clk)

	token, _, err := m1.Issue(Data{ItemID: "user-1", ListKey: "User"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := m2.Verify(token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Verify() with rotated secret = %v, want ErrInvalidSession", err)
	}
}

func TestVerify_Tampered(t *testing.T) {
	m := newManager(t, Config{Secret: testSecret}, nil)

	token, _, err := m.Issue(Data{ItemID: "user-1", ListKey: "User"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := m.Verify(tampered); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Verify() tampered = %v, want ErrInvalidSession", err)
	}
}

func TestStartReadEnd_Cookie(t *testing.T) {
	m := newManager(t, Config{Secret: testSecret}, nil)

	rec := httptest.NewRecorder()
	if err := m.Start(rec, Data{ItemID: "user-1", ListKey: "User"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Start() set %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != DefaultCookieName {
		t.Errorf("cookie name = %q, want %q", c.Name, DefaultCookieName)
	}
	if !c.HttpOnly {
		t.Error("cookie should be HttpOnly")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie SameSite = %v, want Lax", c.SameSite)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	data, err := m.Read(req)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if data.ItemID != "user-1" {
		t.Errorf("Read() item = %q, want user-1", data.ItemID)
	}

	// End clears the cookie.
	rec2 := httptest.NewRecorder()
	m.End(rec2)
	cleared := rec2.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Errorf("End() cookies = %v, want a single expired cookie", cleared)
	}
}

func TestRead_NoCookie(t *testing.T) {
	m := newManager(t, Config{Secret: testSecret}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := m.Read(req); !errors.Is(err, ErrNoSession) {
		t.Errorf("Read() = %v, want ErrNoSession", err)
	}
}
