package permitclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/siteops/permitboard/internal/permits"
)

// TestNewClient tests client creation.
func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/", 0)

	if client.BaseURL != "http://localhost:8080" {
		t.Errorf("expected trailing slash removed, got %s", client.BaseURL)
	}
	if client.HTTPClient.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, client.HTTPClient.Timeout)
	}
	if client.HTTPClient.Jar == nil {
		t.Error("expected a cookie jar")
	}
}

func TestStatus_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Errorf("expected path /api/status, got %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("expected GET method, got %s", r.Method)
		}
		if r.Header.Get(RequestIDHeader) == "" {
			t.Error("expected request id header")
		}
		if r.Header.Get("Cache-Control") != "no-store" {
			t.Errorf("expected no-store, got %q", r.Header.Get("Cache-Control"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"updatedAt":"2026-03-04T05:00:00+00:00","overdueMinutes":90,"jobs":[
			{"id":"1","riskType":"height","department":"RM1","point":"Silo top","requester":"anan","startedAtISO":"2026-03-04T04:00:00Z"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	snap, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.OverdueMinutes != 90 {
		t.Errorf("expected overdueMinutes 90, got %d", snap.OverdueMinutes)
	}
	if len(snap.Jobs) != 1 || snap.Jobs[0].RiskType != permits.RiskHeight {
		t.Fatalf("unexpected jobs: %+v", snap.Jobs)
	}
	if snap.Jobs[0].Owner() != "anan" {
		t.Errorf("expected owner anan, got %q", snap.Jobs[0].Owner())
	}
}

func TestStatus_DefaultsMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	snap, err := NewClient(server.URL, time.Second).Status(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Jobs == nil {
		t.Error("expected non-nil jobs slice")
	}
	if snap.OverdueMinutes != permits.DefaultOverdueMinutes {
		t.Errorf("expected default threshold, got %d", snap.OverdueMinutes)
	}
}

func TestStatus_MixedIDTypes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jobs":[{"id":1700000000000,"riskType":"height","department":"RM1","point":"A"},{"id":"abc","riskType":"confined","department":"RM2","point":"B"}],"overdueMinutes":60}`))
	}))
	defer server.Close()

	snap, err := NewClient(server.URL, time.Second).Status(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(snap.Jobs))
	}
	if snap.Jobs[0].ID != "1700000000000" || snap.Jobs[1].ID != "abc" {
		t.Errorf("unexpected ids: %q, %q", snap.Jobs[0].ID, snap.Jobs[1].ID)
	}
}

func TestStatus_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).Status(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 status")
	}
	if !errors.Is(err, ErrNon2xxStatus) {
		t.Errorf("expected ErrNon2xxStatus, got %v", err)
	}
	if errors.Is(err, ErrUnauthenticated) {
		t.Error("500 must not be reported as unauthenticated")
	}
}

func TestStatus_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not valid json"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).Status(context.Background())
	if !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("expected ErrInvalidJSON, got %v", err)
	}
}

func TestStatus_ResponseTooBig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", MaxResponseSize+10)))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).Status(context.Background())
	if !errors.Is(err, ErrResponseTooBig) {
		t.Errorf("expected ErrResponseTooBig, got %v", err)
	}
}

func TestOpen_SendsPayload(t *testing.T) {
	var got OpenRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/open" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"overdueMinutes":120,"jobs":[{"id":"9","riskType":"confined","department":"Kiln1","point":"Cyclone"}]}`))
	}))
	defer server.Close()

	req := OpenRequest{
		RiskType:       permits.RiskConfined,
		Department:     "Kiln1",
		Point:          "Cyclone",
		Requester:      "anan",
		StartedAtISO:   "2026-03-04T01:00:00Z",
		OverdueMinutes: 120,
	}
	snap, err := NewClient(server.URL, time.Second).Open(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != req {
		t.Errorf("expected payload %+v, got %+v", req, got)
	}
	if len(snap.Jobs) != 1 || snap.Jobs[0].ID != "9" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestOpen_Unauthenticated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).Open(context.Background(), OpenRequest{})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestClose_Forbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["id"] != "42" {
			t.Errorf("expected id 42, got %q", body["id"])
		}
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"forbidden: opened by 'anan'"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).Close(context.Background(), "42")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if msg := ServerMessage(err); msg != "forbidden: opened by 'anan'" {
		t.Errorf("expected server message, got %q", msg)
	}
}

func TestSetConfig(t *testing.T) {
	t.Run("state echoed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"overdueMinutes":45,"jobs":[]}`))
		}))
		defer server.Close()

		snap, err := NewClient(server.URL, time.Second).SetConfig(context.Background(), 45)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap == nil || snap.OverdueMinutes != 45 {
			t.Errorf("expected snapshot with 45, got %+v", snap)
		}
	})

	t.Run("plain ack", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		snap, err := NewClient(server.URL, time.Second).SetConfig(context.Background(), 45)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap != nil {
			t.Errorf("expected nil snapshot for plain ack, got %+v", snap)
		}
	})
}

func TestLogin_ErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"error":"invalid login"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).Login(context.Background(), "anan", "123456")
	if err == nil {
		t.Fatal("expected error")
	}
	if ServerMessage(err) != "invalid login" {
		t.Errorf("expected server message, got %q", ServerMessage(err))
	}
}

func TestSessionCookieRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		w.Write([]byte(`{"ok":true,"user":"anan"}`))
	})
	mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"ok":false}`))
			return
		}
		w.Write([]byte(`{"ok":true,"user":"anan","role":"admin"}`))
	})
	mux.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	ctx := context.Background()

	me, err := client.Me(ctx)
	if err != nil || me != nil {
		t.Fatalf("expected no session before login, got %+v, %v", me, err)
	}

	if _, err := client.Login(ctx, "anan", "123456"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	me, err = client.Me(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if me == nil || me.User != "anan" || me.Role != permits.RoleAdmin {
		t.Fatalf("unexpected session: %+v", me)
	}

	client.Logout(ctx)

	me, err = client.Me(ctx)
	if err != nil || me != nil {
		t.Errorf("expected cookie dropped after logout, got %+v, %v", me, err)
	}
}

func TestLogout_SwallowsNetworkErrors(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	client.Logout(context.Background())
}
