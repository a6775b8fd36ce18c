package uploader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wxforward/wulike/internal/config"
	"github.com/wxforward/wulike/internal/record"
	"github.com/wxforward/wulike/internal/wunderground"
)

func fptr(v float64) *float64 { return &v }

func testRecord() *record.ArchiveRecord {
	return &record.ArchiveRecord{
		StationID:    "S1",
		Timestamp:    time.Now().UTC(),
		TemperatureC: fptr(21.0),
	}
}

func testConfig(serverURL string) config.UploadConfig {
	return config.UploadConfig{
		Enable:       true,
		Station:      "S1",
		Password:     "pw",
		ServerURL:    serverURL,
		SoftwareType: "wulike",
		MaxTries:     3,
		RetryWait:    time.Millisecond,
		Timeout:      time.Second,
		MaxBacklog:   10,
		LogSuccess:   true,
		LogFailure:   true,
	}
}

func TestUploadSuccess(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if got := r.URL.Query().Get("action"); got != "updateraw" {
			t.Errorf("expected action=updateraw, got %q", got)
		}
		if got := r.URL.Query().Get("ID"); got != "S1" {
			t.Errorf("expected ID=S1, got %q", got)
		}
		w.Write([]byte("success"))
	}))
	defer srv.Close()

	up := New(testConfig(srv.URL), srv.Client())
	if err := up.Upload(context.Background(), testRecord()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected exactly 1 request, got %d", requests)
	}
}

// TestUploadRetryCount verifies that a persistently failing server sees
// exactly MaxTries attempts before the record is given up on.
func TestUploadRetryCount(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	up := New(cfg, srv.Client())

	err := up.Upload(context.Background(), testRecord())
	if err == nil {
		t.Fatal("expected an error from a persistently failing server")
	}
	if requests != cfg.MaxTries {
		t.Fatalf("expected %d attempts, got %d", cfg.MaxTries, requests)
	}
}

// TestUploadRecoversMidway verifies a transient failure is retried through
// to success.
func TestUploadRecoversMidway(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("success"))
	}))
	defer srv.Close()

	up := New(testConfig(srv.URL), srv.Client())
	if err := up.Upload(context.Background(), testRecord()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if requests != 3 {
		t.Fatalf("expected 3 attempts, got %d", requests)
	}
}

// TestUploadBadLoginNoRetry verifies a bad-login body aborts immediately.
func TestUploadBadLoginNoRetry(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte("INVALIDPASSWORDID"))
	}))
	defer srv.Close()

	up := New(testConfig(srv.URL), srv.Client())
	err := up.Upload(context.Background(), testRecord())
	if !errors.Is(err, wunderground.ErrBadLogin) {
		t.Fatalf("expected ErrBadLogin, got %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected exactly 1 attempt for bad login, got %d", requests)
	}
}

// TestUploadDisabledNeverRequests verifies the disabled path issues no
// request at all.
func TestUploadDisabledNeverRequests(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Enable = false
	up := New(cfg, srv.Client())

	if err := up.Upload(context.Background(), testRecord()); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if requests != 0 {
		t.Fatalf("disabled uploader issued %d requests", requests)
	}
}

func TestUploadContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	up := New(testConfig(srv.URL), srv.Client())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := up.Upload(ctx, testRecord()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
