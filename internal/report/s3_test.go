package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
)

func TestS3Destination_Write(t *testing.T) {
	var (
		mu       sync.Mutex
		gotPath  string
		gotBody  []byte
		gotCType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotPath, gotBody, gotCType = r.URL.Path, body, r.Header.Get("Content-Type")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "none"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "none"))

	dest, err := NewS3Destination(context.Background(), "purge-reports", "misp-purge/", "us-east-1", srv.URL)
	if err != nil {
		t.Fatalf("NewS3Destination: %v", err)
	}
	if got := dest.Key("pr-1.jsonl"); got != "misp-purge/pr-1.jsonl" {
		t.Errorf("Key = %q", got)
	}

	data := []byte(`{"type":"header"}` + "\n")
	if err := dest.Write(context.Background(), "pr-1.jsonl", data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/purge-reports/misp-purge/pr-1.jsonl" {
		t.Errorf("path = %q", gotPath)
	}
	if string(gotBody) != string(data) {
		t.Errorf("body = %q", gotBody)
	}
	if gotCType != "application/x-ndjson" {
		t.Errorf("content type = %q", gotCType)
	}
}

func TestS3Destination_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `<Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
	}))
	defer srv.Close()

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "none"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "none"))

	dest, err := NewS3Destination(context.Background(), "b", "", "us-east-1", srv.URL)
	if err != nil {
		t.Fatalf("NewS3Destination: %v", err)
	}
	if err := dest.Write(context.Background(), "pr-1.jsonl", []byte("x")); err == nil {
		t.Fatal("expected error from 403 response")
	}
}
