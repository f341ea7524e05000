package judge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codetective/internal/common"
	"codetective/internal/platform/config"
)

func newTestRemote(url string, timeoutMs int) *RemoteBackend {
	return NewRemoteBackend(&config.Config{
		ExecutorURL:          url,
		ExecutorClientID:     "client",
		ExecutorClientSecret: "secret",
		ExecutorTimeoutMs:    timeoutMs,
	})
}

func remoteHandler(t *testing.T, resp remoteResponse) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req remoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// The request carries the provider-side slug, not the grading one.
		if req.Language != "python3" || req.VersionIndex != "4" {
			t.Errorf("wire language %q/%q, want python3/4", req.Language, req.VersionIndex)
		}
		if req.ClientID != "client" || req.ClientSecret != "secret" {
			t.Error("credentials missing from request")
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func TestRemoteRunOK(t *testing.T) {
	srv := httptest.NewServer(remoteHandler(t, remoteResponse{
		Output:     "42\n",
		StatusCode: 200,
		Memory:     "10240",
		CPUTime:    "0.12",
	}))
	defer srv.Close()

	b := newTestRemote(srv.URL, 5000)
	result, err := b.Run(context.Background(), "print(42)", "python", "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Phase != PhaseOK {
		t.Errorf("phase %s, want ok", result.Phase)
	}
	if result.Output != "42\n" {
		t.Errorf("output %q", result.Output)
	}
	if result.ExecutionTimeMs != 120 {
		t.Errorf("cpu time %dms, want 120", result.ExecutionTimeMs)
	}
	if result.MemoryKb != 10240 {
		t.Errorf("memory %dkb, want 10240", result.MemoryKb)
	}
}

func TestRemoteCompileErrorPhase(t *testing.T) {
	srv := httptest.NewServer(remoteHandler(t, remoteResponse{
		Output:            "SyntaxError: invalid syntax",
		StatusCode:        200,
		CompilationStatus: "error",
	}))
	defer srv.Close()

	b := newTestRemote(srv.URL, 5000)
	result, err := b.Run(context.Background(), "def f(:", "python", "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Phase != PhaseCompile {
		t.Errorf("phase %s, want compile_error", result.Phase)
	}
	if result.ErrorOutput == "" {
		t.Error("compile error output missing")
	}
}

func TestRemoteRuntimeBannerPhase(t *testing.T) {
	srv := httptest.NewServer(remoteHandler(t, remoteResponse{
		Output:     "Traceback (most recent call last):\n  ZeroDivisionError",
		StatusCode: 200,
	}))
	defer srv.Close()

	b := newTestRemote(srv.URL, 5000)
	result, err := b.Run(context.Background(), "1/0", "python", "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Phase != PhaseRuntime {
		t.Errorf("phase %s, want runtime_error", result.Phase)
	}
}

func TestRemoteTimeoutBecomesRuntimeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	b := newTestRemote(srv.URL, 50)
	result, err := b.Run(context.Background(), "while True: pass", "python", "")
	if err != nil {
		t.Fatalf("a timed-out run must grade, not error: %v", err)
	}
	if result.Phase != PhaseRuntime {
		t.Errorf("phase %s, want runtime_error", result.Phase)
	}
	if result.ErrorOutput != "execution timed out" {
		t.Errorf("error output %q", result.ErrorOutput)
	}
}

func TestRemoteTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	b := newTestRemote(srv.URL, 1000)
	if _, err := b.Run(context.Background(), "print(1)", "python", ""); !errors.Is(err, common.ErrServiceUnavailable) {
		t.Errorf("dead provider: got %v, want ErrServiceUnavailable", err)
	}
}

func TestRemoteNon200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	b := newTestRemote(srv.URL, 1000)
	if _, err := b.Run(context.Background(), "print(1)", "python", ""); !errors.Is(err, common.ErrServiceUnavailable) {
		t.Errorf("provider 429: got %v, want ErrServiceUnavailable", err)
	}
}

func TestRemoteRejectsUnknownLanguage(t *testing.T) {
	b := newTestRemote("http://127.0.0.1:0", 1000)
	if _, err := b.Run(context.Background(), "x", "python3", ""); !errors.Is(err, common.ErrValidation) {
		t.Errorf("provider-side slug as grading language: got %v, want ErrValidation", err)
	}
}
