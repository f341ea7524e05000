package judge

import (
	"bytes"
	"codetective/internal/common"
	"codetective/internal/platform/config"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// remoteRequest is the provider wire format (JDoodle-compatible).
type remoteRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	Script       string `json:"script"`
	Language     string `json:"language"`
	VersionIndex string `json:"versionIndex"`
	Stdin        string `json:"stdin,omitempty"`
}

type remoteResponse struct {
	Output            string `json:"output"`
	StatusCode        int    `json:"statusCode"`
	Memory            string `json:"memory"`  // kb, as string
	CPUTime           string `json:"cpuTime"` // seconds, as string
	CompilationStatus string `json:"compilationStatus,omitempty"`
}

// RemoteBackend is the HTTP execution provider.
type RemoteBackend struct {
	url          string
	clientID     string
	clientSecret string
	timeout      time.Duration
	client       *http.Client
}

func NewRemoteBackend(cfg *config.Config) *RemoteBackend {
	timeout := time.Duration(cfg.ExecutorTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteBackend{
		url:          cfg.ExecutorURL,
		clientID:     cfg.ExecutorClientID,
		clientSecret: cfg.ExecutorClientSecret,
		timeout:      timeout,
		client:       &http.Client{Timeout: timeout},
	}
}

func (b *RemoteBackend) Name() string { return "remote" }

// Run posts the code to the provider. Transport problems (network down,
// non-2xx, deadline while connecting) surface as ErrServiceUnavailable so
// the grader can fall back; a run that the provider reports as exceeding
// its limits comes back as a runtime error result.
func (b *RemoteBackend) Run(ctx context.Context, code, language, stdin string) (*RunResult, error) {
	lv, ok := languageVersions[language]
	if !ok {
		return nil, fmt.Errorf("language %q not supported by remote executor: %w", language, common.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	payload, err := json.Marshal(remoteRequest{
		ClientID:     b.clientID,
		ClientSecret: b.clientSecret,
		Script:       code,
		Language:     lv.Language,
		VersionIndex: lv.VersionIndex,
		Stdin:        stdin,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal executor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build executor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			// The provider accepted the work but never answered in time;
			// report it as a runtime timeout rather than leaving the
			// submission pending.
			return &RunResult{
				StatusCode:      http.StatusRequestTimeout,
				Phase:           PhaseRuntime,
				ErrorOutput:     "execution timed out",
				ExecutionTimeMs: int(time.Since(started).Milliseconds()),
			}, nil
		}
		return nil, fmt.Errorf("executor request failed: %w", common.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("executor returned status %d: %s: %w", resp.StatusCode, string(body), common.ErrServiceUnavailable)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode executor response: %w", common.ErrServiceUnavailable)
	}

	result := &RunResult{
		StatusCode:      out.StatusCode,
		Output:          out.Output,
		ExecutionTimeMs: parseCPUTimeMs(out.CPUTime),
		MemoryKb:        parseMemoryKb(out.Memory),
	}

	switch {
	case out.StatusCode != 200 || strings.EqualFold(out.CompilationStatus, "error"):
		result.Phase = PhaseCompile
		result.ErrorOutput = out.Output
	case looksLikeRuntimeError(out.Output):
		result.Phase = PhaseRuntime
		result.ErrorOutput = out.Output
	default:
		result.Phase = PhaseOK
	}
	return result, nil
}

func parseCPUTimeMs(cpuTime string) int {
	secs, err := strconv.ParseFloat(strings.TrimSpace(cpuTime), 64)
	if err != nil {
		return 0
	}
	return int(secs * 1000)
}

func parseMemoryKb(memory string) int {
	kb, err := strconv.Atoi(strings.TrimSpace(memory))
	if err != nil {
		return 0
	}
	return kb
}

// The provider folds stderr into output; recognize the common crash
// banners so they grade as runtime errors instead of wrong answers.
func looksLikeRuntimeError(output string) bool {
	for _, marker := range []string{"Traceback (most recent call last)", "Exception in thread", "panic:", "Segmentation fault"} {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}
