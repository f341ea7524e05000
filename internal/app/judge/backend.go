package judge

import (
	"codetective/internal/platform/config"
	"context"
	"fmt"
	"sort"
)

// Phase classifies how a run ended. Compilation and runtime failures are
// distinct, expected outcomes; transport failures are Go errors instead.
type Phase string

const (
	PhaseOK      Phase = "ok"
	PhaseCompile Phase = "compile_error"
	PhaseRuntime Phase = "runtime_error"
)

// RunResult is the execution provider's answer for a single run.
type RunResult struct {
	StatusCode      int    `json:"status_code"`
	Phase           Phase  `json:"phase"`
	Output          string `json:"output"`
	ErrorOutput     string `json:"error_output,omitempty"`
	ExecutionTimeMs int    `json:"execution_time_ms"`
	MemoryKb        int    `json:"memory_kb"`
}

// Backend runs submitted code. Implementations must respect ctx deadlines:
// a run that exceeds the configured limit comes back as a runtime error,
// never hangs the caller.
type Backend interface {
	Run(ctx context.Context, code, language, stdin string) (*RunResult, error)
	Name() string
}

// languageVersion pins a provider-side language slug and version, shaped
// after the JDoodle execute API.
type languageVersion struct {
	Language     string
	VersionIndex string
}

var languageVersions = map[string]languageVersion{
	"javascript": {"nodejs", "4"},
	"python":     {"python3", "4"},
	"java":       {"java", "4"},
	"cpp":        {"cpp17", "1"},
	"c":          {"c", "5"},
	"csharp":     {"csharp", "4"},
	"go":         {"go", "4"},
	"rust":       {"rust", "4"},
	"kotlin":     {"kotlin", "2"},
	"swift":      {"swift", "4"},
	"php":        {"php", "4"},
	"ruby":       {"ruby", "4"},
}

// SupportedLanguages returns the grading language slugs, sorted.
func SupportedLanguages() []string {
	langs := make([]string, 0, len(languageVersions))
	for l := range languageVersions {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

func IsSupportedLanguage(language string) bool {
	_, ok := languageVersions[language]
	return ok
}

// NewFromConfig selects the provider at construction time. Callers depend
// on the Backend interface only, so the remote client and the
// deterministic double stay interchangeable.
func NewFromConfig(cfg *config.Config) (Backend, error) {
	switch cfg.ExecutorProvider {
	case "remote":
		return NewRemoteBackend(cfg), nil
	case "mock", "":
		return NewMockBackend(), nil
	default:
		return nil, fmt.Errorf("unknown executor provider %q", cfg.ExecutorProvider)
	}
}
