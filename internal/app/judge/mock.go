package judge

import (
	"context"
	"strings"
)

// Markers a mock submission can carry to force a failure path. Tests and
// demo tasks use these instead of random outcomes so grading stays
// deterministic.
const (
	MarkerCompileError = "//!compile-error"
	MarkerRuntimeError = "//!runtime-error"
)

// MockBackend is the deterministic in-process double. By default it
// echoes stdin, which makes a task with testCases of the form
// {input: x, expectedOutput: x} pass and anything else fail predictably.
// OutputFor can be replaced to script exact outputs per run.
type MockBackend struct {
	OutputFor func(code, stdin string) string
	// Err, when set, is returned from every Run. Used to simulate an
	// unavailable provider.
	Err error
}

func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

func (b *MockBackend) Name() string { return "mock" }

func (b *MockBackend) Run(ctx context.Context, code, language, stdin string) (*RunResult, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.Contains(code, MarkerCompileError) {
		return &RunResult{
			StatusCode:  400,
			Phase:       PhaseCompile,
			ErrorOutput: "syntax error in submitted code",
		}, nil
	}
	if strings.Contains(code, MarkerRuntimeError) {
		return &RunResult{
			StatusCode:  200,
			Phase:       PhaseRuntime,
			ErrorOutput: "submitted code threw an exception during execution",
		}, nil
	}

	output := stdin
	if b.OutputFor != nil {
		output = b.OutputFor(code, stdin)
	}
	return &RunResult{
		StatusCode:      200,
		Phase:           PhaseOK,
		Output:          output,
		ExecutionTimeMs: 5,
		MemoryKb:        10240,
	}, nil
}
