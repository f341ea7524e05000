package model

import "time"

// SubmissionKind selects the grading path.
type SubmissionKind string

const (
	KindCode   SubmissionKind = "code"   // hacker task, judged against test cases
	KindPuzzle SubmissionKind = "puzzle" // detective answer, matched against the solution
)

// Submission is the raw player input handed to the grader. It is not
// persisted; only the derived SubmissionResult and score delta survive it.
type Submission struct {
	ID          string         `json:"id"` // request id, used to attribute the async result
	RoomID      string         `json:"room_id"`
	PlayerID    string         `json:"player_id"`
	TargetID    string         `json:"target_id"` // task or puzzle id
	Kind        SubmissionKind `json:"kind"`
	Language    string         `json:"language,omitempty"` // code submissions only
	Code        string         `json:"code,omitempty"`
	Answer      string         `json:"answer,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// TestCaseResult is the per-case outcome inside a SubmissionResult,
// in test-case order.
type TestCaseResult struct {
	Passed          bool   `json:"passed"`
	Input           string `json:"input"`
	ExpectedOutput  string `json:"expected_output"`
	ActualOutput    string `json:"actual_output"`
	ExecutionTimeMs int    `json:"execution_time_ms"`
}

// SubmissionResult is the graded outcome. Success is true iff every test
// case passed (or, for runs without test cases, the run completed without
// compilation or runtime error). Grading failures like a compile error are
// expected outcomes and live here, not in a Go error.
type SubmissionResult struct {
	SubmissionID     string           `json:"submission_id"`
	RoomID           string           `json:"room_id"`
	PlayerID         string           `json:"player_id"`
	TargetID         string           `json:"target_id"`
	Kind             SubmissionKind   `json:"kind"`
	Success          bool             `json:"success"`
	Score            int              `json:"score"` // 0..100
	Message          string           `json:"message"`
	CompilationError string           `json:"compilation_error,omitempty"`
	RuntimeError     string           `json:"runtime_error,omitempty"`
	Output           string           `json:"output,omitempty"`
	Degraded         bool             `json:"degraded,omitempty"` // graded via the fallback path
	TestResults      []TestCaseResult `json:"test_results,omitempty"`
	PointsAwarded    int              `json:"points_awarded"`
	GradedAt         time.Time        `json:"graded_at"`
}

// GradingJob is the queue payload carried from submit to the grading
// workers. The submission travels inline so a worker never needs to read
// session state to grade.
type GradingJob struct {
	Submission Submission `json:"submission"`
	Attempts   int        `json:"attempts"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
}
