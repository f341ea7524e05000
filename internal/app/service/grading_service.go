package service

import (
	"codetective/internal/app/judge"
	"codetective/internal/common"
	"codetective/internal/domain/model"
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"
)

const maxCodeLength = 50000

// GradingService turns raw submissions into scored results. Grading
// failures (compile error, wrong answer, timeout) are fields on the
// result; a Go error from Grade means the submission never reached the
// grading stage (validation) and had no side effects.
type GradingService struct {
	backend  judge.Backend
	fallback judge.Backend // deterministic path used when backend is unreachable
}

func NewGradingService(backend judge.Backend) *GradingService {
	return &GradingService{backend: backend, fallback: judge.NewMockBackend()}
}

// Validate rejects malformed submissions before any backend work.
func (s *GradingService) Validate(sub *model.Submission) error {
	switch sub.Kind {
	case model.KindCode:
		if strings.TrimSpace(sub.Code) == "" {
			return fmt.Errorf("code must not be empty: %w", common.ErrValidation)
		}
		if len(sub.Code) > maxCodeLength {
			return fmt.Errorf("code exceeds %d characters: %w", maxCodeLength, common.ErrValidation)
		}
		if !judge.IsSupportedLanguage(sub.Language) {
			return fmt.Errorf("unsupported language %q: %w", sub.Language, common.ErrValidation)
		}
	case model.KindPuzzle:
		if strings.TrimSpace(sub.Answer) == "" {
			return fmt.Errorf("answer must not be empty: %w", common.ErrValidation)
		}
	default:
		return fmt.Errorf("unknown submission kind %q: %w", sub.Kind, common.ErrValidation)
	}
	return nil
}

// Grade evaluates a code submission against its task.
func (s *GradingService) Grade(ctx context.Context, sub *model.Submission, task *model.Task) (*model.SubmissionResult, error) {
	if err := s.Validate(sub); err != nil {
		return nil, err
	}
	if len(task.AllowedLanguages) > 0 && !contains(task.AllowedLanguages, sub.Language) {
		return nil, fmt.Errorf("language %q not allowed for task %q: %w", sub.Language, task.Title, common.ErrValidation)
	}

	result := &model.SubmissionResult{
		SubmissionID: sub.ID,
		RoomID:       sub.RoomID,
		PlayerID:     sub.PlayerID,
		TargetID:     sub.TargetID,
		Kind:         model.KindCode,
		GradedAt:     time.Now(),
	}

	if len(task.TestCases) == 0 {
		s.gradeSingleRun(ctx, sub, result)
	} else {
		s.gradeTestCases(ctx, sub, task.TestCases, result)
	}
	if result.Success {
		result.PointsAwarded = task.Points()
	}
	return result, nil
}

// GradePuzzle checks a detective answer against the stored solution with
// case-insensitive trimmed equality.
func (s *GradingService) GradePuzzle(_ context.Context, sub *model.Submission, puzzle *model.Puzzle) (*model.SubmissionResult, error) {
	if err := s.Validate(sub); err != nil {
		return nil, err
	}

	result := &model.SubmissionResult{
		SubmissionID: sub.ID,
		RoomID:       sub.RoomID,
		PlayerID:     sub.PlayerID,
		TargetID:     sub.TargetID,
		Kind:         model.KindPuzzle,
		GradedAt:     time.Now(),
	}

	if strings.EqualFold(strings.TrimSpace(sub.Answer), strings.TrimSpace(puzzle.CorrectAnswer)) {
		result.Success = true
		result.Score = 100
		result.Message = "Correct answer!"
		result.PointsAwarded = puzzle.Points()
	} else {
		result.Message = "Incorrect. Review the clues and try again."
	}
	return result, nil
}

// gradeSingleRun handles tasks without test cases: success means the run
// finished without a compilation or runtime error.
func (s *GradingService) gradeSingleRun(ctx context.Context, sub *model.Submission, result *model.SubmissionResult) {
	run, degraded := s.runWithFallback(ctx, sub.Code, sub.Language, "")
	result.Degraded = degraded
	result.Output = run.Output

	switch run.Phase {
	case judge.PhaseCompile:
		result.CompilationError = run.ErrorOutput
		result.Message = "Compilation error"
	case judge.PhaseRuntime:
		result.RuntimeError = run.ErrorOutput
		result.Message = "Runtime error"
	default:
		result.Success = true
		result.Score = 100
		result.Message = "Code executed successfully"
	}
}

// gradeTestCases runs once per case and compares trimmed outputs for
// exact equality. Score is the rounded pass percentage; success requires
// a full sweep.
func (s *GradingService) gradeTestCases(ctx context.Context, sub *model.Submission, cases []model.TestCase, result *model.SubmissionResult) {
	passed := 0
	for _, tc := range cases {
		run, degraded := s.runWithFallback(ctx, sub.Code, sub.Language, tc.Input)
		if degraded {
			result.Degraded = true
		}

		if run.Phase == judge.PhaseCompile {
			// Nothing will run; fail the whole submission up front.
			result.CompilationError = run.ErrorOutput
			result.Message = "Compilation error"
			result.Score = 0
			result.TestResults = nil
			return
		}

		caseResult := model.TestCaseResult{
			Input:           tc.Input,
			ExpectedOutput:  tc.ExpectedOutput,
			ActualOutput:    strings.TrimSpace(run.Output),
			ExecutionTimeMs: run.ExecutionTimeMs,
		}
		if run.Phase == judge.PhaseRuntime {
			result.RuntimeError = run.ErrorOutput
			caseResult.ActualOutput = run.ErrorOutput
		} else {
			caseResult.Passed = strings.TrimSpace(run.Output) == strings.TrimSpace(tc.ExpectedOutput)
		}
		if caseResult.Passed {
			passed++
		}
		result.TestResults = append(result.TestResults, caseResult)
	}

	total := len(cases)
	result.Score = int(math.Round(100 * float64(passed) / float64(total)))
	result.Success = passed == total
	if result.Success {
		result.Message = fmt.Sprintf("All tests passed! (%d/%d)", passed, total)
	} else {
		result.Message = fmt.Sprintf("%d/%d tests passed", passed, total)
	}
}

// runWithFallback calls the configured backend, retrying a transport
// failure once before degrading to the deterministic fallback. The
// returned bool marks a degraded run so callers and tests can tell the
// fallback path apart from a real grade.
func (s *GradingService) runWithFallback(ctx context.Context, code, language, stdin string) (*judge.RunResult, bool) {
	run, err := s.backend.Run(ctx, code, language, stdin)
	if err == nil {
		return run, false
	}
	log.Printf("WARN: execution backend %q failed, retrying once: %v", s.backend.Name(), err)

	run, err = s.backend.Run(ctx, code, language, stdin)
	if err == nil {
		return run, false
	}
	log.Printf("WARN: execution backend %q unavailable, using degraded grading: %v", s.backend.Name(), err)

	run, err = s.fallback.Run(ctx, code, language, stdin)
	if err != nil {
		// The fallback only fails when ctx is done; report it as a
		// runtime error rather than crashing the caller.
		return &judge.RunResult{Phase: judge.PhaseRuntime, ErrorOutput: "grading aborted: " + err.Error()}, true
	}
	return run, true
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
