package worker

import (
	"context"
	"sync"
	"testing"

	"codetective/internal/app/judge"
	"codetective/internal/app/service"
	"codetective/internal/common"
	"codetective/internal/domain/model"
)

type stubTargets struct {
	tasks   map[string]*model.Task
	puzzles map[string]*model.Puzzle
}

func (s *stubTargets) FindTaskByID(_ context.Context, id string) (*model.Task, error) {
	if t, ok := s.tasks[id]; ok {
		return t, nil
	}
	return nil, common.ErrNotFound
}

func (s *stubTargets) FindPuzzleByID(_ context.Context, id string) (*model.Puzzle, error) {
	if p, ok := s.puzzles[id]; ok {
		return p, nil
	}
	return nil, common.ErrNotFound
}

type collectSink struct {
	mu      sync.Mutex
	results []*model.SubmissionResult
}

func (s *collectSink) ApplyResult(_ context.Context, result *model.SubmissionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func newTestWorker(targets *stubTargets, sink *collectSink) *GradingWorker {
	grader := service.NewGradingService(judge.NewMockBackend())
	return NewGradingWorker(nil, targets, grader, sink, 1)
}

func TestProcessCodeSubmission(t *testing.T) {
	targets := &stubTargets{tasks: map[string]*model.Task{
		"task-1": {
			ID:         "task-1",
			Title:      "Echo",
			Difficulty: model.DifficultyEasy,
			TestCases: []model.TestCase{
				{Input: "hi", ExpectedOutput: "hi"},
			},
		},
	}}
	sink := &collectSink{}
	w := newTestWorker(targets, sink)

	w.Process(context.Background(), &model.GradingJob{Submission: model.Submission{
		ID:       "sub-1",
		RoomID:   "room-1",
		PlayerID: "p1",
		TargetID: "task-1",
		Kind:     model.KindCode,
		Language: "python",
		Code:     "print(input())",
	}})

	if len(sink.results) != 1 {
		t.Fatalf("%d results delivered, want 1", len(sink.results))
	}
	result := sink.results[0]
	if !result.Success || result.Score != 100 {
		t.Errorf("result success=%v score=%d, want a full pass", result.Success, result.Score)
	}
	if result.PointsAwarded != 50 { // easy task
		t.Errorf("points %d, want 50", result.PointsAwarded)
	}
	if result.SubmissionID != "sub-1" {
		t.Errorf("result attributed to %q, want sub-1", result.SubmissionID)
	}
}

func TestProcessPuzzleSubmission(t *testing.T) {
	targets := &stubTargets{puzzles: map[string]*model.Puzzle{
		"puz-1": {ID: "puz-1", CorrectAnswer: "locked room", Difficulty: model.DifficultyMedium},
	}}
	sink := &collectSink{}
	w := newTestWorker(targets, sink)

	w.Process(context.Background(), &model.GradingJob{Submission: model.Submission{
		ID:       "sub-2",
		RoomID:   "room-1",
		PlayerID: "p2",
		TargetID: "puz-1",
		Kind:     model.KindPuzzle,
		Answer:   "Locked Room",
	}})

	if len(sink.results) != 1 {
		t.Fatalf("%d results delivered, want 1", len(sink.results))
	}
	if !sink.results[0].Success || sink.results[0].PointsAwarded != 100 {
		t.Errorf("puzzle result %+v, want success with 100 points", sink.results[0])
	}
}

func TestProcessMissingTargetStillDeliversResult(t *testing.T) {
	sink := &collectSink{}
	w := newTestWorker(&stubTargets{}, sink)

	w.Process(context.Background(), &model.GradingJob{Submission: model.Submission{
		ID:       "sub-3",
		RoomID:   "room-1",
		PlayerID: "p1",
		TargetID: "gone",
		Kind:     model.KindCode,
		Language: "python",
		Code:     "print(1)",
	}})

	if len(sink.results) != 1 {
		t.Fatalf("%d results delivered, want 1", len(sink.results))
	}
	result := sink.results[0]
	if result.Success {
		t.Error("missing target graded as success")
	}
	if result.Message == "" {
		t.Error("player owed an explanation for the rejection")
	}
}
