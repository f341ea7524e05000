package worker

import (
	"codetective/internal/app/service"
	"codetective/internal/domain/model"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// JobSource supplies grading jobs. The Redis list queue implements it in
// production; tests feed jobs from a slice.
type JobSource interface {
	Dequeue(ctx context.Context) (*model.GradingJob, error)
}

// ResultSink receives graded results. Satisfied by the game service,
// which attributes each result back to its session by submission id.
type ResultSink interface {
	ApplyResult(ctx context.Context, result *model.SubmissionResult) error
}

// TargetLoader resolves a submission's task or puzzle. Carried as an
// interface so worker tests run without a database.
type TargetLoader interface {
	FindTaskByID(ctx context.Context, id string) (*model.Task, error)
	FindPuzzleByID(ctx context.Context, id string) (*model.Puzzle, error)
}

// GradingWorker drains the grading queue with a fixed pool of goroutines.
// Each job is graded in isolation; one bad job never stops the pool.
type GradingWorker struct {
	source  JobSource
	targets TargetLoader
	grader  *service.GradingService
	sink    ResultSink
	workers int
}

func NewGradingWorker(source JobSource, targets TargetLoader, grader *service.GradingService, sink ResultSink, workers int) *GradingWorker {
	if workers <= 0 {
		workers = 1
	}
	return &GradingWorker{
		source:  source,
		targets: targets,
		grader:  grader,
		sink:    sink,
		workers: workers,
	}
}

// Start launches the pool and blocks until ctx is cancelled and every
// worker has drained its current job.
func (w *GradingWorker) Start(ctx context.Context) {
	log.Printf("Grading worker pool started with %d workers", w.workers)
	var wg sync.WaitGroup
	for i := 1; i <= w.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.run(ctx, id)
		}(i)
	}
	wg.Wait()
	log.Println("Grading worker pool stopped")
}

func (w *GradingWorker) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.source.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Printf("ERROR: worker %d failed to dequeue grading job: %v", id, err)
			time.Sleep(5 * time.Second)
			continue
		}
		if job == nil {
			continue
		}

		log.Printf("INFO: worker %d picked up submission %s (kind %s)", id, job.Submission.ID, job.Submission.Kind)
		w.Process(ctx, job)
	}
}

// Process grades one job end to end. Exposed for tests and for the
// synchronous path used when Redis is not configured.
func (w *GradingWorker) Process(ctx context.Context, job *model.GradingJob) {
	sub := job.Submission

	result, err := w.grade(ctx, &sub)
	if err != nil {
		// Validation failures and missing targets still owe the player a
		// result; anything else is an infrastructure problem.
		result = &model.SubmissionResult{
			SubmissionID: sub.ID,
			RoomID:       sub.RoomID,
			PlayerID:     sub.PlayerID,
			TargetID:     sub.TargetID,
			Kind:         sub.Kind,
			Message:      fmt.Sprintf("Submission rejected: %v", err),
			GradedAt:     time.Now(),
		}
	}

	if err := w.sink.ApplyResult(ctx, result); err != nil {
		log.Printf("WARN: result for submission %s not applied: %v", sub.ID, err)
	}
}

func (w *GradingWorker) grade(ctx context.Context, sub *model.Submission) (*model.SubmissionResult, error) {
	switch sub.Kind {
	case model.KindCode:
		task, err := w.targets.FindTaskByID(ctx, sub.TargetID)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", sub.TargetID, err)
		}
		return w.grader.Grade(ctx, sub, task)
	case model.KindPuzzle:
		puzzle, err := w.targets.FindPuzzleByID(ctx, sub.TargetID)
		if err != nil {
			return nil, fmt.Errorf("puzzle %s: %w", sub.TargetID, err)
		}
		return w.grader.GradePuzzle(ctx, sub, puzzle)
	default:
		return nil, fmt.Errorf("unknown submission kind %q", sub.Kind)
	}
}
