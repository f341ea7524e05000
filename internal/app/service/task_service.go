package service

import (
	"codetective/internal/app/judge"
	"codetective/internal/common"
	"codetective/internal/domain/model"
	"codetective/internal/domain/repository"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// TaskService manages the admin-curated catalog of hacker tasks and
// detective puzzles.
type TaskService struct {
	taskRepo repository.TaskRepository
	db       *sql.DB // for transactional create of task + test cases
}

func NewTaskService(taskRepo repository.TaskRepository, db *sql.DB) *TaskService {
	return &TaskService{taskRepo: taskRepo, db: db}
}

type CreateTaskRequest struct {
	Title            string           `json:"title"`
	Prompt           string           `json:"prompt"`
	BoilerplateCode  string           `json:"boilerplate_code"`
	AllowedLanguages []string         `json:"allowed_languages"`
	Difficulty       model.Difficulty `json:"difficulty"`
	Level            int              `json:"level"`
	TestCases        []TestCaseInput  `json:"test_cases"`
}

type TestCaseInput struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

type CreatePuzzleRequest struct {
	Title         string           `json:"title"`
	Question      string           `json:"question"`
	CorrectAnswer string           `json:"correct_answer"`
	Difficulty    model.Difficulty `json:"difficulty"`
	Hints         []string         `json:"hints"`
}

// CreateTask inserts the task and its test cases in one transaction so a
// half-created task can never be served to a session.
func (s *TaskService) CreateTask(ctx context.Context, req CreateTaskRequest) (*model.Task, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("title and prompt are required: %w", common.ErrValidation)
	}
	if err := validDifficulty(req.Difficulty); err != nil {
		return nil, err
	}
	for _, lang := range req.AllowedLanguages {
		if !judge.IsSupportedLanguage(lang) {
			return nil, fmt.Errorf("unsupported language %q: %w", lang, common.ErrValidation)
		}
	}

	task := &model.Task{
		ID:               uuid.NewString(),
		Title:            strings.TrimSpace(req.Title),
		Slug:             slug.Make(req.Title),
		Prompt:           req.Prompt,
		BoilerplateCode:  req.BoilerplateCode,
		AllowedLanguages: req.AllowedLanguages,
		Difficulty:       req.Difficulty,
		Level:            req.Level,
	}
	for i, tc := range req.TestCases {
		task.TestCases = append(task.TestCases, model.TestCase{
			ID:             uuid.NewString(),
			TaskID:         task.ID,
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			SortOrder:      i,
		})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.taskRepo.CreateTask(ctx, tx, task); err != nil {
		return nil, err
	}
	if len(task.TestCases) > 0 {
		if err := s.taskRepo.AddTestCases(ctx, tx, task.ID, task.TestCases); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task: %w", err)
	}
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return s.taskRepo.FindTaskByID(ctx, id)
}

func (s *TaskService) ListTasks(ctx context.Context, difficulty model.Difficulty, limit, offset int) ([]model.Task, error) {
	if difficulty != "" {
		if err := validDifficulty(difficulty); err != nil {
			return nil, err
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.taskRepo.ListTasks(ctx, difficulty, limit, offset)
}

func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	return s.taskRepo.DeleteTask(ctx, id)
}

func (s *TaskService) CreatePuzzle(ctx context.Context, req CreatePuzzleRequest) (*model.Puzzle, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("title and question are required: %w", common.ErrValidation)
	}
	if strings.TrimSpace(req.CorrectAnswer) == "" {
		return nil, fmt.Errorf("correct answer is required: %w", common.ErrValidation)
	}
	if err := validDifficulty(req.Difficulty); err != nil {
		return nil, err
	}
	if len(req.Hints) > model.MaxHints {
		return nil, fmt.Errorf("at most %d hints allowed: %w", model.MaxHints, common.ErrValidation)
	}

	puzzle := &model.Puzzle{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(req.Title),
		Slug:          slug.Make(req.Title),
		Question:      req.Question,
		CorrectAnswer: strings.TrimSpace(req.CorrectAnswer),
		Difficulty:    req.Difficulty,
		Hints:         req.Hints,
	}
	if err := s.taskRepo.CreatePuzzle(ctx, puzzle); err != nil {
		return nil, err
	}
	return puzzle, nil
}

func (s *TaskService) GetPuzzle(ctx context.Context, id string) (*model.Puzzle, error) {
	return s.taskRepo.FindPuzzleByID(ctx, id)
}

func (s *TaskService) ListPuzzles(ctx context.Context, difficulty model.Difficulty, limit, offset int) ([]model.Puzzle, error) {
	if difficulty != "" {
		if err := validDifficulty(difficulty); err != nil {
			return nil, err
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.taskRepo.ListPuzzles(ctx, difficulty, limit, offset)
}

func (s *TaskService) DeletePuzzle(ctx context.Context, id string) error {
	return s.taskRepo.DeletePuzzle(ctx, id)
}

// Hint returns one hint by index, bounded by the per-puzzle maximum.
func (s *TaskService) Hint(ctx context.Context, puzzleID string, index int) (string, error) {
	puzzle, err := s.taskRepo.FindPuzzleByID(ctx, puzzleID)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(puzzle.Hints) || index >= model.MaxHints {
		return "", fmt.Errorf("no hint %d for puzzle %s: %w", index, puzzleID, common.ErrNotFound)
	}
	return puzzle.Hints[index], nil
}

func validDifficulty(d model.Difficulty) error {
	switch d {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
		return nil
	default:
		return fmt.Errorf("unknown difficulty %q: %w", d, common.ErrValidation)
	}
}
