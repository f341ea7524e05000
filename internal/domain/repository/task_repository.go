package repository

import (
	"codetective/internal/common"
	"codetective/internal/domain/model"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// TaskRepository is the record store behind the task and puzzle catalog.
// The game core only needs id-keyed reads plus admin-side writes; the
// storage schema beyond that is not its concern.
type TaskRepository interface {
	CreateTask(ctx context.Context, tx *sql.Tx, task *model.Task) error
	FindTaskByID(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, difficulty model.Difficulty, limit, offset int) ([]model.Task, error)
	DeleteTask(ctx context.Context, id string) error

	AddTestCases(ctx context.Context, tx *sql.Tx, taskID string, testCases []model.TestCase) error
	GetTestCasesByTaskID(ctx context.Context, taskID string) ([]model.TestCase, error)

	CreatePuzzle(ctx context.Context, puzzle *model.Puzzle) error
	FindPuzzleByID(ctx context.Context, id string) (*model.Puzzle, error)
	ListPuzzles(ctx context.Context, difficulty model.Difficulty, limit, offset int) ([]model.Puzzle, error)
	DeletePuzzle(ctx context.Context, id string) error
}

type pgTaskRepository struct {
	db *sql.DB
}

func NewPgTaskRepository(db *sql.DB) TaskRepository {
	return &pgTaskRepository{db: db}
}

func (r *pgTaskRepository) CreateTask(ctx context.Context, tx *sql.Tx, t *model.Task) error {
	query := `INSERT INTO hacker_tasks (id, title, slug, prompt, boilerplate_code, allowed_languages, difficulty, level)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, t.ID, t.Title, t.Slug, t.Prompt, t.BoilerplateCode, joinCSV(t.AllowedLanguages), t.Difficulty, t.Level)
	} else {
		_, err = r.db.ExecContext(ctx, query, t.ID, t.Title, t.Slug, t.Prompt, t.BoilerplateCode, joinCSV(t.AllowedLanguages), t.Difficulty, t.Level)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("task with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgTaskRepository.CreateTask: %w", err)
	}
	return nil
}

func (r *pgTaskRepository) FindTaskByID(ctx context.Context, id string) (*model.Task, error) {
	query := `SELECT id, title, slug, prompt, boilerplate_code, allowed_languages, difficulty, level, created_at, updated_at
	          FROM hacker_tasks WHERE id = $1`
	t := &model.Task{}
	var langs string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Title, &t.Slug, &t.Prompt, &t.BoilerplateCode, &langs, &t.Difficulty, &t.Level, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTaskRepository.FindTaskByID: %w", err)
	}
	t.AllowedLanguages = splitCSV(langs)

	t.TestCases, err = r.GetTestCasesByTaskID(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *pgTaskRepository) ListTasks(ctx context.Context, difficulty model.Difficulty, limit, offset int) ([]model.Task, error) {
	query := `SELECT id, title, slug, prompt, boilerplate_code, allowed_languages, difficulty, level, created_at, updated_at
	          FROM hacker_tasks`
	args := []any{}
	if difficulty != "" {
		query += ` WHERE difficulty = $1`
		args = append(args, difficulty)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgTaskRepository.ListTasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var langs string
		if err := rows.Scan(&t.ID, &t.Title, &t.Slug, &t.Prompt, &t.BoilerplateCode, &langs, &t.Difficulty, &t.Level, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgTaskRepository.ListTasks scan: %w", err)
		}
		t.AllowedLanguages = splitCSV(langs)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *pgTaskRepository) DeleteTask(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM hacker_tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("pgTaskRepository.DeleteTask: %w", err)
	}
	return nil
}

func (r *pgTaskRepository) AddTestCases(ctx context.Context, tx *sql.Tx, taskID string, testCases []model.TestCase) error {
	query := `INSERT INTO task_test_cases (id, task_id, input, expected_output, sort_order)
	          VALUES ($1, $2, $3, $4, $5)`
	for _, tc := range testCases {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, tc.ID, taskID, tc.Input, tc.ExpectedOutput, tc.SortOrder)
		} else {
			_, err = r.db.ExecContext(ctx, query, tc.ID, taskID, tc.Input, tc.ExpectedOutput, tc.SortOrder)
		}
		if err != nil {
			return fmt.Errorf("pgTaskRepository.AddTestCases: %w", err)
		}
	}
	return nil
}

func (r *pgTaskRepository) GetTestCasesByTaskID(ctx context.Context, taskID string) ([]model.TestCase, error) {
	query := `SELECT id, task_id, input, expected_output, sort_order
	          FROM task_test_cases WHERE task_id = $1 ORDER BY sort_order ASC`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("pgTaskRepository.GetTestCasesByTaskID: %w", err)
	}
	defer rows.Close()

	var cases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.TaskID, &tc.Input, &tc.ExpectedOutput, &tc.SortOrder); err != nil {
			return nil, fmt.Errorf("pgTaskRepository.GetTestCasesByTaskID scan: %w", err)
		}
		cases = append(cases, tc)
	}
	return cases, rows.Err()
}

func (r *pgTaskRepository) CreatePuzzle(ctx context.Context, p *model.Puzzle) error {
	hint1, hint2 := "", ""
	if len(p.Hints) > 0 {
		hint1 = p.Hints[0]
	}
	if len(p.Hints) > 1 {
		hint2 = p.Hints[1]
	}
	query := `INSERT INTO detective_puzzles (id, title, slug, question, correct_answer, difficulty, hint1, hint2)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Question, p.CorrectAnswer, p.Difficulty, hint1, hint2)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("puzzle with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgTaskRepository.CreatePuzzle: %w", err)
	}
	return nil
}

func (r *pgTaskRepository) FindPuzzleByID(ctx context.Context, id string) (*model.Puzzle, error) {
	query := `SELECT id, title, slug, question, correct_answer, difficulty, hint1, hint2, created_at, updated_at
	          FROM detective_puzzles WHERE id = $1`
	p := &model.Puzzle{}
	var hint1, hint2 string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Slug, &p.Question, &p.CorrectAnswer, &p.Difficulty, &hint1, &hint2, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTaskRepository.FindPuzzleByID: %w", err)
	}
	p.Hints = packHints(hint1, hint2)
	return p, nil
}

func (r *pgTaskRepository) ListPuzzles(ctx context.Context, difficulty model.Difficulty, limit, offset int) ([]model.Puzzle, error) {
	query := `SELECT id, title, slug, question, correct_answer, difficulty, hint1, hint2, created_at, updated_at
	          FROM detective_puzzles`
	args := []any{}
	if difficulty != "" {
		query += ` WHERE difficulty = $1`
		args = append(args, difficulty)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgTaskRepository.ListPuzzles: %w", err)
	}
	defer rows.Close()

	var puzzles []model.Puzzle
	for rows.Next() {
		var p model.Puzzle
		var hint1, hint2 string
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Question, &p.CorrectAnswer, &p.Difficulty, &hint1, &hint2, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgTaskRepository.ListPuzzles scan: %w", err)
		}
		p.Hints = packHints(hint1, hint2)
		puzzles = append(puzzles, p)
	}
	return puzzles, rows.Err()
}

func (r *pgTaskRepository) DeletePuzzle(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM detective_puzzles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("pgTaskRepository.DeletePuzzle: %w", err)
	}
	return nil
}

// Allowed languages are stored as a comma-separated list, mirroring the
// original catalog's text field.
func joinCSV(values []string) string {
	return strings.Join(values, ",")
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func packHints(hints ...string) []string {
	var out []string
	for _, h := range hints {
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}
