package model

import "time"

// Points by difficulty for tasks and puzzles without an explicit level.
const (
	PointsEasy   = 50
	PointsMedium = 100
	PointsHard   = 150

	PointsPerLevel = 20 // leveled tasks: level x 20
	MaxHints       = 2
)

// PointsFor derives the reward for a target. A positive level wins over
// the difficulty table.
func PointsFor(difficulty Difficulty, level int) int {
	if level > 0 {
		return level * PointsPerLevel
	}
	switch difficulty {
	case DifficultyEasy:
		return PointsEasy
	case DifficultyHard:
		return PointsHard
	default:
		return PointsMedium
	}
}

// Task is a coding challenge solved by players with the hacker role.
type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	Prompt           string     `json:"prompt"`
	BoilerplateCode  string     `json:"boilerplate_code,omitempty"`
	AllowedLanguages []string   `json:"allowed_languages,omitempty"` // empty = all supported
	Difficulty       Difficulty `json:"difficulty"`
	Level            int        `json:"level,omitempty"`
	TestCases        []TestCase `json:"test_cases,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (t *Task) Points() int {
	return PointsFor(t.Difficulty, t.Level)
}

type TestCase struct {
	ID             string `json:"id"`
	TaskID         string `json:"task_id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	SortOrder      int    `json:"sort_order"`
}

// Puzzle is a logic riddle solved by players with the detective role.
// Hints are ordered, at most two.
type Puzzle struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Question      string     `json:"question"`
	CorrectAnswer string     `json:"-"` // never exposed to players
	Difficulty    Difficulty `json:"difficulty"`
	Hints         []string   `json:"hints,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (p *Puzzle) Points() int {
	return PointsFor(p.Difficulty, 0)
}
