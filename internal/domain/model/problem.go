package model

import "time"

type ProblemDifficulty string
type ProblemStatus string

const (
	DifficultyEasy   ProblemDifficulty = "Easy"
	DifficultyMedium ProblemDifficulty = "Medium"
	DifficultyHard   ProblemDifficulty = "Hard"

	ProblemStatusDraft     ProblemStatus = "Draft"
	ProblemStatusPublished ProblemStatus = "Published"
	ProblemStatusRejected  ProblemStatus = "Rejected"
)

// Problem is only ever persisted through the validation gate: every reference
// solution must pass every test case before a row exists at all.
type Problem struct {
	ID                 string              `json:"id"`
	Title              string              `json:"title"`
	Slug               string              `json:"slug"`
	Description        string              `json:"description"`
	Difficulty         ProblemDifficulty   `json:"difficulty"`
	Status             ProblemStatus       `json:"status"`
	CreatedByID        *string             `json:"created_by_id,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	TestCases          []TestCase          `json:"test_cases,omitempty"`          // admin-only view
	ReferenceSolutions []ReferenceSolution `json:"reference_solutions,omitempty"` // admin-only view
}

type TestCase struct {
	ID             string `json:"id"`
	ProblemID      string `json:"problem_id,omitempty"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	SortOrder      int    `json:"sort_order"`
}

// ReferenceSolution is an admin-authored correct solution for one language,
// used to validate a problem's test cases at authoring time. Slice order is
// the declaration order, which drives validation order.
type ReferenceSolution struct {
	ID         string   `json:"id,omitempty"`
	ProblemID  string   `json:"problem_id,omitempty"`
	Language   Language `json:"language"`
	SourceCode string   `json:"source_code"`
}
