package types

import (
	"atstailor/internal/keywords"
	"atstailor/internal/scoring"
	"atstailor/internal/tailor"
)

// TailorRequest is the body of POST /tailor
type TailorRequest struct {
	ResumeText     string          `json:"resumeText" validate:"required"`
	JobDescription string          `json:"jobDescription" validate:"required"`
	Options        *tailor.Options `json:"options,omitempty"`
}

// ExtractRequest is the body of POST /extract
type ExtractRequest struct {
	JobDescription string `json:"jobDescription" validate:"required"`
	MaxKeywords    int    `json:"maxKeywords,omitempty" validate:"gte=0,lte=200"`
}

// ScoreRequest is the body of POST /score
type ScoreRequest struct {
	ResumeText     string `json:"resumeText" validate:"required"`
	JobDescription string `json:"jobDescription" validate:"required"`
	MaxKeywords    int    `json:"maxKeywords,omitempty" validate:"gte=0,lte=200"`
}

// TailorOutput is one tailoring run as reported to users
type TailorOutput struct {
	RunID  string         `json:"runId,omitempty"`
	Job    string         `json:"job,omitempty"` // source of the job description
	Result *tailor.Result `json:"result"`
}

// BatchOutput holds the runs of one résumé against several job descriptions
type BatchOutput struct {
	Resume string         `json:"resume"`
	Runs   []TailorOutput `json:"runs"`
}

// ExtractOutput is the keyword set of a job description
type ExtractOutput struct {
	Job      string       `json:"job,omitempty"`
	Keywords keywords.Set `json:"keywords"`
}

// ScoreOutput is a match score with the keyword set it was computed against
type ScoreOutput struct {
	Score    scoring.Result `json:"score"`
	Keywords keywords.Set   `json:"keywords"`
}

// ErrorResponse is the body of every failed HTTP request
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// TailorJob is a queued tailoring request. Either the text or the URI of each
// document is set.
type TailorJob struct {
	ID         string          `json:"id" validate:"required,max=128"`
	ResumeURI  string          `json:"resumeUri,omitempty" validate:"required_without=ResumeText"`
	ResumeText string          `json:"resumeText,omitempty" validate:"required_without=ResumeURI"`
	JobURI     string          `json:"jobUri,omitempty" validate:"required_without=JobText"`
	JobText    string          `json:"jobText,omitempty" validate:"required_without=JobURI"`
	Options    *tailor.Options `json:"options,omitempty"`
	OutputURI  string          `json:"outputUri,omitempty"`
}

// JobStatus is the lifecycle state published for a queued job
type JobStatus string

const (
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// TailorEvent reports progress of a queued job
type TailorEvent struct {
	JobID      string    `json:"jobId"`
	Status     JobStatus `json:"status"`
	MatchScore *int      `json:"matchScore,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
	Error      string    `json:"error,omitempty"`
	Code       string    `json:"code,omitempty"`
	OutputURI  string    `json:"outputUri,omitempty"`
	RunID      string    `json:"runId,omitempty"`
	Timestamp  string    `json:"timestamp"`
}
