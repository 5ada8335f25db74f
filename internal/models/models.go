// Package models defines the core data structures for the assistant bot.
//
// It includes principals, profiles, knowledge facts, reports and chat
// session types, which are shared across modules.
package models

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ReportStatus tracks a recipient's progress through a report.
type ReportStatus string

const (
	// ReportStatusPending means no answer has been recorded yet.
	ReportStatusPending ReportStatus = "pending"
	// ReportStatusInProgress means at least one answer has been recorded.
	ReportStatusInProgress ReportStatus = "in_progress"
	// ReportStatusCompleted means every question has been answered.
	ReportStatusCompleted ReportStatus = "completed"
)

// MaxFactLength defines the maximum allowed length for a knowledge fact.
const MaxFactLength = 2048

// Error variables for better error handling and testability
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateFact     = errors.New("fact already exists")
	ErrEmptyFact         = errors.New("fact text cannot be empty")
	ErrFactTooLong       = errors.New("fact text exceeds maximum length")
	ErrNoQuestions       = errors.New("report requires at least one question")
	ErrTooManyAnswers    = errors.New("answers cannot exceed questions")
	ErrInvalidStatus     = errors.New("invalid report status")
	ErrFileTooLarge      = errors.New("file exceeds size limit")
	ErrUnsupportedFile   = errors.New("unsupported file extension")
	ErrModelsExhausted   = errors.New("all candidate models failed")
	ErrEmptyCompletion   = errors.New("completion returned no choices")
	ErrInvalidWeekFormat = errors.New("expected \"week year\" pair")
)

// ParseWeekYear parses a report status query of the form "week year"
// (e.g. "12 2026"). The week must fall in the ISO range 1..53.
func ParseWeekYear(text string) (week, year int, err error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return 0, 0, ErrInvalidWeekFormat
	}
	week, errW := strconv.Atoi(fields[0])
	year, errY := strconv.Atoi(fields[1])
	if errW != nil || errY != nil || week < 1 || week > 53 {
		return 0, 0, ErrInvalidWeekFormat
	}
	return week, year, nil
}

// IsValidReportStatus checks if the given report status is supported.
func IsValidReportStatus(s ReportStatus) bool {
	switch s {
	case ReportStatusPending, ReportStatusInProgress, ReportStatusCompleted:
		return true
	default:
		return false
	}
}

// Profile holds the registration attributes of a principal.
// A profile gates file operations until it is complete.
type Profile struct {
	UserID      int64  `json:"user_id"`
	FullName    string `json:"full_name"`
	DisplayName string `json:"display_name"`
	Region      string `json:"region"`
}

// Complete reports whether all registration fields have been supplied.
func (p *Profile) Complete() bool {
	return p.FullName != "" && p.DisplayName != "" && p.Region != ""
}

// Fact is a single admin-curated text snippet used to ground LLM answers.
type Fact struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	AddedBy   int64     `json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Report is one recipient's view of a multi-question report. A broadcast
// to N recipients creates N rows sharing one ReportID.
type Report struct {
	ReportID       string       `json:"report_id"`
	RecipientID    int64        `json:"recipient_id"`
	ISOWeek        int          `json:"iso_week"`
	ISOYear        int          `json:"iso_year"`
	Questions      []string     `json:"questions"`
	Answers        []string     `json:"answers"`
	Status         ReportStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	ReminderSentAt *time.Time   `json:"reminder_sent_at,omitempty"`
}

// Validate performs consistency checks on a report row.
func (r *Report) Validate() error {
	if len(r.Questions) == 0 {
		return ErrNoQuestions
	}
	if len(r.Answers) > len(r.Questions) {
		return ErrTooManyAnswers
	}
	if !IsValidReportStatus(r.Status) {
		return ErrInvalidStatus
	}
	if r.Status == ReportStatusCompleted && len(r.Answers) != len(r.Questions) {
		return ErrTooManyAnswers
	}
	return nil
}

// Completed reports whether every question has an answer.
func (r *Report) Completed() bool {
	return len(r.Answers) == len(r.Questions)
}

// NextQuestion returns the first unanswered question, or "" when done.
func (r *Report) NextQuestion() string {
	if r.Completed() {
		return ""
	}
	return r.Questions[len(r.Answers)]
}

// Outstanding returns the questions that have not been answered yet.
func (r *Report) Outstanding() []string {
	if r.Completed() {
		return nil
	}
	return r.Questions[len(r.Answers):]
}

// RequestLogEntry is one row of the append-only request/response audit
// trail. Write-only; never read by the core.
type RequestLogEntry struct {
	UserID       int64     `json:"user_id"`
	RequestText  string    `json:"request_text"`
	ResponseText string    `json:"response_text"`
	Timestamp    time.Time `json:"timestamp"`
}

// ChatMessage is a single turn of the rolling LLM conversation history.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DiskItem is a single entry of a remote file-storage listing.
type DiskItem struct {
	Name string `json:"name"`
	Type string `json:"type"` // "dir" or "file"
	Path string `json:"path"`
	Size int64  `json:"size"`
}
