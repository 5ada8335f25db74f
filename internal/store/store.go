// Package store provides storage backends for the assistant bot.
//
// It defines the Store interface over the bot's logical tables (role
// sets, profiles, knowledge facts, reports, request log, search cache)
// and ships SQLite and PostgreSQL implementations with embedded
// idempotent migrations.
package store

import (
	"strings"
	"time"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
)

// DetectDSNType classifies a DSN string as "postgres" or "sqlite".
// PostgreSQL URLs and key=value connection strings are recognized;
// everything else is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// Opts holds configuration applied by functional options.
type Opts struct {
	// DSN is the database connection string (file path for SQLite).
	DSN string
	// DefaultAdmin, when non-zero, is inserted into the admin set at
	// migration time so a fresh deployment has at least one admin.
	DefaultAdmin int64
}

// Option configures a store backend.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithDefaultAdmin seeds the admin set with the given user ID at startup.
func WithDefaultAdmin(userID int64) Option {
	return func(o *Opts) { o.DefaultAdmin = userID }
}

// Store is the persistence boundary of the bot. Implementations must be
// safe for concurrent use; the reminder sweep runs alongside live
// message handling.
type Store interface {
	// Role sets. Admins and users are independently persisted; admins
	// implicitly have user privileges, which callers enforce.
	ListAdmins() ([]int64, error)
	AddAdmin(userID int64) error
	RemoveAdmin(userID int64) error
	IsAdmin(userID int64) (bool, error)
	ListUsers() ([]int64, error)
	AddUser(userID int64) error
	RemoveUser(userID int64) error
	IsUser(userID int64) (bool, error)

	// Profiles.
	GetProfile(userID int64) (*models.Profile, error)
	SaveProfile(p models.Profile) error
	ListProfiles() ([]models.Profile, error)

	// Knowledge facts. AddFact rejects empty and oversized text
	// (models.ErrEmptyFact, models.ErrFactTooLong), enforces exact-text
	// uniqueness, and returns models.ErrDuplicateFact on collision.
	AddFact(text string, addedBy int64) (int64, error)
	RemoveFact(id int64) error
	ListFacts() ([]models.Fact, error)

	// Reports. UpdateReportAnswers is an idempotent overwrite of the
	// answers array and status for one (report_id, recipient) pair.
	CreateReport(r models.Report) error
	GetReport(reportID string, recipientID int64) (*models.Report, error)
	GetOpenReport(recipientID int64) (*models.Report, error)
	UpdateReportAnswers(reportID string, recipientID int64, answers []string, status models.ReportStatus) error
	ListReportsByWeek(week, year int) ([]models.Report, error)
	// ListOverdueReports returns incomplete reports created before
	// cutoff whose last reminder (if any) predates cutoff.
	ListOverdueReports(cutoff time.Time) ([]models.Report, error)
	// MarkReminderSent stamps reminder_sent_at atomically, re-checking
	// status and the previous stamp in the same statement. It returns
	// false when a concurrent completion or sweep claimed the row.
	MarkReminderSent(reportID string, recipientID int64, now, cutoff time.Time) (bool, error)

	// Request log, append-only; never read by the core.
	LogRequest(userID int64, requestText, responseText string) error

	// Web-search cache keyed by exact query string, never invalidated.
	GetCachedSearch(query string) (string, bool, error)
	SaveCachedSearch(query, results string) error

	Close() error
}
