// Package store provides storage backends for the assistant bot.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	s := &SQLiteStore{db: db}
	if cfg.DefaultAdmin != 0 {
		if err := s.AddAdmin(cfg.DefaultAdmin); err != nil {
			slog.Error("Failed to seed default admin", "error", err, "userID", cfg.DefaultAdmin)
			return nil, fmt.Errorf("failed to seed default admin: %w", err)
		}
		slog.Info("Seeded default admin", "userID", cfg.DefaultAdmin)
	}
	return s, nil
}

func (s *SQLiteStore) ListAdmins() ([]int64, error) {
	rows, err := s.db.Query(`SELECT user_id FROM allowed_admins ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore ListAdmins query failed", "error", err)
		return nil, fmt.Errorf("failed to query admins: %w", err)
	}
	return collectIDs(rows)
}

func (s *SQLiteStore) AddAdmin(userID int64) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO allowed_admins (user_id) VALUES (?)`, userID)
	if err != nil {
		slog.Error("SQLiteStore AddAdmin failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to insert admin %d: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) RemoveAdmin(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM allowed_admins WHERE user_id = ?`, userID)
	if err != nil {
		slog.Error("SQLiteStore RemoveAdmin failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete admin %d: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) IsAdmin(userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM allowed_admins WHERE user_id = ?)`, userID).Scan(&exists)
	if err != nil {
		slog.Error("SQLiteStore IsAdmin query failed", "error", err, "userID", userID)
		return false, fmt.Errorf("failed to check admin %d: %w", userID, err)
	}
	return exists, nil
}

func (s *SQLiteStore) ListUsers() ([]int64, error) {
	rows, err := s.db.Query(`SELECT user_id FROM allowed_users ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore ListUsers query failed", "error", err)
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return collectIDs(rows)
}

func (s *SQLiteStore) AddUser(userID int64) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO allowed_users (user_id) VALUES (?)`, userID)
	if err != nil {
		slog.Error("SQLiteStore AddUser failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to insert user %d: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) RemoveUser(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM allowed_users WHERE user_id = ?`, userID)
	if err != nil {
		slog.Error("SQLiteStore RemoveUser failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete user %d: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) IsUser(userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM allowed_users WHERE user_id = ?)`, userID).Scan(&exists)
	if err != nil {
		slog.Error("SQLiteStore IsUser query failed", "error", err, "userID", userID)
		return false, fmt.Errorf("failed to check user %d: %w", userID, err)
	}
	return exists, nil
}

func (s *SQLiteStore) GetProfile(userID int64) (*models.Profile, error) {
	row := s.db.QueryRow(`SELECT user_id, full_name, display_name, region FROM user_profiles WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetProfile failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get profile %d: %w", userID, err)
	}
	return &p, nil
}

func (s *SQLiteStore) SaveProfile(p models.Profile) error {
	_, err := s.db.Exec(`
		INSERT INTO user_profiles (user_id, full_name, display_name, region)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = excluded.full_name,
			display_name = excluded.display_name,
			region = excluded.region`,
		p.UserID, nilIfEmpty(p.FullName), nilIfEmpty(p.DisplayName), nilIfEmpty(p.Region))
	if err != nil {
		slog.Error("SQLiteStore SaveProfile failed", "error", err, "userID", p.UserID)
		return fmt.Errorf("failed to save profile %d: %w", p.UserID, err)
	}
	slog.Debug("SQLiteStore SaveProfile succeeded", "userID", p.UserID, "complete", p.Complete())
	return nil
}

func (s *SQLiteStore) ListProfiles() ([]models.Profile, error) {
	rows, err := s.db.Query(`SELECT user_id, full_name, display_name, region FROM user_profiles ORDER BY user_id`)
	if err != nil {
		slog.Error("SQLiteStore ListProfiles query failed", "error", err)
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			slog.Error("SQLiteStore ListProfiles scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profile rows: %w", err)
	}
	return profiles, nil
}

// AddFact inserts a fact unless an exact-text duplicate already exists.
// Facts differing only by case or whitespace count as distinct; this
// matches the documented, intentionally loose uniqueness rule.
func (s *SQLiteStore) AddFact(text string, addedBy int64) (int64, error) {
	if text == "" {
		return 0, models.ErrEmptyFact
	}
	if len(text) > models.MaxFactLength {
		return 0, models.ErrFactTooLong
	}
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM knowledge_facts WHERE fact = ?)`, text).Scan(&exists)
	if err != nil {
		slog.Error("SQLiteStore AddFact duplicate check failed", "error", err)
		return 0, fmt.Errorf("failed to check fact uniqueness: %w", err)
	}
	if exists {
		return 0, models.ErrDuplicateFact
	}
	res, err := s.db.Exec(`INSERT INTO knowledge_facts (fact, added_by, created_at) VALUES (?, ?, ?)`,
		text, addedBy, time.Now().UTC())
	if err != nil {
		slog.Error("SQLiteStore AddFact insert failed", "error", err, "addedBy", addedBy)
		return 0, fmt.Errorf("failed to insert fact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read fact id: %w", err)
	}
	slog.Debug("SQLiteStore AddFact succeeded", "id", id, "addedBy", addedBy)
	return id, nil
}

func (s *SQLiteStore) RemoveFact(id int64) error {
	res, err := s.db.Exec(`DELETE FROM knowledge_facts WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore RemoveFact failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete fact %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListFacts() ([]models.Fact, error) {
	rows, err := s.db.Query(`SELECT id, fact, added_by, created_at FROM knowledge_facts ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore ListFacts query failed", "error", err)
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}
	defer rows.Close()

	var facts []models.Fact
	for rows.Next() {
		var f models.Fact
		if err := rows.Scan(&f.ID, &f.Text, &f.AddedBy, &f.CreatedAt); err != nil {
			slog.Error("SQLiteStore ListFacts scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan fact row: %w", err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fact rows: %w", err)
	}
	return facts, nil
}

func (s *SQLiteStore) CreateReport(r models.Report) error {
	if err := r.Validate(); err != nil {
		return err
	}
	questionsJSON, err := marshalStrings(r.Questions)
	if err != nil {
		return err
	}
	answersJSON, err := marshalStrings(r.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO reports (report_id, recipient_id, iso_week, iso_year, questions, answers, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ReportID, r.RecipientID, r.ISOWeek, r.ISOYear, questionsJSON, answersJSON, string(r.Status), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateReport failed", "error", err, "reportID", r.ReportID, "recipient", r.RecipientID)
		return fmt.Errorf("failed to insert report %s for %d: %w", r.ReportID, r.RecipientID, err)
	}
	slog.Debug("SQLiteStore CreateReport succeeded", "reportID", r.ReportID, "recipient", r.RecipientID)
	return nil
}

func (s *SQLiteStore) GetReport(reportID string, recipientID int64) (*models.Report, error) {
	row := s.db.QueryRow(`
		SELECT report_id, recipient_id, iso_week, iso_year, questions, answers, status, created_at, updated_at, reminder_sent_at
		FROM reports WHERE report_id = ? AND recipient_id = ?`, reportID, recipientID)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetReport failed", "error", err, "reportID", reportID, "recipient", recipientID)
		return nil, fmt.Errorf("failed to get report %s for %d: %w", reportID, recipientID, err)
	}
	return &r, nil
}

// GetOpenReport returns the oldest incomplete report for a recipient, or
// nil when none is open.
func (s *SQLiteStore) GetOpenReport(recipientID int64) (*models.Report, error) {
	row := s.db.QueryRow(`
		SELECT report_id, recipient_id, iso_week, iso_year, questions, answers, status, created_at, updated_at, reminder_sent_at
		FROM reports WHERE recipient_id = ? AND status != ? ORDER BY created_at LIMIT 1`,
		recipientID, string(models.ReportStatusCompleted))
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetOpenReport failed", "error", err, "recipient", recipientID)
		return nil, fmt.Errorf("failed to get open report for %d: %w", recipientID, err)
	}
	return &r, nil
}

func (s *SQLiteStore) UpdateReportAnswers(reportID string, recipientID int64, answers []string, status models.ReportStatus) error {
	if !models.IsValidReportStatus(status) {
		return models.ErrInvalidStatus
	}
	answersJSON, err := marshalStrings(answers)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE reports SET answers = ?, status = ?, updated_at = ? WHERE report_id = ? AND recipient_id = ?`,
		answersJSON, string(status), time.Now().UTC(), reportID, recipientID)
	if err != nil {
		slog.Error("SQLiteStore UpdateReportAnswers failed", "error", err, "reportID", reportID, "recipient", recipientID)
		return fmt.Errorf("failed to update report %s for %d: %w", reportID, recipientID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	slog.Debug("SQLiteStore UpdateReportAnswers succeeded", "reportID", reportID, "recipient", recipientID, "answers", len(answers), "status", status)
	return nil
}

func (s *SQLiteStore) ListReportsByWeek(week, year int) ([]models.Report, error) {
	rows, err := s.db.Query(`
		SELECT report_id, recipient_id, iso_week, iso_year, questions, answers, status, created_at, updated_at, reminder_sent_at
		FROM reports WHERE iso_week = ? AND iso_year = ? ORDER BY recipient_id`, week, year)
	if err != nil {
		slog.Error("SQLiteStore ListReportsByWeek query failed", "error", err, "week", week, "year", year)
		return nil, fmt.Errorf("failed to query reports for week %d/%d: %w", week, year, err)
	}
	return collectReports(rows)
}

func (s *SQLiteStore) ListOverdueReports(cutoff time.Time) ([]models.Report, error) {
	rows, err := s.db.Query(`
		SELECT report_id, recipient_id, iso_week, iso_year, questions, answers, status, created_at, updated_at, reminder_sent_at
		FROM reports
		WHERE status != ? AND created_at < ? AND (reminder_sent_at IS NULL OR reminder_sent_at < ?)
		ORDER BY created_at`,
		string(models.ReportStatusCompleted), cutoff, cutoff)
	if err != nil {
		slog.Error("SQLiteStore ListOverdueReports query failed", "error", err)
		return nil, fmt.Errorf("failed to query overdue reports: %w", err)
	}
	return collectReports(rows)
}

// MarkReminderSent re-checks status and the previous stamp inside the
// UPDATE itself so a report completed mid-sweep is never reminded.
func (s *SQLiteStore) MarkReminderSent(reportID string, recipientID int64, now, cutoff time.Time) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE reports SET reminder_sent_at = ?, updated_at = ?
		WHERE report_id = ? AND recipient_id = ? AND status != ?
		  AND (reminder_sent_at IS NULL OR reminder_sent_at < ?)`,
		now, now, reportID, recipientID, string(models.ReportStatusCompleted), cutoff)
	if err != nil {
		slog.Error("SQLiteStore MarkReminderSent failed", "error", err, "reportID", reportID, "recipient", recipientID)
		return false, fmt.Errorf("failed to mark reminder for %s/%d: %w", reportID, recipientID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) LogRequest(userID int64, requestText, responseText string) error {
	_, err := s.db.Exec(`INSERT INTO user_requests (user_id, request_text, response_text, timestamp) VALUES (?, ?, ?, ?)`,
		userID, requestText, responseText, time.Now().UTC())
	if err != nil {
		slog.Error("SQLiteStore LogRequest failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to log request for %d: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) GetCachedSearch(query string) (string, bool, error) {
	var results string
	err := s.db.QueryRow(`SELECT results FROM search_cache WHERE query = ?`, query).Scan(&results)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetCachedSearch failed", "error", err)
		return "", false, fmt.Errorf("failed to read search cache: %w", err)
	}
	return results, true, nil
}

func (s *SQLiteStore) SaveCachedSearch(query, results string) error {
	_, err := s.db.Exec(`
		INSERT INTO search_cache (query, results, created_at) VALUES (?, ?, ?)
		ON CONFLICT (query) DO UPDATE SET results = excluded.results`,
		query, results, time.Now().UTC())
	if err != nil {
		slog.Error("SQLiteStore SaveCachedSearch failed", "error", err)
		return fmt.Errorf("failed to save search cache: %w", err)
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
