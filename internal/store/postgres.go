// Package store provides storage backends for the assistant bot.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	s := &PostgresStore{db: db}
	if cfg.DefaultAdmin != 0 {
		if err := s.AddAdmin(cfg.DefaultAdmin); err != nil {
			slog.Error("Failed to seed default admin", "error", err, "userID", cfg.DefaultAdmin)
			return nil, fmt.Errorf("failed to seed default admin: %w", err)
		}
		slog.Info("Seeded default admin", "userID", cfg.DefaultAdmin)
	}
	return s, nil
}

func (s *PostgresStore) ListAdmins() ([]int64, error) {
	rows, err := s.db.Query(`SELECT user_id FROM allowed_admins ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore ListAdmins query failed", "error", err)
		return nil, fmt.Errorf("failed to query admins: %w", err)
	}
	return collectIDs(rows)
}

func (s *PostgresStore) AddAdmin(userID int64) error {
	_, err := s.db.Exec(`INSERT INTO allowed_admins (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		slog.Error("PostgresStore AddAdmin failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to insert admin %d: %w", userID, err)
	}
	return nil
}

func (s *PostgresStore) RemoveAdmin(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM allowed_admins WHERE user_id = $1`, userID)
	if err != nil {
		slog.Error("PostgresStore RemoveAdmin failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete admin %d: %w", userID, err)
	}
	return nil
}

func (s *PostgresStore) IsAdmin(userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM allowed_admins WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		slog.Error("PostgresStore IsAdmin query failed", "error", err, "userID", userID)
		return false, fmt.Errorf("failed to check admin %d: %w", userID, err)
	}
	return exists, nil
}

func (s *PostgresStore) ListUsers() ([]int64, error) {
	rows, err := s.db.Query(`SELECT user_id FROM allowed_users ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore ListUsers query failed", "error", err)
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return collectIDs(rows)
}

func (s *PostgresStore) AddUser(userID int64) error {
	_, err := s.db.Exec(`INSERT INTO allowed_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		slog.Error("PostgresStore AddUser failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to insert user %d: %w", userID, err)
	}
	return nil
}

func (s *PostgresStore) RemoveUser(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM allowed_users WHERE user_id = $1`, userID)
	if err != nil {
		slog.Error("PostgresStore RemoveUser failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete user %d: %w", userID, err)
	}
	return nil
}

func (s *PostgresStore) IsUser(userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM allowed_users WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		slog.Error("PostgresStore IsUser query failed", "error", err, "userID", userID)
		return false, fmt.Errorf("failed to check user %d: %w", userID, err)
	}
	return exists, nil
}

func (s *PostgresStore) GetProfile(userID int64) (*models.Profile, error) {
	row := s.db.QueryRow(`SELECT user_id, full_name, display_name, region FROM user_profiles WHERE user_id = $1`, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetProfile failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get profile %d: %w", userID, err)
	}
	return &p, nil
}

func (s *PostgresStore) SaveProfile(p models.Profile) error {
	_, err := s.db.Exec(`
		INSERT INTO user_profiles (user_id, full_name, display_name, region)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			display_name = EXCLUDED.display_name,
			region = EXCLUDED.region`,
		p.UserID, nilIfEmpty(p.FullName), nilIfEmpty(p.DisplayName), nilIfEmpty(p.Region))
	if err != nil {
		slog.Error("PostgresStore SaveProfile failed", "error", err, "userID", p.UserID)
		return fmt.Errorf("failed to save profile %d: %w", p.UserID, err)
	}
	return nil
}

func (s *PostgresStore) ListProfiles() ([]models.Profile, error) {
	rows, err := s.db.Query(`SELECT user_id, full_name, display_name, region FROM user_profiles ORDER BY user_id`)
	if err != nil {
		slog.Error("PostgresStore ListProfiles query failed", "error", err)
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			slog.Error("PostgresStore ListProfiles scan failed", "error", err)
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
func (s *PostgresStore) AddFact(text string, addedBy int64) (int64, error) {
	if text == "" {
		return 0, models.ErrEmptyFact
	}
	if len(text) > models.MaxFactLength {
		return 0, models.ErrFactTooLong
	}
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM knowledge_facts WHERE fact = $1)`, text).Scan(&exists)
	if err != nil {
		slog.Error("PostgresStore AddFact duplicate check failed", "error", err)
		return 0, fmt.Errorf("failed to check fact uniqueness: %w", err)
	}
	if exists {
		return 0, models.ErrDuplicateFact
	}
	var id int64
	err = s.db.QueryRow(`INSERT INTO knowledge_facts (fact, added_by, created_at) VALUES ($1, $2, $3) RETURNING id`,
		text, addedBy, time.Now().UTC()).Scan(&id)
	if err != nil {
		slog.Error("PostgresStore AddFact insert failed", "error", err, "addedBy", addedBy)
		return 0, fmt.Errorf("failed to insert fact: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) RemoveFact(id int64) error {
	res, err := s.db.Exec(`DELETE FROM knowledge_facts WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore RemoveFact failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete fact %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListFacts() ([]models.Fact, error) {
	rows, err := s.db.Query(`SELECT id, fact, added_by, created_at FROM knowledge_facts ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore ListFacts query failed", "error", err)
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}
	defer rows.Close()

	var facts []models.Fact
	for rows.Next() {
		var f models.Fact
		if err := rows.Scan(&f.ID, &f.Text, &f.AddedBy, &f.CreatedAt); err != nil {
			slog.Error("PostgresStore ListFacts scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan fact row: %w", err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fact rows: %w", err)
	}
	return facts, nil
}

func (s *PostgresStore) CreateReport(r models.Report) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ReportID, r.RecipientID, r.ISOWeek, r.ISOYear, questionsJSON, answersJSON, string(r.Status), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore CreateReport failed", "error", err, "reportID", r.ReportID, "recipient", r.RecipientID)
		return fmt.Errorf("failed to insert report %s for %d: %w", r.ReportID, r.RecipientID, err)
	}
	return nil
}

func (s *PostgresStore) GetReport(reportID string, recipientID int64) (*models.Report, error) {
	row := s.db.QueryRow(`
		SELECT report_id, recipient_id, iso_week, iso_year, questions, answers, status, created_at, updated_at, reminder_sent_at
		FROM reports WHERE report_id = $1 AND recipient_id = $2`, reportID, recipientID)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetReport failed", "error", err, "reportID", reportID, "recipient", recipientID)
		return nil, fmt.Errorf("failed to get report %s for %d: %w", reportID, recipientID, err)
	}
	return &r, nil
}

func (s *PostgresStore) GetOpenReport(recipientID int64) (*models.Report, error) {
	row := s.db.QueryRow(`
		SELECT report_id, recipient_id, iso_week, iso_year, questions, answers, status, created_at, updated_at, reminder_sent_at
		FROM reports WHERE recipient_id = $1 AND status != $2 ORDER BY created_at LIMIT 1`,
		recipientID, string(models.ReportStatusCompleted))
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetOpenReport failed", "error", err, "recipient", recipientID)
		return nil, fmt.Errorf("failed to get open report for %d: %w", recipientID, err)
	}
	return &r, nil
}

func (s *PostgresStore) UpdateReportAnswers(reportID string, recipientID int64, answers []string, status models.ReportStatus) error {
	if !models.IsValidReportStatus(status) {
		return models.ErrInvalidStatus
	}
	answersJSON, err := marshalStrings(answers)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE reports SET answers = $1, status = $2, updated_at = $3 WHERE report_id = $4 AND recipient_id = $5`,
		answersJSON, string(status), time.Now().UTC(), reportID, recipientID)
	if err != nil {
		slog.Error("PostgresStore UpdateReportAnswers failed", "error", err, "reportID", reportID, "recipient", recipientID)
		return fmt.Errorf("failed to update report %s for %d: %w", reportID, recipientID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListReportsByWeek(week, year int) ([]models.Report, error) {
	rows, err := s.db.Query(`
		SELECT report_id, recipient_id, iso_week, iso_year, questions, answers, status, created_at, updated_at, reminder_sent_at
		FROM reports WHERE iso_week = $1 AND iso_year = $2 ORDER BY recipient_id`, week, year)
	if err != nil {
		slog.Error("PostgresStore ListReportsByWeek query failed", "error", err, "week", week, "year", year)
		return nil, fmt.Errorf("failed to query reports for week %d/%d: %w", week, year, err)
	}
	return collectReports(rows)
}

func (s *PostgresStore) ListOverdueReports(cutoff time.Time) ([]models.Report, error) {
	rows, err := s.db.Query(`
		SELECT report_id, recipient_id, iso_week, iso_year, questions, answers, status, created_at, updated_at, reminder_sent_at
		FROM reports
		WHERE status != $1 AND created_at < $2 AND (reminder_sent_at IS NULL OR reminder_sent_at < $3)
		ORDER BY created_at`,
		string(models.ReportStatusCompleted), cutoff, cutoff)
	if err != nil {
		slog.Error("PostgresStore ListOverdueReports query failed", "error", err)
		return nil, fmt.Errorf("failed to query overdue reports: %w", err)
	}
	return collectReports(rows)
}

// MarkReminderSent performs the stamp as a single conditional UPDATE so
// concurrent sweeps or a mid-sweep completion cannot double-send.
func (s *PostgresStore) MarkReminderSent(reportID string, recipientID int64, now, cutoff time.Time) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE reports SET reminder_sent_at = $1, updated_at = $2
		WHERE report_id = $3 AND recipient_id = $4 AND status != $5
		  AND (reminder_sent_at IS NULL OR reminder_sent_at < $6)`,
		now, now, reportID, recipientID, string(models.ReportStatusCompleted), cutoff)
	if err != nil {
		slog.Error("PostgresStore MarkReminderSent failed", "error", err, "reportID", reportID, "recipient", recipientID)
		return false, fmt.Errorf("failed to mark reminder for %s/%d: %w", reportID, recipientID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) LogRequest(userID int64, requestText, responseText string) error {
	_, err := s.db.Exec(`INSERT INTO user_requests (user_id, request_text, response_text, timestamp) VALUES ($1, $2, $3, $4)`,
		userID, requestText, responseText, time.Now().UTC())
	if err != nil {
		slog.Error("PostgresStore LogRequest failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to log request for %d: %w", userID, err)
	}
	return nil
}

func (s *PostgresStore) GetCachedSearch(query string) (string, bool, error) {
	var results string
	err := s.db.QueryRow(`SELECT results FROM search_cache WHERE query = $1`, query).Scan(&results)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetCachedSearch failed", "error", err)
		return "", false, fmt.Errorf("failed to read search cache: %w", err)
	}
	return results, true, nil
}

func (s *PostgresStore) SaveCachedSearch(query, results string) error {
	_, err := s.db.Exec(`
		INSERT INTO search_cache (query, results, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (query) DO UPDATE SET results = EXCLUDED.results`,
		query, results, time.Now().UTC())
	if err != nil {
		slog.Error("PostgresStore SaveCachedSearch failed", "error", err)
		return fmt.Errorf("failed to save search cache: %w", err)
	}
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
