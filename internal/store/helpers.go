package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
)

// marshalStrings serializes a string slice to the JSON form stored in the
// questions/answers columns. A nil slice is stored as "[]".
func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(data), nil
}

// unmarshalStrings parses the JSON column form back into a slice.
func unmarshalStrings(data string) ([]string, error) {
	if data == "" {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal string list: %w", err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanReport scans one reports row.
func scanReport(s rowScanner) (models.Report, error) {
	var r models.Report
	var questionsJSON, answersJSON string
	var reminderSentAt sql.NullTime
	err := s.Scan(
		&r.ReportID, &r.RecipientID, &r.ISOWeek, &r.ISOYear,
		&questionsJSON, &answersJSON, &r.Status,
		&r.CreatedAt, &r.UpdatedAt, &reminderSentAt,
	)
	if err != nil {
		return r, err
	}
	if r.Questions, err = unmarshalStrings(questionsJSON); err != nil {
		return r, fmt.Errorf("report %s questions: %w", r.ReportID, err)
	}
	if r.Answers, err = unmarshalStrings(answersJSON); err != nil {
		return r, fmt.Errorf("report %s answers: %w", r.ReportID, err)
	}
	if reminderSentAt.Valid {
		t := reminderSentAt.Time
		r.ReminderSentAt = &t
	}
	return r, nil
}

// collectReports drains rows into a slice of reports.
func collectReports(rows *sql.Rows) ([]models.Report, error) {
	defer rows.Close()
	var reports []models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report rows: %w", err)
	}
	return reports, nil
}

// collectIDs drains a single-column user_id result set.
func collectIDs(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user id rows: %w", err)
	}
	return ids, nil
}

// scanProfile scans one user_profiles row, mapping NULL columns to "".
func scanProfile(s rowScanner) (models.Profile, error) {
	var p models.Profile
	var fullName, displayName, region sql.NullString
	if err := s.Scan(&p.UserID, &fullName, &displayName, &region); err != nil {
		return p, err
	}
	p.FullName = fullName.String
	p.DisplayName = displayName.String
	p.Region = region.String
	return p, nil
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
