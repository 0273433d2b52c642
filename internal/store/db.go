package store

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"load-profile-pipeline/internal/model"
)

var db *sql.DB

// InitDB opens the SQLite database and creates the schema if needed.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			spec TEXT,
			status TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS job_errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT,
			error_message TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS summary_rows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT,
			class TEXT,
			size_band TEXT,
			period TEXT,
			stat TEXT,
			value REAL,
			sample_count INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS parse_warnings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT,
			file TEXT,
			line INTEGER,
			reason TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS quality_findings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT,
			class TEXT,
			size_band TEXT,
			date TEXT,
			kind TEXT,
			detail TEXT
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveJob stores a new load profile job.
func SaveJob(jobID string, spec model.LoadProfileJobSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO jobs (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		jobID, specJSON, "pending", now, now)
	return err
}

// UpdateJobStatus updates job status.
func UpdateJobStatus(jobID string, status string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`, status, now, jobID)
	return err
}

// SaveJobError records an error for a job.
func SaveJobError(jobID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.Exec(`INSERT INTO job_errors (job_id, error_message, created_at) VALUES (?, ?, ?)`,
		jobID, err.Error(), now)
	return e
}

// GetJobErrors returns the recorded error messages for a job.
func GetJobErrors(jobID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT error_message, created_at FROM job_errors WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errors []map[string]interface{}
	for rows.Next() {
		var msg string
		var createdAt time.Time
		if err := rows.Scan(&msg, &createdAt); err != nil {
			return nil, err
		}
		errors = append(errors, map[string]interface{}{
			"message":   msg,
			"createdAt": createdAt,
		})
	}
	return errors, rows.Err()
}

// ListJobs returns all jobs with basic info.
func ListJobs() ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT id, status, created_at, updated_at FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []map[string]interface{}
	for rows.Next() {
		var id, status string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, map[string]interface{}{
			"id":        id,
			"status":    status,
			"createdAt": createdAt,
			"updatedAt": updatedAt,
		})
	}
	return jobs, rows.Err()
}

// GetJob fetches full job spec and status.
func GetJob(jobID string) (map[string]interface{}, error) {
	var specJSON string
	var status string
	var createdAt, updatedAt time.Time

	err := db.QueryRow(`SELECT spec, status, created_at, updated_at FROM jobs WHERE id = ?`, jobID).
		Scan(&specJSON, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var spec model.LoadProfileJobSpec
	if err := json.Unmarshal([]byte(specJSON), &spec); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":        jobID,
		"spec":      spec,
		"status":    status,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
	}, nil
}

// SaveSummaryRows stores the summary table for a job, replacing any rows a
// previous run of the same job produced.
func SaveSummaryRows(jobID string, summaries []model.SummaryRow) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM summary_rows WHERE job_id = ?`, jobID); err != nil {
		tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO summary_rows (job_id, class, size_band, period, stat, value, sample_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, row := range summaries {
		if _, err := stmt.Exec(jobID, string(row.Class), string(row.SizeBand), row.Period, row.Stat, row.Value, row.SampleCount); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetSummaryRows returns the summary table for a job.
func GetSummaryRows(jobID string) ([]model.SummaryRow, error) {
	rows, err := db.Query(`SELECT class, size_band, period, stat, value, sample_count
		FROM summary_rows WHERE job_id = ? ORDER BY class, size_band, period, stat`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.SummaryRow
	for rows.Next() {
		var row model.SummaryRow
		var class, size string
		if err := rows.Scan(&class, &size, &row.Period, &row.Stat, &row.Value, &row.SampleCount); err != nil {
			return nil, err
		}
		row.Class = model.CustomerClass(class)
		row.SizeBand = model.SizeBand(size)
		summaries = append(summaries, row)
	}
	return summaries, rows.Err()
}

// SaveParseWarnings stores skipped-row warnings for a job.
func SaveParseWarnings(jobID string, warnings []model.RowWarning) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO parse_warnings (job_id, file, line, reason) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, w := range warnings {
		if _, err := stmt.Exec(jobID, w.File, w.Line, w.Reason); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetParseWarnings returns skipped-row warnings for a job.
func GetParseWarnings(jobID string) ([]model.RowWarning, error) {
	rows, err := db.Query(`SELECT file, line, reason FROM parse_warnings WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warnings []model.RowWarning
	for rows.Next() {
		var w model.RowWarning
		if err := rows.Scan(&w.File, &w.Line, &w.Reason); err != nil {
			return nil, err
		}
		warnings = append(warnings, w)
	}
	return warnings, rows.Err()
}

// SaveQualityFindings stores data-quality findings for a job.
func SaveQualityFindings(jobID string, findings []model.QualityFinding) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO quality_findings (job_id, class, size_band, date, kind, detail) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, f := range findings {
		if _, err := stmt.Exec(jobID, string(f.Class), string(f.SizeBand), f.Date, f.Kind, f.Detail); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetQualityFindings returns data-quality findings for a job.
func GetQualityFindings(jobID string) ([]model.QualityFinding, error) {
	rows, err := db.Query(`SELECT class, size_band, date, kind, detail FROM quality_findings WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []model.QualityFinding
	for rows.Next() {
		var f model.QualityFinding
		var class, size string
		if err := rows.Scan(&class, &size, &f.Date, &f.Kind, &f.Detail); err != nil {
			return nil, err
		}
		f.Class = model.CustomerClass(class)
		f.SizeBand = model.SizeBand(size)
		findings = append(findings, f)
	}
	return findings, rows.Err()
}
