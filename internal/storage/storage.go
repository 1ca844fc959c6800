package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps SQLite-backed persistence for morph jobs and run
// artifacts. It is the externally owned task registry: the core
// rendering packages never touch it.
type Store struct {
	DB *sql.DB // Export for direct database access
}

// New opens (or creates) the database at path and ensures schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{DB: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS processing_jobs (
            id TEXT PRIMARY KEY,
            job_type TEXT NOT NULL,
            status TEXT NOT NULL,
            source_path TEXT,
            target_path TEXT,
            output_path TEXT,
            options_json TEXT,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            started_at TIMESTAMP,
            completed_at TIMESTAMP,
            error_message TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS job_results (
            job_id TEXT,
            meta_json TEXT,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS morph_runs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            job_id TEXT,
            seed INTEGER,
            size INTEGER,
            fps INTEGER,
            duration REAL,
            scale INTEGER,
            format TEXT,
            mapped_pixels INTEGER,
            dropped_pixels INTEGER,
            frames INTEGER,
            hold_frames INTEGER,
            animation_path TEXT,
            mapping_path TEXT,
            final_image_path TEXT,
            diagnostic_path TEXT,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_morph_runs_job_id ON morph_runs(job_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// JobRecord captures persisted job info.
type JobRecord struct {
	ID          string
	JobType     string
	Status      string
	SourcePath  string
	TargetPath  string
	OutputPath  string
	OptionsJSON string
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// MorphRunRecord captures the parameters and artifact paths of one
// completed morph run, enough to audit or replay it from the persisted
// mapping.
type MorphRunRecord struct {
	JobID          string
	Seed           int64
	Size           int
	FPS            int
	Duration       float64
	Scale          int
	Format         string
	MappedPixels   int
	DroppedPixels  int
	Frames         int
	HoldFrames     int
	AnimationPath  string
	MappingPath    string
	FinalImagePath string
	DiagnosticPath string
}

// RecordJobQueued inserts a pending job.
func (s *Store) RecordJobQueued(rec JobRecord) error {
	if s == nil {
		return nil
	}
	_, err := s.DB.Exec(`INSERT OR REPLACE INTO processing_jobs (id, job_type, status, source_path, target_path, output_path, options_json) VALUES (?, ?, ?, ?, ?, ?, ?);`,
		rec.ID, rec.JobType, rec.Status, rec.SourcePath, rec.TargetPath, rec.OutputPath, rec.OptionsJSON)
	return err
}

// RecordJobStart marks a job as running.
func (s *Store) RecordJobStart(id string) error {
	if s == nil {
		return nil
	}
	_, err := s.DB.Exec(`UPDATE processing_jobs SET status='running', started_at=CURRENT_TIMESTAMP WHERE id=?;`, id)
	return err
}

// RecordJobResult finalizes a job with status and meta.
func (s *Store) RecordJobResult(id string, status string, meta map[string]any, errMsg string) error {
	if s == nil {
		return nil
	}
	metaJSON, _ := json.Marshal(meta)
	_, err := s.DB.Exec(`UPDATE processing_jobs SET status=?, completed_at=CURRENT_TIMESTAMP, error_message=? WHERE id=?;`, status, errMsg, id)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(`INSERT INTO job_results (job_id, meta_json) VALUES (?, ?);`, id, string(metaJSON))
	return err
}

// RecordRun persists a completed morph run.
func (s *Store) RecordRun(rec MorphRunRecord) error {
	if s == nil {
		return nil
	}
	_, err := s.DB.Exec(`INSERT INTO morph_runs (job_id, seed, size, fps, duration, scale, format, mapped_pixels, dropped_pixels, frames, hold_frames, animation_path, mapping_path, final_image_path, diagnostic_path)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		rec.JobID, rec.Seed, rec.Size, rec.FPS, rec.Duration, rec.Scale, rec.Format,
		rec.MappedPixels, rec.DroppedPixels, rec.Frames, rec.HoldFrames,
		rec.AnimationPath, rec.MappingPath, rec.FinalImagePath, rec.DiagnosticPath)
	return err
}

// RunForJob fetches the latest run recorded for a job.
func (s *Store) RunForJob(jobID string) (MorphRunRecord, error) {
	if s == nil {
		return MorphRunRecord{}, errors.New("store not initialized")
	}
	var rec MorphRunRecord
	err := s.DB.QueryRow(`SELECT job_id, seed, size, fps, duration, scale, format, mapped_pixels, dropped_pixels, frames, hold_frames, animation_path, mapping_path, final_image_path, diagnostic_path
        FROM morph_runs WHERE job_id=? ORDER BY created_at DESC LIMIT 1;`, jobID).Scan(
		&rec.JobID, &rec.Seed, &rec.Size, &rec.FPS, &rec.Duration, &rec.Scale, &rec.Format,
		&rec.MappedPixels, &rec.DroppedPixels, &rec.Frames, &rec.HoldFrames,
		&rec.AnimationPath, &rec.MappingPath, &rec.FinalImagePath, &rec.DiagnosticPath)
	return rec, err
}

// RecentJobs returns the latest jobs up to limit.
func (s *Store) RecentJobs(limit int) ([]JobRecord, error) {
	if s == nil {
		return nil, errors.New("store not initialized")
	}
	rows, err := s.DB.Query(`SELECT id, job_type, status, source_path, target_path, output_path, options_json, created_at, started_at, completed_at, error_message FROM processing_jobs ORDER BY created_at DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []JobRecord
	for rows.Next() {
		var rec JobRecord
		var created time.Time
		var started, completed sql.NullTime
		var errorMsg sql.NullString
		if err := rows.Scan(&rec.ID, &rec.JobType, &rec.Status, &rec.SourcePath, &rec.TargetPath, &rec.OutputPath, &rec.OptionsJSON, &created, &started, &completed, &errorMsg); err != nil {
			return nil, err
		}
		rec.CreatedAt = created
		if started.Valid {
			rec.StartedAt = &started.Time
		}
		if completed.Valid {
			rec.CompletedAt = &completed.Time
		}
		if errorMsg.Valid {
			rec.Error = errorMsg.String
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Job fetches a single job record by id.
func (s *Store) Job(id string) (JobRecord, error) {
	if s == nil {
		return JobRecord{}, errors.New("store not initialized")
	}
	var rec JobRecord
	var created time.Time
	var started, completed sql.NullTime
	var errorMsg sql.NullString
	err := s.DB.QueryRow(`SELECT id, job_type, status, source_path, target_path, output_path, options_json, created_at, started_at, completed_at, error_message FROM processing_jobs WHERE id=?;`, id).Scan(
		&rec.ID, &rec.JobType, &rec.Status, &rec.SourcePath, &rec.TargetPath, &rec.OutputPath, &rec.OptionsJSON, &created, &started, &completed, &errorMsg)
	if err != nil {
		return JobRecord{}, err
	}
	rec.CreatedAt = created
	if started.Valid {
		rec.StartedAt = &started.Time
	}
	if completed.Valid {
		rec.CompletedAt = &completed.Time
	}
	if errorMsg.Valid {
		rec.Error = errorMsg.String
	}
	return rec, nil
}

// JobMeta fetches the last meta blob for a job.
func (s *Store) JobMeta(id string) (map[string]any, error) {
	if s == nil {
		return nil, errors.New("store not initialized")
	}
	var metaJSON string
	err := s.DB.QueryRow(`SELECT meta_json FROM job_results WHERE job_id=? ORDER BY created_at DESC LIMIT 1;`, id).Scan(&metaJSON)
	if err != nil {
		return nil, err
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	return meta, nil
}

// DeleteJob removes a job and its results and runs (cleanup endpoint).
func (s *Store) DeleteJob(id string) error {
	if s == nil {
		return nil
	}
	for _, stmt := range []string{
		`DELETE FROM morph_runs WHERE job_id=?;`,
		`DELETE FROM job_results WHERE job_id=?;`,
		`DELETE FROM processing_jobs WHERE id=?;`,
	} {
		if _, err := s.DB.Exec(stmt, id); err != nil {
			return err
		}
	}
	return nil
}
