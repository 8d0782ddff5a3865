package capability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// StoredRecord is the durable form of a generated capability. The executable
// handle is not stored; it is rebuilt from the script at load time.
type StoredRecord struct {
	Name        string
	Description string
	SchemaJSON  string
	Language    string // script language, e.g. "python"
	SourcePath  string // script file on disk
	Version     int
	CreatedAt   time.Time
	CreatedBy   string
}

// Store provides durable capability records keyed by name. The registry is
// process-wide; the store is what makes generated capabilities survive
// across runs.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the capability database and initializes the
// schema. WAL mode allows concurrent runs to read while one writes.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open capability database: %w", err)
	}

	// SQLite doesn't support multiple writers well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping capability database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS capabilities (
		name        TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		schema_json TEXT NOT NULL,
		language    TEXT NOT NULL,
		source_path TEXT NOT NULL,
		version     INTEGER NOT NULL DEFAULT 1,
		created_at  INTEGER NOT NULL,
		created_by  TEXT
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Persist inserts or replaces a stored record. Replacing an existing name
// bumps its version, mirroring registry semantics.
func (s *Store) Persist(ctx context.Context, rec StoredRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	version := rec.Version
	if version == 0 {
		version = 1
	}

	var prevVersion int
	err := s.db.QueryRowContext(ctx,
		`SELECT version FROM capabilities WHERE name = ?`, rec.Name).Scan(&prevVersion)
	switch {
	case err == sql.ErrNoRows:
		// First registration of this name
	case err != nil:
		return fmt.Errorf("failed to look up capability %s: %w", rec.Name, err)
	default:
		version = prevVersion + 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO capabilities (name, description, schema_json, language, source_path, version, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			schema_json = excluded.schema_json,
			language    = excluded.language,
			source_path = excluded.source_path,
			version     = excluded.version,
			created_at  = excluded.created_at,
			created_by  = excluded.created_by`,
		rec.Name, rec.Description, rec.SchemaJSON, rec.Language, rec.SourcePath,
		version, rec.CreatedAt.Unix(), rec.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to persist capability %s: %w", rec.Name, err)
	}
	return nil
}

// ListAll returns every stored record, ordered by name. Called at startup to
// rebuild the generated part of the registry.
func (s *Store) ListAll(ctx context.Context) ([]StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, description, schema_json, language, source_path, version, created_at, created_by
		FROM capabilities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list capabilities: %w", err)
	}
	defer rows.Close()

	var out []StoredRecord
	for rows.Next() {
		var rec StoredRecord
		var createdAt int64
		var createdBy sql.NullString
		if err := rows.Scan(&rec.Name, &rec.Description, &rec.SchemaJSON,
			&rec.Language, &rec.SourcePath, &rec.Version, &createdAt, &createdBy); err != nil {
			return nil, fmt.Errorf("failed to scan capability row: %w", err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		rec.CreatedBy = createdBy.String
		out = append(out, rec)
	}
	return out, rows.Err()
}
