// Package store persists decoded TYCHO models in a SQLite database.
//
// Each model is keyed by a UUID and deduplicated by the BLAKE3 hash of its
// source bytes. Header entries, fields and per-element field values are kept
// in file order so a loaded model matches the decoded one key for key.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	tyerrors "github.com/FocuswithJustin/tychomodel/core/errors"
	"github.com/FocuswithJustin/tychomodel/core/sqlite"
	"github.com/FocuswithJustin/tychomodel/core/tycho"
	"github.com/FocuswithJustin/tychomodel/internal/logging"
)

const schema = `
	CREATE TABLE IF NOT EXISTS models (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		source_hash TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS header_entries (
		model_id TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		position INTEGER,
		name TEXT,
		value_type TEXT NOT NULL,
		int_value INTEGER,
		real_value REAL,
		text_value TEXT,
		PRIMARY KEY (model_id, seq)
	);
	CREATE TABLE IF NOT EXISTS fields (
		model_id TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		name TEXT NOT NULL,
		field_type TEXT NOT NULL,
		length INTEGER NOT NULL,
		PRIMARY KEY (model_id, seq),
		UNIQUE (model_id, name)
	);
	CREATE TABLE IF NOT EXISTS field_values (
		model_id TEXT NOT NULL,
		field_seq INTEGER NOT NULL,
		idx INTEGER NOT NULL,
		int_value INTEGER,
		real_value REAL,
		text_value TEXT,
		PRIMARY KEY (model_id, field_seq, idx),
		FOREIGN KEY (model_id, field_seq) REFERENCES fields(model_id, seq) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS diagnostics (
		model_id TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
		line INTEGER NOT NULL,
		key TEXT,
		message TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_diagnostics_model ON diagnostics(model_id);
`

// Store is a SQLite-backed model store.
type Store struct {
	db   *sql.DB
	path string
}

// Entry describes a stored model.
type Entry struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	SourceHash string    `json:"source_hash"`
	CreatedAt  time.Time `json:"created_at"`
	Fields     int       `json:"fields"`
}

// Open opens or creates the store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema in %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FindByHash returns the ID of the model stored with the given source hash.
func (s *Store) FindByHash(ctx context.Context, hash string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM models WHERE source_hash = ?`, hash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: find %s: %w", hash, err)
	}
	return id, true, nil
}

// Save stores m and returns its ID. A model whose source hash is already
// stored is not written again; the existing ID is returned with created
// false.
func (s *Store) Save(ctx context.Context, m *tycho.Model) (id string, created bool, err error) {
	if m.SourceHash == "" {
		return "", false, fmt.Errorf("store: model %s has no source hash", m.Filename)
	}
	if existing, ok, err := s.FindByHash(ctx, m.SourceHash); err != nil || ok {
		if ok {
			logging.Info("model_exists", "id", existing, "path", m.Filename, "db", s.path)
		}
		return existing, false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	id = uuid.New().String()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO models (id, filename, source_hash, created_at) VALUES (?, ?, ?, ?)`,
		id, m.Filename, m.SourceHash, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return "", false, fmt.Errorf("store: insert model: %w", err)
	}
	if err = saveHeader(ctx, tx, id, m.Header); err != nil {
		return "", false, err
	}
	if err = saveFields(ctx, tx, id, m); err != nil {
		return "", false, err
	}
	for _, d := range m.Diagnostics {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO diagnostics (model_id, line, key, message) VALUES (?, ?, ?, ?)`,
			id, d.Line, d.Key, d.Message); err != nil {
			return "", false, fmt.Errorf("store: insert diagnostic: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", false, fmt.Errorf("store: commit: %w", err)
	}
	logging.InfoContext(ctx, "model_saved", "id", id, "path", m.Filename, "fields", m.Len(), "db", s.path)
	return id, true, nil
}

func saveHeader(ctx context.Context, tx *sql.Tx, id string, h *tycho.Header) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO header_entries
		(model_id, seq, position, name, value_type, int_value, real_value, text_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare header: %w", err)
	}
	defer stmt.Close()

	seq := 0
	for key, v := range h.All() {
		var position, name any
		if key.IsPosition() {
			position = key.Index
		} else {
			name = key.Name
		}
		intVal, realVal, textVal := scalarColumns(v)
		if _, err := stmt.ExecContext(ctx, id, seq, position, name, v.Type.String(), intVal, realVal, textVal); err != nil {
			return fmt.Errorf("store: insert header %s: %w", key, err)
		}
		seq++
	}
	return nil
}

func scalarColumns(v tycho.Value) (intVal, realVal, textVal any) {
	switch v.Type {
	case tycho.TypeInt:
		return v.Int, nil, nil
	case tycho.TypeFloat:
		return nil, realColumn(v.Float), nil
	default:
		return nil, nil, v.Str
	}
}

// realColumn maps NaN, which SQLite cannot store as REAL, to NULL.
func realColumn(f float64) any {
	if math.IsNaN(f) {
		return nil
	}
	return f
}

func saveFields(ctx context.Context, tx *sql.Tx, id string, m *tycho.Model) error {
	fieldStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO fields (model_id, seq, name, field_type, length) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare fields: %w", err)
	}
	defer fieldStmt.Close()

	valueStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO field_values (model_id, field_seq, idx, int_value, real_value, text_value) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare values: %w", err)
	}
	defer valueStmt.Close()

	seq := 0
	for name, f := range m.All() {
		if _, err := fieldStmt.ExecContext(ctx, id, seq, name, f.Type.String(), f.Len()); err != nil {
			return fmt.Errorf("store: insert field %q: %w", name, err)
		}
		for i := 0; i < f.Len(); i++ {
			var intVal, realVal, textVal any
			switch f.Type {
			case tycho.FieldFloat:
				realVal = realColumn(f.Floats[i])
			case tycho.FieldInt:
				intVal = f.Ints[i]
			default:
				textVal = f.Strings[i]
			}
			if _, err := valueStmt.ExecContext(ctx, id, seq, i, intVal, realVal, textVal); err != nil {
				return fmt.Errorf("store: insert %q[%d]: %w", name, i, err)
			}
		}
		seq++
	}
	return nil
}

// Load rebuilds the model stored under id.
func (s *Store) Load(ctx context.Context, id string) (*tycho.Model, error) {
	m := tycho.NewModel("")
	err := s.db.QueryRowContext(ctx, `SELECT filename, source_hash FROM models WHERE id = ?`, id).
		Scan(&m.Filename, &m.SourceHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tyerrors.NewNotFound("model", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", id, err)
	}

	if err := s.loadHeader(ctx, id, m.Header); err != nil {
		return nil, err
	}
	if err := s.loadFields(ctx, id, m); err != nil {
		return nil, err
	}
	if err := s.loadDiagnostics(ctx, id, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) loadHeader(ctx context.Context, id string, h *tycho.Header) error {
	rows, err := s.db.QueryContext(ctx, `SELECT position, name, value_type, int_value, real_value, text_value
		FROM header_entries WHERE model_id = ? ORDER BY seq`, id)
	if err != nil {
		return fmt.Errorf("store: load header: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			position  sql.NullInt64
			name      sql.NullString
			valueType string
			intVal    sql.NullInt64
			realVal   sql.NullFloat64
			textVal   sql.NullString
		)
		if err := rows.Scan(&position, &name, &valueType, &intVal, &realVal, &textVal); err != nil {
			return fmt.Errorf("store: scan header: %w", err)
		}

		key := tycho.NameKey(name.String)
		if position.Valid {
			key = tycho.PositionKey(int(position.Int64))
		}

		var v tycho.Value
		switch valueType {
		case tycho.TypeInt.String():
			v = tycho.IntValue(intVal.Int64)
		case tycho.TypeFloat.String():
			v = tycho.FloatValue(floatOrNaN(realVal))
		default:
			v = tycho.StringValue(textVal.String)
		}
		h.Set(key, v)
	}
	return rows.Err()
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

type storedField struct {
	seq       int
	name      string
	fieldType string
	length    int
}

func (s *Store) loadFields(ctx context.Context, id string, m *tycho.Model) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, name, field_type, length FROM fields WHERE model_id = ? ORDER BY seq`, id)
	if err != nil {
		return fmt.Errorf("store: load fields: %w", err)
	}
	var fields []storedField
	for rows.Next() {
		var f storedField
		if err := rows.Scan(&f.seq, &f.name, &f.fieldType, &f.length); err != nil {
			rows.Close()
			return fmt.Errorf("store: scan field: %w", err)
		}
		fields = append(fields, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: load fields: %w", err)
	}

	for _, sf := range fields {
		f, err := s.loadValues(ctx, id, sf)
		if err != nil {
			return err
		}
		if err := m.Add(sf.name, f); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadValues(ctx context.Context, id string, sf storedField) (tycho.Field, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT int_value, real_value, text_value FROM field_values
		WHERE model_id = ? AND field_seq = ? ORDER BY idx`, id, sf.seq)
	if err != nil {
		return tycho.Field{}, fmt.Errorf("store: load %q: %w", sf.name, err)
	}
	defer rows.Close()

	var f tycho.Field
	switch sf.fieldType {
	case tycho.FieldFloat.String():
		f = tycho.FloatField(make([]float64, 0, sf.length))
	case tycho.FieldInt.String():
		f = tycho.IntField(make([]int64, 0, sf.length))
	default:
		f = tycho.StringField(make([]string, 0, sf.length))
	}

	for rows.Next() {
		var (
			intVal  sql.NullInt64
			realVal sql.NullFloat64
			textVal sql.NullString
		)
		if err := rows.Scan(&intVal, &realVal, &textVal); err != nil {
			return tycho.Field{}, fmt.Errorf("store: scan %q: %w", sf.name, err)
		}
		switch f.Type {
		case tycho.FieldFloat:
			f.Floats = append(f.Floats, floatOrNaN(realVal))
		case tycho.FieldInt:
			f.Ints = append(f.Ints, intVal.Int64)
		default:
			f.Strings = append(f.Strings, textVal.String)
		}
	}
	if err := rows.Err(); err != nil {
		return tycho.Field{}, fmt.Errorf("store: load %q: %w", sf.name, err)
	}
	if f.Len() != sf.length {
		return tycho.Field{}, fmt.Errorf("store: field %q has %d values, expected %d", sf.name, f.Len(), sf.length)
	}
	return f, nil
}

func (s *Store) loadDiagnostics(ctx context.Context, id string, m *tycho.Model) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT line, key, message FROM diagnostics WHERE model_id = ? ORDER BY rowid`, id)
	if err != nil {
		return fmt.Errorf("store: load diagnostics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d tycho.Diagnostic
		var key sql.NullString
		if err := rows.Scan(&d.Line, &key, &d.Message); err != nil {
			return fmt.Errorf("store: scan diagnostic: %w", err)
		}
		d.Key = key.String
		m.Diagnostics = append(m.Diagnostics, d)
	}
	return rows.Err()
}

// List returns the stored models in insertion order.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT m.id, m.filename, m.source_hash, m.created_at,
			(SELECT COUNT(*) FROM fields f WHERE f.model_id = m.id)
		FROM models m ORDER BY m.rowid`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Filename, &e.SourceHash, &created, &e.Fields); err != nil {
			return nil, fmt.Errorf("store: scan entry: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("store: entry %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the model stored under id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tyerrors.NewNotFound("model", id)
	}
	return nil
}
