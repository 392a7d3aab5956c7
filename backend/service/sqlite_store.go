package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/grantdesk/applicants/backend/model"
)

// SQLiteStore persists subjects and document states in the database opened by db.Open
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const subjectColumns = `id, first_name, last_name, email, phone, national_id, address, signature, created_at, updated_at`

func (s *SQLiteStore) SaveSubject(ctx context.Context, subject *model.Subject) error {
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subjects (`+subjectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			phone = excluded.phone,
			national_id = excluded.national_id,
			address = excluded.address,
			signature = excluded.signature,
			updated_at = excluded.updated_at`,
		subject.ID, subject.FirstName, subject.LastName, subject.Email, subject.Phone,
		subject.NationalID, subject.Address, subject.Signature,
		formatTime(subject.CreatedAt), formatTime(subject.UpdatedAt),
	)
	if err != nil {
		return persistenceError("save subject", err)
	}
	return nil
}

func (s *SQLiteStore) GetSubject(ctx context.Context, id string) (*model.Subject, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = ?`, id)
	subject, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSubjectNotFound, id)
	}
	if err != nil {
		return nil, persistenceError("get subject", err)
	}
	return subject, nil
}

// ListSubjects returns every subject, newest first
func (s *SQLiteStore) ListSubjects(ctx context.Context) ([]*model.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+subjectColumns+` FROM subjects ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, persistenceError("list subjects", err)
	}
	defer rows.Close()

	var subjects []*model.Subject
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, persistenceError("scan subject", err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list subjects", err)
	}
	return subjects, nil
}

func (s *SQLiteStore) Read(ctx context.Context, subjectID string, kind model.DocumentKind) (model.DocumentState, error) {
	state, err := readState(ctx, s.db, subjectID, kind)
	if err != nil {
		return model.DocumentState{}, persistenceError("read state", err)
	}
	return state, nil
}

// Write applies patch to the stored state inside one transaction
func (s *SQLiteStore) Write(ctx context.Context, subjectID string, kind model.DocumentKind, patch model.StatePatch) (model.DocumentState, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.DocumentState{}, persistenceError("begin", err)
	}
	defer tx.Rollback()

	current, err := readState(ctx, tx, subjectID, kind)
	if err != nil {
		return model.DocumentState{}, persistenceError("read state", err)
	}

	state := current.Apply(patch)
	state.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO document_states (subject_id, kind, generated, signed, format, path, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject_id, kind) DO UPDATE SET
			generated = excluded.generated,
			signed = excluded.signed,
			format = excluded.format,
			path = excluded.path,
			updated_at = excluded.updated_at`,
		subjectID, string(kind), state.Generated, state.Signed, string(state.Format), state.Path, formatTime(state.UpdatedAt),
	)
	if err != nil {
		return model.DocumentState{}, persistenceError("write state", err)
	}
	if err := tx.Commit(); err != nil {
		return model.DocumentState{}, persistenceError("commit", err)
	}
	return state, nil
}

func (s *SQLiteStore) Reset(ctx context.Context, subjectID string, kind model.DocumentKind) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_states WHERE subject_id = ? AND kind = ?`, subjectID, string(kind))
	if err != nil {
		return persistenceError("reset state", err)
	}
	return nil
}

func (s *SQLiteStore) States(ctx context.Context, subjectID string) (map[model.DocumentKind]model.DocumentState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, generated, signed, format, path, updated_at
		FROM document_states WHERE subject_id = ?`, subjectID)
	if err != nil {
		return nil, persistenceError("list states", err)
	}
	defer rows.Close()

	result := make(map[model.DocumentKind]model.DocumentState, len(model.AllKinds))
	for _, kind := range model.AllKinds {
		result[kind] = model.DocumentState{}
	}
	for rows.Next() {
		var kind string
		state, err := scanState(rows, &kind)
		if err != nil {
			return nil, persistenceError("scan state", err)
		}
		if k, ok := model.ParseKind(kind); ok {
			result[k] = state
		}
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list states", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readState(ctx context.Context, q queryRower, subjectID string, kind model.DocumentKind) (model.DocumentState, error) {
	row := q.QueryRowContext(ctx, `
		SELECT kind, generated, signed, format, path, updated_at
		FROM document_states WHERE subject_id = ? AND kind = ?`, subjectID, string(kind))

	var k string
	state, err := scanState(row, &k)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DocumentState{}, nil
	}
	return state, err
}

func scanState(row rowScanner, kind *string) (model.DocumentState, error) {
	var (
		state     model.DocumentState
		format    string
		updatedAt string
	)
	if err := row.Scan(kind, &state.Generated, &state.Signed, &format, &state.Path, &updatedAt); err != nil {
		return model.DocumentState{}, err
	}
	state.Format = model.DocumentFormat(format)
	state.UpdatedAt = parseTime(updatedAt)
	return state, nil
}

func scanSubject(row rowScanner) (*model.Subject, error) {
	var (
		subject              model.Subject
		createdAt, updatedAt string
	)
	err := row.Scan(&subject.ID, &subject.FirstName, &subject.LastName, &subject.Email, &subject.Phone,
		&subject.NationalID, &subject.Address, &subject.Signature, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	subject.CreatedAt = parseTime(createdAt)
	subject.UpdatedAt = parseTime(updatedAt)
	return &subject, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
