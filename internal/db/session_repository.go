package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Flarenzy/subnet-calculator/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	insertSession = `INSERT INTO subnet_sessions (id, owner, tree, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`
	selectSession = `SELECT owner, tree, created_at, updated_at FROM subnet_sessions WHERE id = $1`
	lockSession   = selectSession + ` FOR UPDATE`
	updateSession = `UPDATE subnet_sessions SET tree = $2, updated_at = $3 WHERE id = $1`
	deleteSession = `DELETE FROM subnet_sessions WHERE id = $1`
)

// DBTX is the part of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SessionRepository stores each session's tree as a jsonb snapshot.
type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session domain.Session) (domain.Session, error) {
	id, err := parseSessionID(session.ID)
	if err != nil {
		return domain.Session{}, err
	}
	tree, err := json.Marshal(session.Tree.Snapshot())
	if err != nil {
		return domain.Session{}, fmt.Errorf("encode tree: %w", err)
	}

	_, err = r.db.Exec(ctx, insertSession, id, session.Owner, tree, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Session{}, fmt.Errorf("%w: session %s exists", domain.ErrConflict, session.ID)
		}
		return domain.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) Get(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	parsedID, err := parseSessionID(id)
	if err != nil {
		return domain.Session{}, err
	}
	return scanSession(r.db.QueryRow(ctx, selectSession, parsedID), id)
}

func (r *SessionRepository) Update(ctx context.Context, id domain.SessionID, fn func(*domain.Session) error) (domain.Session, error) {
	parsedID, err := parseSessionID(id)
	if err != nil {
		return domain.Session{}, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Session{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	session, err := scanSession(tx.QueryRow(ctx, lockSession, parsedID), id)
	if err != nil {
		return domain.Session{}, err
	}
	if err := fn(&session); err != nil {
		return domain.Session{}, err
	}

	tree, err := json.Marshal(session.Tree.Snapshot())
	if err != nil {
		return domain.Session{}, fmt.Errorf("encode tree: %w", err)
	}
	if _, err := tx.Exec(ctx, updateSession, parsedID, tree, session.UpdatedAt); err != nil {
		return domain.Session{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Session{}, fmt.Errorf("commit: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id domain.SessionID) (bool, error) {
	parsedID, err := parseSessionID(id)
	if err != nil {
		return false, err
	}
	tag, err := r.db.Exec(ctx, deleteSession, parsedID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanSession(row pgx.Row, id domain.SessionID) (domain.Session, error) {
	var (
		owner     string
		raw       []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&owner, &raw, &createdAt, &updatedAt); err != nil {
		if isNoRows(err) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, err
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return domain.Session{}, fmt.Errorf("decode tree of session %s: %w", id, err)
	}
	tree, err := domain.RestoreTree(snapshot)
	if err != nil {
		return domain.Session{}, fmt.Errorf("restore tree of session %s: %w", id, err)
	}

	return domain.Session{
		ID:        id,
		Owner:     owner,
		Tree:      tree,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func parseSessionID(id domain.SessionID) (pgtype.UUID, error) {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("%w: invalid session id", domain.ErrInvalidInput)
	}

	var parsed pgtype.UUID
	copy(parsed.Bytes[:], u[:])
	parsed.Valid = true

	return parsed, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
