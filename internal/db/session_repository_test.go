package db

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Flarenzy/subnet-calculator/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const testSessionID = domain.SessionID("550e8400-e29b-41d4-a716-446655440000")

type stubRow struct {
	scanFn func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	return r.scanFn(dest...)
}

type stubTx struct {
	pgx.Tx
	row        pgx.Row
	execs      []string
	committed  bool
	rolledBack bool
}

func (t *stubTx) QueryRow(context.Context, string, ...any) pgx.Row {
	return t.row
}

func (t *stubTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, sql)
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (t *stubTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *stubTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type stubDB struct {
	row    pgx.Row
	tx     *stubTx
	execFn func(string, ...any) (pgconn.CommandTag, error)
}

func (d stubDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if d.execFn == nil {
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return d.execFn(sql, args...)
}

func (d stubDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return d.row
}

func (d stubDB) Begin(context.Context) (pgx.Tx, error) {
	return d.tx, nil
}

func sessionRow(t *testing.T, tree *domain.Tree) pgx.Row {
	t.Helper()

	raw, err := json.Marshal(tree.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return stubRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "user-1"
		*dest[1].(*[]byte) = raw
		*dest[2].(*time.Time) = now
		*dest[3].(*time.Time) = now
		return nil
	}}
}

func TestGetReturnsSessionNotFoundOnNoRows(t *testing.T) {
	repo := NewSessionRepository(stubDB{row: stubRow{scanFn: func(...any) error { return pgx.ErrNoRows }}})

	_, err := repo.Get(context.Background(), testSessionID)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetRejectsMalformedID(t *testing.T) {
	repo := NewSessionRepository(stubDB{})

	_, err := repo.Get(context.Background(), "not-a-uuid")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetRestoresTree(t *testing.T) {
	tree := domain.NewTree()
	root := tree.Subnets()[0]
	if _, err := tree.Divide(root.ID); err != nil {
		t.Fatalf("divide: %v", err)
	}
	repo := NewSessionRepository(stubDB{row: sessionRow(t, tree)})

	session, err := repo.Get(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.Owner != "user-1" {
		t.Fatalf("unexpected owner: %q", session.Owner)
	}
	subnets := session.Tree.Subnets()
	if len(subnets) != 2 || subnets[0].CIDR() != "192.168.0.0/25" || subnets[1].CIDR() != "192.168.0.128/25" {
		t.Fatalf("unexpected subnets: %+v", subnets)
	}
}

func TestGetFailsOnCorruptSnapshot(t *testing.T) {
	row := stubRow{scanFn: func(dest ...any) error {
		*dest[1].(*[]byte) = []byte(`{"nodes":[{"id":"a","network":"10.0.0.1","prefix":24}]}`)
		return nil
	}}
	repo := NewSessionRepository(stubDB{row: row})

	_, err := repo.Get(context.Background(), testSessionID)
	if !errors.Is(err, domain.ErrCorruptTree) {
		t.Fatalf("expected ErrCorruptTree, got %v", err)
	}
}

func TestUpdateCommitsWhenCallbackSucceeds(t *testing.T) {
	tx := &stubTx{row: sessionRow(t, domain.NewTree())}
	repo := NewSessionRepository(stubDB{tx: tx})

	session, err := repo.Update(context.Background(), testSessionID, func(s *domain.Session) error {
		_, err := s.Tree.Divide(s.Tree.Subnets()[0].ID)
		return err
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !tx.committed {
		t.Fatal("expected transaction to be committed")
	}
	if len(tx.execs) != 1 || !strings.HasPrefix(tx.execs[0], "UPDATE subnet_sessions") {
		t.Fatalf("unexpected statements: %v", tx.execs)
	}
	if len(session.Tree.Subnets()) != 2 {
		t.Fatalf("expected 2 subnets, got %d", len(session.Tree.Subnets()))
	}
}

func TestUpdateRollsBackWhenCallbackFails(t *testing.T) {
	tx := &stubTx{row: sessionRow(t, domain.NewTree())}
	repo := NewSessionRepository(stubDB{tx: tx})

	_, err := repo.Update(context.Background(), testSessionID, func(*domain.Session) error {
		return domain.ErrInvalidInput
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if tx.committed {
		t.Fatal("expected no commit")
	}
	if !tx.rolledBack {
		t.Fatal("expected rollback")
	}
	if len(tx.execs) != 0 {
		t.Fatalf("expected no statements, got %v", tx.execs)
	}
}

func TestCreateMapsUniqueViolationToConflict(t *testing.T) {
	repo := NewSessionRepository(stubDB{execFn: func(string, ...any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"}
	}})

	_, err := repo.Create(context.Background(), domain.Session{ID: testSessionID, Tree: domain.NewTree()})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestDeleteReportsMissingRow(t *testing.T) {
	repo := NewSessionRepository(stubDB{execFn: func(string, ...any) (pgconn.CommandTag, error) {
		return pgconn.NewCommandTag("DELETE 0"), nil
	}})

	deleted, err := repo.Delete(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deleted {
		t.Fatal("expected no row to be deleted")
	}
}
