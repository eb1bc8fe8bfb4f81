package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/jmoiron/sqlx"
)

// OpKind distinguishes queued writes.
type OpKind int

const (
	OpSave OpKind = iota
	OpDelete
)

// Op is a queued write for one record identity.
type Op struct {
	// Key identifies the record, usually its pointer. Ops with a nil or non-comparable
	// key (a slice, a map, or a struct holding one) never merge.
	Key  any
	Kind OpKind
	Run  func(ctx context.Context, conn Conn) error
}

// Session is a unit of work: writes are queued, then flushed inside one transaction
// and committed together. A Session is safe for concurrent use.
type Session struct {
	db *DB

	mu      sync.Mutex
	tx      *sqlx.Tx
	engine  *Engine
	pending []Op
}

func newSession(db *DB) *Session {
	return &Session{db: db}
}

// Add queues a save. A queued op for the same key is replaced in place.
func (s *Session) Add(op Op) {
	op.Kind = OpSave
	s.queue(op)
}

// Delete queues a delete. A queued save for the same key is replaced by the delete.
func (s *Session) Delete(op Op) {
	op.Kind = OpDelete
	s.queue(op)
}

func (s *Session) queue(op Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mergeable(op.Key) {
		for i := range s.pending {
			if mergeable(s.pending[i].Key) && s.pending[i].Key == op.Key {
				s.pending[i] = op
				return
			}
		}
	}
	s.pending = append(s.pending, op)
}

func mergeable(key any) bool {
	return key != nil && reflect.ValueOf(key).Comparable()
}

// Pending returns the number of queued ops.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// InTransaction reports whether the session holds an open transaction.
func (s *Session) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx != nil
}

// Flush runs queued ops in order inside the session transaction, beginning it if needed.
// An op is dropped from the queue once it succeeded; on failure the failing op and
// everything after it stay queued until Rollback.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *Session) flushLocked(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.beginLocked(ctx); err != nil {
		return err
	}
	conn := s.engine.conn(s.tx)
	for len(s.pending) > 0 {
		if err := s.pending[0].Run(ctx, conn); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		s.pending = s.pending[1:]
	}
	return nil
}

func (s *Session) beginLocked(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}
	eng, err := s.db.Engine()
	if err != nil {
		return err
	}
	tx, err := eng.DB().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	s.tx, s.engine = tx, eng
	return nil
}

// Commit flushes queued ops and commits the transaction.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.flushLocked(ctx); err != nil {
		return err
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx, s.engine = nil, nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards queued ops and rolls back the open transaction, if any.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx, s.engine = nil, nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// Remove ends the session's current work; the session stays usable afterwards.
func (s *Session) Remove() error {
	return s.Rollback()
}

// Queryer flushes queued ops and returns the connection reads should use:
// the open transaction when there is one, the engine pool otherwise.
func (s *Session) Queryer(ctx context.Context) (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.flushLocked(ctx); err != nil {
		return Conn{}, err
	}
	if s.tx != nil {
		return s.engine.conn(s.tx), nil
	}
	eng, err := s.db.Engine()
	if err != nil {
		return Conn{}, err
	}
	return eng.Conn(), nil
}
