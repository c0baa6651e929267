package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/aegis/internal/domain"
)

type Store struct {
	pool  *pgxpool.Pool
	audit *AuditRepo
	users *UserRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:  pool,
		audit: NewAuditRepo(pool),
		users: NewUserRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Begin opens one transaction for a guarded execution. The returned Tx fails
// fast on a second Commit or Rollback (pgx reports ErrTxClosed).
func (s *Store) Begin(ctx context.Context) (domain.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres.Store.Begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

func (s *Store) Audit() domain.AuditSink      { return s.audit }
func (s *Store) Users() domain.UserRepository { return s.users }
