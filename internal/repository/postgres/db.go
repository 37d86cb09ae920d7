package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Catalog() *CatalogRepo     { return &CatalogRepo{conn{pool: s.pool}} }
func (s *Store) Inventory() *InventoryRepo { return &InventoryRepo{conn{pool: s.pool}} }
func (s *Store) Orders() *OrderRepo        { return &OrderRepo{conn{pool: s.pool}} }
func (s *Store) Tickets() *TicketRepo      { return &TicketRepo{conn{pool: s.pool}} }
func (s *Store) Profiles() *ProfileRepo    { return &ProfileRepo{conn{pool: s.pool}} }
func (s *Store) Favorites() *FavoriteRepo  { return &FavoriteRepo{conn{pool: s.pool}} }
func (s *Store) Content() *ContentRepo     { return &ContentRepo{conn{pool: s.pool}} }
func (s *Store) Vanity() *VanityRepo       { return &VanityRepo{conn{pool: s.pool}} }
func (s *Store) Ads() *AdRepo              { return &AdRepo{conn{pool: s.pool}} }
func (s *Store) Analytics() *AnalyticsRepo { return &AnalyticsRepo{conn{pool: s.pool}} }
func (s *Store) Settings() *SettingsRepo   { return &SettingsRepo{conn{pool: s.pool}} }

// conn carries the pool and, inside a unit of work, the transaction the
// repository is bound to.
type conn struct {
	pool *pgxpool.Pool
	db   DB
}

func (c conn) handle() DB {
	if c.db != nil {
		return c.db
	}
	return c.pool
}

func (c conn) with(db DB) conn {
	c.db = db
	return c
}

// LockingTx is the isolation for writes that serialize on row locks and
// recheck their guards in the UPDATE itself (holds, checkout). Under
// SERIALIZABLE every waiter on a hot ticket type row would fail with 40001.
var LockingTx = &pgx.TxOptions{
	IsoLevel:   pgx.ReadCommitted,
	AccessMode: pgx.ReadWrite,
}

// inTx runs fn on the bound transaction, or in a fresh serializable one
// when the repository is not bound to a unit of work.
func (c conn) inTx(ctx context.Context, fn func(db DB) error) error {
	return c.inTxWith(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite}, fn)
}

// inLockedTx is inTx at LockingTx isolation.
func (c conn) inLockedTx(ctx context.Context, fn func(db DB) error) error {
	return c.inTxWith(ctx, *LockingTx, fn)
}

func (c conn) inTxWith(ctx context.Context, opts pgx.TxOptions, fn func(db DB) error) error {
	if c.db != nil {
		return fn(c.db)
	}

	return pgx.BeginTxFunc(ctx, c.pool, opts, func(tx pgx.Tx) error {
		return fn(tx)
	})
}
