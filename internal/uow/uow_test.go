package uow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/kirinyoku/eventhub/internal/repository"
	postgresrepo "github.com/kirinyoku/eventhub/internal/repository/postgres"
)

type fakeRunner struct {
	errs  []error
	calls int
	opts  []*pgx.TxOptions
}

func (f *fakeRunner) RunTx(ctx context.Context, opts *pgx.TxOptions, fn func(ctx context.Context, tx postgresrepo.DB) error) error {
	f.calls++
	f.opts = append(f.opts, opts)
	if err := fn(ctx, nil); err != nil {
		return err
	}
	if len(f.errs) >= f.calls {
		return f.errs[f.calls-1]
	}
	return nil
}

func serializationFailure() error {
	return fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})
}

func TestDoRetriesSerializationFailures(t *testing.T) {
	r := &fakeRunner{errs: []error{serializationFailure(), serializationFailure()}}

	hooks := 0
	err := NewUoW(r).Do(context.Background(), func(ctx context.Context, _ postgresrepo.DB, after func(AfterCommit)) error {
		after(func(context.Context) { hooks++ })
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, r.calls)
	assert.Equal(t, 1, hooks)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	r := &fakeRunner{errs: []error{serializationFailure(), serializationFailure(), serializationFailure()}}

	hooks := 0
	err := NewUoW(r).Do(context.Background(), func(ctx context.Context, _ postgresrepo.DB, after func(AfterCommit)) error {
		after(func(context.Context) { hooks++ })
		return nil
	})

	assert.True(t, postgresrepo.IsRetryable(err))
	assert.ErrorIs(t, err, repository.ErrContention)
	assert.Equal(t, maxAttempts, r.calls)
	assert.Zero(t, hooks)
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	r := &fakeRunner{}
	boom := errors.New("boom")

	err := NewUoW(r).Do(context.Background(), func(context.Context, postgresrepo.DB, func(AfterCommit)) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, r.calls)
}

func TestDoLockedRunsReadCommitted(t *testing.T) {
	r := &fakeRunner{errs: []error{serializationFailure()}}

	err := NewUoW(r).DoLocked(context.Background(), func(context.Context, postgresrepo.DB, func(AfterCommit)) error {
		return nil
	})

	assert.NoError(t, err)
	assert.Len(t, r.opts, 2)
	for _, o := range r.opts {
		if assert.NotNil(t, o) {
			assert.Equal(t, pgx.ReadCommitted, o.IsoLevel)
			assert.Equal(t, pgx.ReadWrite, o.AccessMode)
		}
	}
}

func TestDoKeepsDefaultIsolation(t *testing.T) {
	r := &fakeRunner{}

	err := NewUoW(r).Do(context.Background(), func(context.Context, postgresrepo.DB, func(AfterCommit)) error {
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, []*pgx.TxOptions{nil}, r.opts)
}
