package workerpool

import (
	"context"
	"errors"
	"sync"

	"github.com/pitabwire/util"

	"github.com/pitabwire/l10n/config"
)

// ErrPoolNotConfigured is returned when the manager holds no pool.
var ErrPoolNotConfigured = errors.New("worker pool is not configured")

type manager struct {
	pool         WorkerPool
	shutdownOnce sync.Once
}

// NewManager builds an ants backed pool sized from cfg, with opts applied on top.
func NewManager(
	ctx context.Context,
	cfg config.ConfigurationWorkerPool,
	opts ...Option,
) (Manager, error) {
	log := util.Log(ctx)

	poolOpts := defaultWorkerPoolOpts(cfg, log)

	for _, opt := range opts {
		opt(poolOpts)
	}

	pool, err := setupWorkerPool(ctx, poolOpts)
	if err != nil {
		return nil, err
	}

	log.WithField("pools", poolOpts.PoolCount).
		WithField("capacity", poolOpts.SinglePoolCapacity).
		Debug("worker pool ready")

	return &manager{pool: pool}, nil
}

func (m *manager) GetPool() (WorkerPool, error) {
	if m.pool == nil {
		return nil, ErrPoolNotConfigured
	}
	return m.pool, nil
}

// Shutdown releases the pool. Tasks already running finish on their own.
func (m *manager) Shutdown(_ context.Context) error {
	if m.pool == nil {
		return ErrPoolNotConfigured
	}
	m.shutdownOnce.Do(m.pool.Shutdown)
	return nil
}
