package conveyor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var (
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// PoolState describes where a pool is in its lifecycle.
type PoolState int32

const (
	PoolNotStarted PoolState = iota
	PoolRunning
	PoolDraining
	PoolStopped
)

func (s PoolState) String() string {
	switch s {
	case PoolNotStarted:
		return "not started"
	case PoolRunning:
		return "running"
	case PoolDraining:
		return "draining"
	case PoolStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Pool runs a fixed-size group of workers sharing an input and an output queue. The workers execute
// on an ants pool sized to the worker count, which owns the goroutines the same way the Pool owns the
// workers.
type Pool[In, Out any] struct {
	name    string
	workers int
	in      *Queue[In]
	out     *Queue[Out]
	fn      Transform[In, Out]

	runner *ants.Pool
	wg     sync.WaitGroup
	state  atomic.Int32
	log    *zap.Logger
}

type poolConfig struct {
	name     string
	log      *zap.Logger
	antsOpts []ants.Option
}

// PoolOption tunes a pool at construction.
type PoolOption func(*poolConfig)

// WithPoolName names the pool in log output.
func WithPoolName(name string) PoolOption {
	return func(cfg *poolConfig) { cfg.name = name }
}

// WithPoolLogger sets the lifecycle logger. Default is a nop logger.
func WithPoolLogger(log *zap.Logger) PoolOption {
	return func(cfg *poolConfig) { cfg.log = log }
}

// WithAntsOptions forwards options to the underlying ants pool.
func WithAntsOptions(opts ...ants.Option) PoolOption {
	return func(cfg *poolConfig) { cfg.antsOpts = append(cfg.antsOpts, opts...) }
}

// StartPool creates workers workers looping over in, fn and out, and starts them concurrently. The
// returned pool is Running; terminate it with StopAndJoin once every producer of in has finished
// pushing.
func StartPool[In, Out any](workers int, fn Transform[In, Out], in *Queue[In], out *Queue[Out], opts ...PoolOption) (*Pool[In, Out], error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkerCount, workers)
	}
	cfg := poolConfig{name: "pool", log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	runner, err := ants.NewPool(workers, cfg.antsOpts...)
	if err != nil {
		return nil, err
	}

	p := &Pool[In, Out]{
		name:    cfg.name,
		workers: workers,
		in:      in,
		out:     out,
		fn:      fn,
		runner:  runner,
		log:     cfg.log,
	}
	p.state.Store(int32(PoolRunning))

	w := worker[In, Out]{in: in, out: out, fn: fn}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		if err := runner.Submit(func() {
			defer p.wg.Done()
			w.run()
		}); err != nil {
			p.wg.Done()
			// Terminate the workers already started before giving up.
			for j := 0; j < i; j++ {
				in.Close()
			}
			p.wg.Wait()
			runner.Release()
			p.state.Store(int32(PoolStopped))
			return nil, fmt.Errorf("start worker %d/%d: %w", i+1, workers, err)
		}
	}

	p.log.Info("pool started", zap.String("pool", p.name), zap.Int("workers", workers))
	return p, nil
}

// StopAndJoin closes the input queue once per worker, waits for the queue to be fully drained, then
// waits for every worker to exit before releasing the goroutines. The queue join alone is not enough:
// a worker may still be mid-push downstream after acknowledging its input, and only the worker join
// guarantees that push has landed. Callers must have stopped producing to the input queue first.
// Calling StopAndJoin on a pool already draining or stopped returns immediately.
func (p *Pool[In, Out]) StopAndJoin() {
	if !p.state.CompareAndSwap(int32(PoolRunning), int32(PoolDraining)) {
		return
	}
	p.log.Info("pool draining", zap.String("pool", p.name), zap.Int("workers", p.workers))
	for i := 0; i < p.workers; i++ {
		p.in.Close()
	}
	p.in.Join()
	p.wg.Wait()
	p.runner.Release()
	p.state.Store(int32(PoolStopped))
	p.log.Info("pool stopped", zap.String("pool", p.name))
}

// State returns the pool lifecycle state.
func (p *Pool[In, Out]) State() PoolState {
	return PoolState(p.state.Load())
}

// Workers returns the configured worker count.
func (p *Pool[In, Out]) Workers() int {
	return p.workers
}
