package conveyor

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNoStages = errors.New("pipeline has no stages")
)

// Runner is the coordinator-facing side of a stage pool.
type Runner interface {
	StopAndJoin()
	State() PoolState
	Workers() int
}

// Coordinator owns the source queue, the sink queue and the ordered list of stage pools in between.
// It feeds the source, stops the stages left to right, then drains the sink, of which it is the sole
// consumer.
type Coordinator[In, Out any] struct {
	source *Queue[In]
	sink   *Queue[Out]
	stages []Runner
	log    *zap.Logger
}

type coordinatorConfig struct {
	log *zap.Logger
}

// CoordinatorOption tunes a coordinator at construction.
type CoordinatorOption func(*coordinatorConfig)

// WithLogger sets the run logger. Default is a nop logger.
func WithLogger(log *zap.Logger) CoordinatorOption {
	return func(cfg *coordinatorConfig) { cfg.log = log }
}

// NewCoordinator wires a pipeline: source is the input queue of the first stage, sink the output
// queue of the last one, stages the pools in data-flow order. Every stage must already be running.
func NewCoordinator[In, Out any](source *Queue[In], sink *Queue[Out], stages []Runner, opts ...CoordinatorOption) (*Coordinator[In, Out], error) {
	if len(stages) == 0 {
		return nil, ErrNoStages
	}
	cfg := coordinatorConfig{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Coordinator[In, Out]{
		source: source,
		sink:   sink,
		stages: stages,
		log:    cfg.log,
	}, nil
}

// Run pushes every item into the source queue, then stops the stages in order: each stage is only
// stopped once all of its producers are done, so no stop marker can overtake an item. Once the last
// stage has stopped, the coordinator closes the sink exactly once (it is its only consumer) and
// drains it. Results come back in arrival order, which matches submission order only when every stage
// has a single worker; see Reorder for the opt-in strict ordering.
func (c *Coordinator[In, Out]) Run(items []In) []Out {
	log := c.log.With(zap.String("run", uuid.NewString()))
	start := time.Now()

	for _, item := range items {
		c.source.Push(item)
	}
	log.Info("source queue fed", zap.Int("items", len(items)))

	for i, stage := range c.stages {
		stage.StopAndJoin()
		log.Info("stage stopped", zap.Int("stage", i), zap.Int("workers", stage.Workers()))
	}

	c.sink.Close()
	results := make([]Out, 0, len(items))
	for item := range c.sink.All() {
		results = append(results, item)
	}
	log.Info("run complete",
		zap.Int("results", len(results)),
		zap.Duration("elapsed", time.Since(start)))
	return results
}
