package main

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fogfactory/conveyor"
)

// Config is read from CONVEYOR_* environment variables. Getting tokens takes longer, so that stage
// gets more workers by default.
type Config struct {
	Items         int           `default:"1000"`
	TokenWorkers  int           `split_words:"true" default:"10"`
	ResultWorkers int           `split_words:"true" default:"5"`
	MaxTokenTime  time.Duration `split_words:"true" default:"10ms"`
	MaxResultTime time.Duration `split_words:"true" default:"5ms"`
	QueueCapacity int           `split_words:"true" default:"0"`
	LogLevel      string        `split_words:"true" default:"info"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("conveyor", &cfg); err != nil {
		panic(err)
	}
	log := buildLogger(cfg.LogLevel)
	defer log.Sync() //nolint:errcheck

	getToken := func(i int) string {
		sleepUpTo(cfg.MaxTokenTime)
		return fmt.Sprintf("token_%d", i)
	}
	getResult := func(token string) string {
		sleepUpTo(cfg.MaxResultTime)
		return strings.ReplaceAll(token, "token", "result")
	}

	reg := prometheus.NewRegistry()
	metrics := conveyor.NewMetrics(reg)
	capacity := conveyor.WithCapacity(cfg.QueueCapacity)
	todo, err := conveyor.NewQueue[int](capacity, conveyor.WithMetrics(metrics, "todo"))
	fatalIf(log, err, "build todo queue")
	tokens, err := conveyor.NewQueue[string](capacity, conveyor.WithMetrics(metrics, "tokens"))
	fatalIf(log, err, "build token queue")
	results, err := conveyor.NewQueue[string](capacity, conveyor.WithMetrics(metrics, "results"))
	fatalIf(log, err, "build results queue")

	log.Info("start pools",
		zap.Int("token_workers", cfg.TokenWorkers),
		zap.Int("result_workers", cfg.ResultWorkers))
	stage1, err := conveyor.StartPool(cfg.TokenWorkers, getToken, todo, tokens,
		conveyor.WithPoolName("tokens"), conveyor.WithPoolLogger(log))
	fatalIf(log, err, "start token pool")
	stage2, err := conveyor.StartPool(cfg.ResultWorkers, getResult, tokens, results,
		conveyor.WithPoolName("results"), conveyor.WithPoolLogger(log))
	fatalIf(log, err, "start result pool")

	coord, err := conveyor.NewCoordinator(todo, results, []conveyor.Runner{stage1, stage2},
		conveyor.WithLogger(log))
	fatalIf(log, err, "build coordinator")

	start := time.Now()
	collected := coord.Run(lo.Range(cfg.Items))
	elapsed := time.Since(start)

	expected := lo.Map(lo.Range(cfg.Items), func(i, _ int) string { return fmt.Sprintf("result_%d", i) })
	log.Info("results",
		zap.Int("length", len(collected)),
		zap.Bool("order_okay", slices.Equal(collected, expected)))
	log.Info("processing done", zap.Duration("took", elapsed))

	logMetrics(log, reg)
}

func sleepUpTo(bound time.Duration) {
	if bound > 0 {
		time.Sleep(rand.N(bound))
	}
}

// logMetrics dumps the final counter values, since this process has no scrape endpoint.
func logMetrics(log *zap.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		log.Warn("gather metrics", zap.Error(err))
		return
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			fields := []zap.Field{zap.String("metric", family.GetName())}
			for _, label := range metric.GetLabel() {
				fields = append(fields, zap.String(label.GetName(), label.GetValue()))
			}
			switch {
			case metric.GetCounter() != nil:
				fields = append(fields, zap.Float64("value", metric.GetCounter().GetValue()))
			case metric.GetGauge() != nil:
				fields = append(fields, zap.Float64("value", metric.GetGauge().GetValue()))
			}
			log.Debug("final metric", fields...)
		}
	}
}

func buildLogger(level string) *zap.Logger {
	lvl := zap.NewAtomicLevelAt(zap.InfoLevel)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.SetLevel(zap.InfoLevel)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func fatalIf(log *zap.Logger, err error, msg string) {
	if err != nil {
		log.Fatal(msg, zap.Error(err))
	}
}
