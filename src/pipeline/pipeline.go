// Package pipeline drives a classification run over a Jenkins jobs tree: it reads
// each new build, classifies it, merges the results into the cache and fans them
// out to the optional mirror, broker and metrics sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/benbjohnson/clock"

	"buildtriage/src/analyze"
	"buildtriage/src/broker"
	"buildtriage/src/config"
	"buildtriage/src/contracts"
	"buildtriage/src/detect"
	"buildtriage/src/ingest"
	"buildtriage/src/jenkins"
	"buildtriage/src/junit"
	"buildtriage/src/logger"
	"buildtriage/src/metrics"
	"buildtriage/src/store"
	"buildtriage/src/taskctx"
)

// Summary counts what a run did.
type Summary struct {
	// Builds found in the jobs tree.
	Discovered int
	// Builds already in the cache and not read again.
	Cached int
	// Builds read and classified in this run.
	Classified int
	// Builds skipped because their descriptor or test report could not be parsed.
	ParseErrors int
	// Jobs whose builds directory could not be listed.
	SkippedJobs int
	// Failures attached to the classified builds.
	Failures int
	// Entries removed by integrity repair.
	Violations int
	// Builds in the written document.
	Stored int
	// Set when the context ended before every build was read.
	Interrupted bool
}

// Runner classifies the builds of a jobs tree into a cache document.
type Runner struct {
	cfg         *config.Config
	store       store.Store
	mirror      store.Store
	broker      broker.Broker
	recorder    *metrics.Recorder
	log         logger.Logger
	clock       clock.Clock
	registry    *detect.Registry
	newID       func() string
	descriptors *jenkins.Parser
	logs        *ingest.LogReader
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards output.
func WithLogger(log logger.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithMirror sets a second store that receives a copy of every written document.
func WithMirror(s store.Store) Option {
	return func(r *Runner) { r.mirror = s }
}

// WithBroker publishes an event for every newly classified failure.
func WithBroker(b broker.Broker) Option {
	return func(r *Runner) { r.broker = b }
}

// WithClock replaces the wall clock used for timings and retention.
func WithClock(c clock.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithRegistry replaces the default detector registry.
func WithRegistry(reg *detect.Registry) Option {
	return func(r *Runner) { r.registry = reg }
}

// WithIDGenerator replaces the failure id generator.
func WithIDGenerator(f func() string) Option {
	return func(r *Runner) { r.newID = f }
}

// NewRunner creates a runner writing to st.
func NewRunner(cfg *config.Config, st store.Store, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		store:    st,
		recorder: metrics.NewRecorder(),
		log:      logger.NewSilentLogger(),
		clock:    clock.New(),
		registry: detect.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.descriptors = jenkins.NewParser(cfg.JenkinsURL)
	r.logs = ingest.NewLogReader(cfg.Scan.LogFiles, cfg.Scan.PostBuildMarker, r.log)
	return r
}

// Metrics returns the recorder holding this runner's measurements.
func (r *Runner) Metrics() *metrics.Recorder {
	return r.recorder
}

// Run classifies every build under jobsDir that the cache does not know yet, then
// merges and writes the cache. Only a failure to write the cache is returned; all
// other problems are logged and counted. When ctx ends the traversal stops and the
// builds read so far are still written.
func (r *Runner) Run(ctx context.Context, jobsDir string) (Summary, error) {
	var sum Summary

	prev, err := r.store.Load(ctx)
	if err != nil {
		r.log.Warn("[Runner] Could not read previous cache, starting empty: %v", err)
		prev = store.NewDocument()
	}

	refs, skipped, err := ingest.Discover(jobsDir)
	if err != nil {
		r.log.Error("[Runner] %v", err)
	}
	for _, jobErr := range skipped {
		sum.SkippedJobs++
		r.recorder.JobSkipped()
		r.log.Error("[Runner] Skipping job: %v", jobErr)
	}
	sum.Discovered = len(refs)
	r.log.Info("[Runner] Found %d builds in %s (%d cached)", len(refs), jobsDir, len(prev.Builds))

	classifier := r.newClassifier()
	var builds []*contracts.Build
	var failures []*contracts.Failure

	for _, ref := range refs {
		if ctx.Err() != nil {
			sum.Interrupted = true
			r.log.Warn("[Runner] Interrupted after %d builds: %v", sum.Classified, ctx.Err())
			break
		}

		if prev.HasBuild(ref.ID()) {
			sum.Cached++
			r.recorder.BuildProcessed(metrics.OutcomeCached)
			continue
		}

		b, cases, err := r.read(ref)
		if err != nil {
			sum.ParseErrors++
			r.recorder.ParseError()
			r.recorder.BuildProcessed(metrics.OutcomeSkipped)
			r.log.Error("[Runner] Skipping build %s: %v", ref.ID(), err)
			continue
		}

		// Log lines are only referenced for the duration of this call.
		report := classifier.Classify(b, r.logs.ReadBuild(ref.Dir), cases)

		builds = append(builds, b)
		failures = append(failures, report.Failures...)
		sum.Classified++
		sum.Failures += len(report.Failures)
		r.recorder.BuildProcessed(metrics.OutcomeClassified)

		if n := r.cfg.Scan.GCInterval; n > 0 && sum.Classified%n == 0 {
			runtime.GC()
		}
	}

	doc, violations := store.Merge(prev, builds, failures, r.cfg.RetentionDays, r.clock.Now())
	for _, v := range violations {
		r.recorder.IntegrityDrop(v.Kind)
		r.log.Warn("[Runner] Dropped %s", v)
	}
	sum.Violations = len(violations)
	sum.Stored = len(doc.Builds)
	r.recorder.CachedBuilds(len(doc.Builds))

	// The cache write must not be skipped because the traversal was cancelled.
	if err := r.store.Save(context.WithoutCancel(ctx), doc); err != nil {
		return sum, fmt.Errorf("failed to write cache: %w", err)
	}
	r.log.Info("[Runner] Classified %d builds (%d failures, %d parse errors), cache holds %d builds",
		sum.Classified, sum.Failures, sum.ParseErrors, sum.Stored)

	exportCtx := ctx
	if d := r.cfg.Outputs.ExportTimeout; d > 0 {
		var cancel context.CancelFunc
		exportCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	r.export(exportCtx, doc, builds)
	return sum, nil
}

func (r *Runner) newClassifier() *analyze.Classifier {
	opts := []analyze.Option{
		analyze.WithClock(r.clock),
		analyze.WithObserver(r.recorder),
		analyze.WithThresholds(r.cfg.Scan.SlowDetector, r.cfg.Scan.SlowBuild),
	}
	if r.newID != nil {
		opts = append(opts, analyze.WithIDGenerator(r.newID))
	}
	return analyze.NewClassifier(r.registry, taskctx.NewLocator(r.cfg.Scan.TerminalTasks), r.log, opts...)
}

// read parses the descriptor and test report of one build.
func (r *Runner) read(ref ingest.BuildRef) (*contracts.Build, []junit.Case, error) {
	b, err := r.descriptors.ParseFile(ref.Dir, ref.JobName, ref.BuildNum)
	if err != nil {
		return nil, nil, err
	}
	cases, err := junit.ParseFile(filepath.Join(ref.Dir, junit.ResultFile))
	if err != nil {
		return nil, nil, err
	}
	return b, cases, nil
}

// export feeds the optional sinks. Their errors are logged only. Sinks give up
// when ctx ends; the metrics textfile is local and always written.
func (r *Runner) export(ctx context.Context, doc *store.Document, fresh []*contracts.Build) {
	if r.mirror != nil {
		if err := r.mirror.Save(ctx, doc); err != nil {
			r.log.Warn("[Runner] Mirror write failed: %v", err)
		}
	}

	if r.broker != nil {
		published := 0
		for _, b := range fresh {
			// Builds dropped by retention or repair are not announced.
			if doc.Builds[b.ID] != b {
				continue
			}
			if ctx.Err() != nil {
				r.log.Warn("[Runner] Stopped publishing after %d events: %v", published, ctx.Err())
				break
			}
			for _, f := range doc.FailuresOf(b) {
				if err := broker.PublishFailure(ctx, r.broker, f, b); err != nil {
					r.log.Warn("[Runner] %v", err)
					continue
				}
				published++
			}
		}
		r.log.Debug("[Runner] Published %d failure events", published)
	}

	if path := r.cfg.Outputs.MetricsFile; path != "" {
		if err := r.recorder.WriteTextfile(path); err != nil {
			r.log.Warn("[Runner] Metrics write failed: %v", err)
		}
	}
}

// Open builds a runner for cfg that writes the JSON cache at outputPath and
// connects the Postgres mirror and Redpanda broker when configured. Sinks that
// cannot be reached are logged and left out. The returned function releases them.
func Open(ctx context.Context, cfg *config.Config, outputPath string, log logger.Logger, opts ...Option) (*Runner, func()) {
	var closers []func() error

	if dsn := cfg.Outputs.PostgresDSN; dsn != "" {
		pg, err := store.NewPostgresStore(ctx, dsn)
		if err != nil {
			log.Warn("[Runner] Postgres mirror disabled: %v", err)
		} else {
			opts = append(opts, WithMirror(pg))
			closers = append(closers, pg.Close)
		}
	}

	if addrs := cfg.Outputs.Brokers; len(addrs) > 0 {
		rp, err := broker.NewRedpandaBroker(addrs, log)
		if err == nil {
			if err = rp.Ping(ctx); err != nil {
				rp.Close()
			}
		}
		if err != nil {
			log.Warn("[Runner] Event publishing disabled: %v", err)
		} else {
			opts = append(opts, WithBroker(rp))
			closers = append(closers, rp.Close)
		}
	}

	opts = append([]Option{WithLogger(log)}, opts...)
	r := NewRunner(cfg, store.NewFileStore(outputPath), opts...)

	return r, func() {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		if err := errors.Join(errs...); err != nil {
			log.Warn("[Runner] Close: %v", err)
		}
	}
}

// LoadConfig resolves the configuration at path (or $TRIAGE_CONFIG). A file that
// cannot be read or holds invalid values is reported and the defaults are used,
// so a classification run never fails on configuration alone.
func LoadConfig(path string, log logger.Logger) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		log.Warn("[Runner] Using default configuration: %v", err)
		return config.Default()
	}
	return cfg
}

// ClassifyWith runs one classification pass of jobsDir into the JSON cache at
// outputPath with the sinks of cfg attached.
func ClassifyWith(ctx context.Context, cfg *config.Config, jobsDir, outputPath string, log logger.Logger) (Summary, error) {
	r, closeSinks := Open(ctx, cfg, outputPath, log)
	defer closeSinks()
	return r.Run(ctx, jobsDir)
}

// Classify reads the cache at outputPath if present, classifies the new builds
// under jobsDir, and writes the merged cache back. It returns 0 on success and 1
// only if the cache could not be written.
func Classify(jobsDir, outputPath string) int {
	log := logger.NewConsoleLogger()
	cfg := LoadConfig("", log)
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		log.Warn("[Runner] %v", err)
	}

	if _, err := ClassifyWith(context.Background(), cfg, jobsDir, outputPath, log); err != nil {
		log.Error("[Runner] %v", err)
		return 1
	}
	return 0
}
