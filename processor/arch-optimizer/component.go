// Package archoptimizer provides a JetStream processor that runs the
// architecture optimization engine. It consumes OptimizeRequest messages,
// streams OptimizeProgress while the search iterates, records each run in
// NATS KV, and publishes an OptimizeResult.
package archoptimizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semarch/graph"
	"github.com/c360studio/semarch/rules"
	"github.com/c360studio/semarch/scoring"
	"github.com/c360studio/semarch/search"
	"github.com/c360studio/semarch/storage"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
)

// runRecorder is the subset of storage.RunStore used by the component.
type runRecorder interface {
	CreateRun(ctx context.Context, r *storage.Run) (storage.EntityID, error)
	UpdateRunStatus(ctx context.Context, id storage.EntityID, status storage.RunStatus, reason string) error
	SaveResult(ctx context.Context, id storage.EntityID, res *search.Result) error
}

// publisher sends component output. The NATS implementation is natsPublisher.
type publisher interface {
	Progress(ctx context.Context, p *OptimizeProgress) error
	Result(ctx context.Context, r *OptimizeResult) error
	Graph(ctx context.Context, run graph.RunSummary, res *search.Result, detector *rules.Detector) error
}

// Component implements the arch-optimizer processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger
	executor   *Executor

	// JetStream consumer state.
	consumer jetstream.Consumer

	runs    runRecorder
	publish publisher
	weights *scoring.WeightsWatcher

	// Lifecycle.
	running   bool
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc

	// Metrics.
	requestsProcessed atomic.Int64
	runsSucceeded     atomic.Int64
	runsFailed        atomic.Int64
	errorsCount       atomic.Int64
	lastActivityMu    sync.RWMutex
	lastActivity      time.Time
}

// NewComponent constructs an arch-optimizer Component from raw JSON config
// and semstreams dependencies.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var config Config
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	config = config.withDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := deps.GetLogger()

	detector, err := rules.NewDetector(config.Detection)
	if err != nil {
		return nil, fmt.Errorf("create detector: %w", err)
	}

	c := &Component{
		name:       "arch-optimizer",
		config:     config,
		natsClient: deps.NATSClient,
		logger:     logger,
	}

	scorer := scoring.DefaultScorer
	if config.WeightsPath != "" {
		watcher, err := scoring.NewWeightsWatcher(config.WeightsPath, logger)
		if err != nil {
			return nil, fmt.Errorf("load weights: %w", err)
		}
		watcher.OnReload(func(*scoring.Scorer) { weightsReloadsTotal.Inc() })
		c.weights = watcher
		scorer = watcher.Scorer
	}

	c.executor = NewExecutor(detector, scorer, config.Search, config.ProgressEvery, logger)
	if deps.NATSClient != nil {
		c.publish = &natsPublisher{nc: deps.NATSClient}
	}
	return c, nil
}

// Initialize prepares the component for startup.
func (c *Component) Initialize() error {
	c.logger.Debug("Initialized arch-optimizer",
		"stream", c.config.StreamName,
		"consumer", c.config.ConsumerName,
		"weights_path", c.config.WeightsPath)
	return nil
}

// Start begins consuming OptimizeRequest messages from JetStream.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}

	c.running = true
	c.startTime = time.Now()

	subCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	js, err := c.natsClient.JetStream()
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("get jetstream: %w", err)
	}

	stream, err := js.Stream(subCtx, c.config.StreamName)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("get stream %s: %w", c.config.StreamName, err)
	}

	store, err := storage.NewRunStore(subCtx, js)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("open run store: %w", err)
	}
	c.runs = store

	if c.weights != nil {
		if err := c.weights.Start(subCtx); err != nil {
			c.rollbackStart(cancel)
			return fmt.Errorf("start weights watcher: %w", err)
		}
	}

	subject := c.config.requestSubject()
	consumerConfig := jetstream.ConsumerConfig{
		Durable:       c.config.ConsumerName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		// A run may use its whole timeout before acknowledging.
		AckWait:    c.config.GetRunTimeout() + 30*time.Second,
		MaxDeliver: 3,
	}

	consumer, err := stream.CreateOrUpdateConsumer(subCtx, consumerConfig)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("create consumer: %w", err)
	}
	c.consumer = consumer

	go c.consumeLoop(subCtx)

	c.logger.Info("arch-optimizer started",
		"stream", c.config.StreamName,
		"consumer", c.config.ConsumerName,
		"subject", subject)

	return nil
}

func (c *Component) rollbackStart(cancel context.CancelFunc) {
	c.mu.Lock()
	c.running = false
	c.cancel = nil
	c.mu.Unlock()
	cancel()
}

// consumeLoop fetches messages from the JetStream consumer until the
// context is cancelled.
func (c *Component) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := c.consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug("Fetch timeout or error", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleMessage(ctx, msg)
		}

		if msgs.Error() != nil && !errors.Is(msgs.Error(), context.DeadlineExceeded) {
			c.logger.Warn("Message fetch error", "error", msgs.Error())
		}
	}
}

// handleMessage processes a single OptimizeRequest message.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	if c.process(ctx, msg.Data()) {
		if nakErr := msg.Nak(); nakErr != nil {
			c.logger.Warn("Failed to NAK message", "error", nakErr)
		}
		return
	}
	if ackErr := msg.Ack(); ackErr != nil {
		c.logger.Warn("Failed to ACK message", "error", ackErr)
	}
}

// process runs one request and reports whether it should be redelivered.
// Malformed requests, invalid search configs and runs whose result could
// not be stored are not retried.
func (c *Component) process(ctx context.Context, data []byte) (retry bool) {
	c.requestsProcessed.Add(1)
	c.updateLastActivity()

	req, err := parsePayload[OptimizeRequest](data)
	if err != nil {
		c.errorsCount.Add(1)
		c.logger.Error("Failed to parse request", "error", err)
		return false
	}
	if err := req.Validate(); err != nil {
		c.errorsCount.Add(1)
		c.logger.Error("Invalid request", "error", err)
		return false
	}

	run := &storage.Run{
		RequestID: req.RequestID,
		Slug:      req.Slug,
		Config:    c.executor.Config(req),
		NodeCount: req.Architecture.NodeCount(),
		EdgeCount: req.Architecture.EdgeCount(),
	}
	runID, err := c.runs.CreateRun(ctx, run)
	if err != nil {
		c.errorsCount.Add(1)
		c.logger.Error("Failed to record run", "request_id", req.RequestID, "error", err)
		return true
	}
	if err := c.runs.UpdateRunStatus(ctx, runID, storage.RunStatusRunning, ""); err != nil {
		c.logger.Warn("Failed to mark run running", "run_id", runID, "error", err)
	}

	c.logger.Info("Processing optimization request",
		"request_id", req.RequestID,
		"slug", req.Slug,
		"run_id", runID,
		"nodes", run.NodeCount,
		"edges", run.EdgeCount)

	runCtx, cancel := context.WithTimeout(ctx, c.config.GetRunTimeout())
	defer cancel()

	res, err := c.executor.Execute(runCtx, req, runID.String(), func(p *OptimizeProgress) {
		if c.publish == nil {
			return
		}
		if err := c.publish.Progress(ctx, p); err != nil {
			c.logger.Debug("Failed to publish progress", "run_id", runID, "error", err)
		}
	})
	if err != nil {
		c.fail(ctx, req, runID, err)
		return false
	}

	if err := c.runs.SaveResult(ctx, runID, res); err != nil {
		c.fail(ctx, req, runID, fmt.Errorf("save result: %w", err))
		return false
	}
	c.runsSucceeded.Add(1)

	if c.publish != nil {
		out := &OptimizeResult{
			RequestID: req.RequestID,
			RunID:     runID.String(),
			Slug:      req.Slug,
			Status:    string(storage.RunStatusComplete),
			Result:    res,
		}
		if err := c.publish.Result(ctx, out); err != nil {
			c.logger.Warn("Failed to publish result", "run_id", runID, "error", err)
		}

		if req.PublishGraph || c.config.PublishGraph {
			summary := graph.RunSummary{
				RunID:       runID.ID,
				Slug:        req.Slug,
				Status:      string(storage.RunStatusComplete),
				Convergence: string(res.ConvergenceReason),
				Iterations:  res.Iterations,
				Success:     res.Success,
				CreatedAt:   run.CreatedAt,
			}
			if err := c.publish.Graph(ctx, summary, res, c.executor.Detector()); err != nil {
				c.logger.Warn("Failed to publish graph entities", "run_id", runID, "error", err)
			}
		}
	}

	c.logger.Info("Optimization completed",
		"request_id", req.RequestID,
		"run_id", runID,
		"success", res.Success,
		"iterations", res.Iterations,
		"reason", res.ConvergenceReason,
		"front_size", len(res.ParetoFront))
	return false
}

// fail records a run that could not execute.
func (c *Component) fail(ctx context.Context, req *OptimizeRequest, runID storage.EntityID, cause error) {
	c.runsFailed.Add(1)
	c.errorsCount.Add(1)
	c.logger.Error("Optimization failed",
		"request_id", req.RequestID,
		"run_id", runID,
		"error", cause)

	if err := c.runs.UpdateRunStatus(ctx, runID, storage.RunStatusFailed, cause.Error()); err != nil {
		c.logger.Warn("Failed to mark run failed", "run_id", runID, "error", err)
	}
	if c.publish == nil {
		return
	}
	out := &OptimizeResult{
		RequestID: req.RequestID,
		RunID:     runID.String(),
		Slug:      req.Slug,
		Status:    string(storage.RunStatusFailed),
		Error:     cause.Error(),
	}
	if err := c.publish.Result(ctx, out); err != nil {
		c.logger.Warn("Failed to publish result", "run_id", runID, "error", err)
	}
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}

	cancel := c.cancel
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c.weights != nil {
		if err := c.weights.Stop(); err != nil {
			c.logger.Warn("Failed to stop weights watcher", "error", err)
		}
		c.logger.Debug("Weights watcher stopped", "reloads", c.weights.Reloads())
	}

	c.logger.Info("arch-optimizer stopped",
		"requests_processed", c.requestsProcessed.Load(),
		"runs_succeeded", c.runsSucceeded.Load(),
		"runs_failed", c.runsFailed.Load(),
		"errors", c.errorsCount.Load())

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "arch-optimizer",
		Type:        "processor",
		Description: "Searches for improved architecture variants by violation-guided local search",
		Version:     "0.1.0",
	}
}

// InputPorts returns the configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}
	return ports(c.config.Ports.Inputs, component.DirectionInput)
}

// OutputPorts returns the configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}
	return ports(c.config.Ports.Outputs, component.DirectionOutput)
}

func ports(defs []component.PortDefinition, dir component.Direction) []component.Port {
	out := make([]component.Port, len(defs))
	for i, def := range defs {
		out[i] = component.Port{
			Name:        def.Name,
			Direction:   dir,
			Required:    def.Required,
			Description: def.Description,
			Config:      component.NATSPort{Subject: def.Subject},
		}
	}
	return out
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return archOptimizerSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	if running {
		status = "running"
	}

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(c.errorsCount.Load()),
		Uptime:     time.Since(startTime),
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{
		MessagesPerSecond: 0,
		BytesPerSecond:    0,
		ErrorRate:         0,
		LastActivity:      c.getLastActivity(),
	}
}

func (c *Component) updateLastActivity() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}

// natsPublisher publishes component output over NATS.
type natsPublisher struct {
	nc *natsclient.Client
}

// Progress publishes on core NATS; progress is not retained.
// Subject: arch.optimize.progress.<request_id>
func (p *natsPublisher) Progress(ctx context.Context, progress *OptimizeProgress) error {
	data, err := json.Marshal(message.NewBaseMessage(progress.Schema(), progress, "arch-optimizer"))
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	return p.nc.Publish(ctx, progressSubjectPrefix+progress.RequestID, data)
}

// Result publishes an OptimizeResult to JetStream.
// Subject: arch.optimize.result.<request_id>
func (p *natsPublisher) Result(ctx context.Context, result *OptimizeResult) error {
	data, err := json.Marshal(message.NewBaseMessage(result.Schema(), result, "arch-optimizer"))
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	js, err := p.nc.JetStream()
	if err != nil {
		return fmt.Errorf("get jetstream: %w", err)
	}

	if _, err := js.Publish(ctx, resultSubjectPrefix+result.RequestID, data); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Graph publishes the run entity and every Pareto front member.
func (p *natsPublisher) Graph(ctx context.Context, run graph.RunSummary, res *search.Result, detector *rules.Detector) error {
	now := time.Now()
	for _, entity := range graph.BuildEntities(run, res, detector, now) {
		if err := graph.PublishEntity(ctx, p.nc, entity, now); err != nil {
			return err
		}
	}
	return nil
}
