// Package archapi provides HTTP endpoints over the architecture optimizer.
// It serves stored runs and their results, exports them as RDF, and
// detects and scores architecture documents on demand.
package archapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/natsclient"

	"github.com/c360studio/semarch/rules"
	"github.com/c360studio/semarch/scoring"
	"github.com/c360studio/semarch/search"
	"github.com/c360studio/semarch/storage"
)

// runReader is the read side of storage.RunStore.
type runReader interface {
	GetRun(ctx context.Context, id storage.EntityID) (*storage.Run, error)
	GetResult(ctx context.Context, id storage.EntityID) (*search.Result, error)
	ListRuns(ctx context.Context) ([]*storage.Run, error)
}

// Component implements the arch-api component.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	detector *rules.Detector
	scorer   *scoring.Scorer

	// runs is nil until Start opens the run store.
	runsMu sync.RWMutex
	runs   runReader

	// Lifecycle state machine
	// States: 0=stopped, 1=starting, 2=running, 3=stopping
	state     atomic.Int32
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc

	requests    atomic.Int64
	errorsCount atomic.Int64
}

const (
	stateStopped  = 0
	stateStarting = 1
	stateRunning  = 2
	stateStopping = 3
)

// NewComponent constructs an arch-api Component from raw JSON config and deps.
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

	detector, err := rules.NewDetector(config.Detection)
	if err != nil {
		return nil, fmt.Errorf("create detector: %w", err)
	}

	scorer := scoring.DefaultScorer()
	if config.WeightsPath != "" {
		w, err := scoring.LoadWeights(config.WeightsPath)
		if err != nil {
			return nil, fmt.Errorf("load weights: %w", err)
		}
		if scorer, err = scoring.NewScorer(w); err != nil {
			return nil, fmt.Errorf("create scorer: %w", err)
		}
	}

	return &Component{
		name:       "arch-api",
		config:     config,
		natsClient: deps.NATSClient,
		logger:     deps.GetLogger(),
		detector:   detector,
		scorer:     scorer,
	}, nil
}

// Initialize prepares the component for startup.
func (c *Component) Initialize() error {
	c.logger.Debug("Initialized arch-api", "weights_path", c.config.WeightsPath)
	return nil
}

// Start opens the run store. Without a NATS client the run endpoints
// answer 503 and only detect and score are served.
func (c *Component) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(stateStopped, stateStarting) {
		current := c.state.Load()
		if current == stateRunning || current == stateStarting {
			return fmt.Errorf("component already running or starting")
		}
		return fmt.Errorf("component in invalid state: %d", current)
	}

	defer func() {
		if c.state.Load() == stateStarting {
			c.state.Store(stateStopped)
		}
	}()

	subCtx, cancel := context.WithCancel(ctx)

	if c.natsClient != nil {
		js, err := c.natsClient.JetStream()
		if err != nil {
			cancel()
			return fmt.Errorf("get jetstream: %w", err)
		}
		store, err := storage.NewRunStore(subCtx, js)
		if err != nil {
			cancel()
			return fmt.Errorf("open run store: %w", err)
		}
		c.setRuns(store)
	} else {
		c.logger.Warn("arch-api has no NATS client; run endpoints disabled")
	}

	c.mu.Lock()
	c.cancel = cancel
	c.startTime = time.Now()
	c.mu.Unlock()

	c.state.Store(stateRunning)
	c.logger.Info("arch-api started", "runs_enabled", c.runStore() != nil)
	return nil
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	if !c.state.CompareAndSwap(stateRunning, stateStopping) {
		current := c.state.Load()
		if current == stateStopped || current == stateStopping {
			return nil
		}
		return fmt.Errorf("component in unexpected state: %d", current)
	}

	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.setRuns(nil)

	c.state.Store(stateStopped)
	c.logger.Info("arch-api stopped",
		"requests", c.requests.Load(),
		"errors", c.errorsCount.Load())
	return nil
}

func (c *Component) setRuns(r runReader) {
	c.runsMu.Lock()
	c.runs = r
	c.runsMu.Unlock()
}

func (c *Component) runStore() runReader {
	c.runsMu.RLock()
	defer c.runsMu.RUnlock()
	return c.runs
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "arch-api",
		Type:        "processor",
		Description: "HTTP endpoints for optimization runs, detection and scoring",
		Version:     "0.1.0",
	}
}

// InputPorts returns an empty port list; the component has no NATS inputs.
func (c *Component) InputPorts() []component.Port {
	return []component.Port{}
}

// OutputPorts returns an empty port list; the component has no NATS outputs.
func (c *Component) OutputPorts() []component.Port {
	return []component.Port{}
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return archAPISchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	state := c.state.Load()

	c.mu.RLock()
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	switch state {
	case stateStarting:
		status = "starting"
	case stateRunning:
		status = "running"
	case stateStopping:
		status = "stopping"
	}

	return component.HealthStatus{
		Healthy:    state == stateRunning,
		LastCheck:  time.Now(),
		ErrorCount: int(c.errorsCount.Load()),
		Uptime:     time.Since(startTime),
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{}
}
