package poller

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chigichan24/duff/internal/repos"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const defaultResyncInterval = 15 * time.Second

// Poller keeps one status task running per registered repository.
type Poller struct {
	repos   RepositoryLister
	status  StatusReader
	config  Config
	metrics *metrics

	logger *zap.Logger

	mu    sync.Mutex
	tasks map[uuid.UUID]*task
	wg    sync.WaitGroup
}

type task struct {
	name     string
	interval time.Duration
	cancel   context.CancelFunc
	// done is closed once the task goroutine has exited and dropped its series.
	done chan struct{}
}

func New(
	repos RepositoryLister,
	status StatusReader,
	config Config,
	reg prometheus.Registerer,
	logger *zap.Logger,
) *Poller {
	if config.ResyncInterval <= 0 {
		config.ResyncInterval = defaultResyncInterval
	}

	return &Poller{
		repos:   repos,
		status:  status,
		config:  config,
		metrics: newMetrics(reg),
		logger:  logger,
		tasks:   map[uuid.UUID]*task{},
	}
}

// Run reconciles tasks with the registry until ctx is done, then waits for
// every task to exit.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.config.ResyncInterval)
	defer ticker.Stop()
	defer p.Stop()

	for {
		if err := p.Reconcile(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("failed to load repositories", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Reconcile starts tasks for new repositories, restarts the ones whose name
// or interval changed and stops the ones no longer registered.
func (p *Poller) Reconcile(ctx context.Context) error {
	list, err := p.repos.List(ctx)
	if err != nil {
		return err //nolint:wrapcheck
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(list))
	for _, r := range list {
		seen[r.ID] = struct{}{}

		prev, ok := p.tasks[r.ID]
		if ok {
			if prev.name == r.Name && prev.interval == r.PollInterval {
				continue
			}
			p.stopTask(r.ID, prev)
		}

		p.startTask(ctx, r, prev)
	}

	for id, t := range p.tasks {
		if _, ok := seen[id]; !ok {
			p.stopTask(id, t)
		}
	}

	return nil
}

// Stop cancels every task and waits for them.
func (p *Poller) Stop() {
	p.mu.Lock()
	for id, t := range p.tasks {
		p.stopTask(id, t)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// Tasks is the number of running tasks.
func (p *Poller) Tasks() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.tasks)
}

// startTask runs a task for r. A replaced task is waited for first so its
// series are gone before the new one publishes.
func (p *Poller) startTask(ctx context.Context, r repos.Repository, prev *task) {
	taskCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.tasks[r.ID] = &task{
		name:     r.Name,
		interval: r.PollInterval,
		cancel:   cancel,
		done:     done,
	}

	p.logger.Debug("polling started",
		zap.Stringer("repository", r.ID),
		zap.Duration("interval", r.PollInterval),
	)

	p.wg.Go(func() {
		defer close(done)
		defer p.metrics.forget(r.ID.String(), r.Name)

		if prev != nil {
			<-prev.done
		}
		p.loop(taskCtx, r)
	})
}

func (p *Poller) stopTask(id uuid.UUID, t *task) {
	t.cancel()
	delete(p.tasks, id)

	p.logger.Debug("polling stopped", zap.Stringer("repository", id))
}

func (p *Poller) loop(ctx context.Context, r repos.Repository) {
	var last *bool

	for {
		last = p.poll(ctx, r, last)

		timer := time.NewTimer(p.wait(r.PollInterval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context, r repos.Repository, last *bool) *bool {
	status, err := p.status.Status(ctx, r.ID)
	if ctx.Err() != nil {
		return last
	}

	if err != nil {
		p.metrics.fail(r.ID.String(), r.Name)
		p.logger.Warn("status poll failed", zap.Stringer("repository", r.ID), zap.Error(err))
		return last
	}

	p.metrics.observe(r.ID.String(), r.Name, status.HasChanges, len(status.ModifiedFiles))

	if last == nil || *last != status.HasChanges {
		p.logger.Info("repository status changed",
			zap.Stringer("repository", r.ID),
			zap.String("name", r.Name),
			zap.String("branch", status.Branch),
			zap.Bool("has_changes", status.HasChanges),
			zap.Int("modified_files", len(status.ModifiedFiles)),
		)
	}

	return &status.HasChanges
}

func (p *Poller) wait(interval time.Duration) time.Duration {
	if p.config.Jitter <= 0 {
		return interval
	}

	return interval + time.Duration(rand.Float64()*p.config.Jitter*float64(interval)) //nolint:gosec
}
