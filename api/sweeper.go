/*
sweeper.go - Scheduled expiration sweep

PURPOSE:
  Periodically expires every ACTIVE policy whose coverage ended strictly
  before today and records each run for audit.

DESIGN:
  - Background goroutine with a configurable check interval (default 24h)
  - Per-policy failure isolation: one failed policy never aborts the batch
  - At-least-once tolerant: a policy that was already cancelled/expired by
    another actor rejects the transition; the sweep counts it as skipped
    and moves on
  - Version conflicts on save are likewise skips, not failures - another
    writer transitioned the policy between load and save

USAGE:
  sweeper := NewExpirationSweeper(store)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: TriggerSweep endpoint (manual run)
  - domain/policy.go: The per-policy Expire contract
*/
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aegis/policy-engine/domain"
	"github.com/aegis/policy-engine/store/sqlite"
)

// ExpirationSweeper expires overdue active policies on a schedule.
type ExpirationSweeper struct {
	Store         *sqlite.Store
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewExpirationSweeper creates a sweeper with the default daily cadence.
func NewExpirationSweeper(store *sqlite.Store) *ExpirationSweeper {
	return &ExpirationSweeper{
		Store:         store,
		CheckInterval: 24 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the sweep loop. The first sweep runs immediately.
func (es *ExpirationSweeper) Start() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if !es.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	es.ticker = time.NewTicker(es.CheckInterval)
	es.wg.Add(1)
	go es.run()

	log.Printf("[Sweeper] Started with check interval: %v", es.CheckInterval)
}

// Stop stops the sweep loop.
func (es *ExpirationSweeper) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.ticker != nil {
		es.ticker.Stop()
		close(es.stop)
		es.wg.Wait()
		log.Println("[Sweeper] Stopped")
	}
}

func (es *ExpirationSweeper) run() {
	defer es.wg.Done()

	es.sweep(context.Background())

	for {
		select {
		case <-es.ticker.C:
			es.sweep(context.Background())
		case <-es.stop:
			return
		}
	}
}

// RunNow triggers an immediate sweep (admin endpoint / tests) and returns
// the recorded run.
func (es *ExpirationSweeper) RunNow(ctx context.Context) sqlite.SweepRun {
	return es.sweep(ctx)
}

func (es *ExpirationSweeper) sweep(ctx context.Context) sqlite.SweepRun {
	started := time.Now()
	run := sqlite.SweepRun{
		ID:        fmt.Sprintf("sweep-%d", started.UnixNano()),
		StartedAt: started,
		Status:    "running",
	}
	if err := es.Store.SaveSweepRun(ctx, run); err != nil {
		log.Printf("[Sweeper] Error saving run record: %v", err)
	}

	overdue, err := es.Store.ListActivePoliciesEndedBefore(ctx, domain.Today())
	if err != nil {
		log.Printf("[Sweeper] Error listing overdue policies: %v", err)
		run.Status = "failed"
		run.Error = err.Error()
		completed := time.Now()
		run.CompletedAt = &completed
		es.Store.SaveSweepRun(ctx, run)
		return run
	}

	for _, policy := range overdue {
		if err := policy.Expire(); err != nil {
			// Already transitioned by another actor; discard the rejection.
			if domain.IsClientError(err) {
				run.Skipped++
				continue
			}
			log.Printf("[Sweeper] Error expiring policy %s: %v", policy.PolicyNumber(), err)
			run.Failed++
			continue
		}
		if err := es.Store.UpdatePolicy(ctx, policy); err != nil {
			if domain.IsConflict(err) {
				run.Skipped++
				continue
			}
			log.Printf("[Sweeper] Error saving policy %s: %v", policy.PolicyNumber(), err)
			run.Failed++
			continue
		}
		run.Expired++
	}

	run.Status = "completed"
	completed := time.Now()
	run.CompletedAt = &completed
	if err := es.Store.SaveSweepRun(ctx, run); err != nil {
		log.Printf("[Sweeper] Error updating run record: %v", err)
	}

	if run.Expired > 0 || run.Skipped > 0 || run.Failed > 0 {
		log.Printf("[Sweeper] Completed: %d expired, %d skipped, %d failed",
			run.Expired, run.Skipped, run.Failed)
	}
	return run
}
