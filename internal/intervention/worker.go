package intervention

import (
	"context"
	"log"
)

// Worker drains a bounded in-memory queue of upgrade jobs. Each job is
// independent; failures and panics stay inside the job and are logged,
// never propagated to the submitter.
type Worker struct {
	composer *Composer
	jobs     chan UpgradeJob
}

// NewWorker constructs the worker with a bounded job queue.
func NewWorker(c *Composer, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Worker{composer: c, jobs: make(chan UpgradeJob, queueSize)}
}

// Start launches numWorkers goroutines reading from the job queue until the
// context is cancelled.
func (w *Worker) Start(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	for i := 1; i <= numWorkers; i++ {
		go func(id int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("upgrade worker %d shutting down", id)
					return
				case job := <-w.jobs:
					w.run(ctx, id, job)
				}
			}
		}(i)
	}
}

func (w *Worker) run(ctx context.Context, id int, job UpgradeJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("upgrade worker %d: panic on intervention %s: %v", id, job.InterventionID, r)
		}
	}()
	if err := w.composer.Upgrade(ctx, job); err != nil {
		log.Printf("upgrade worker %d: intervention %s: %v", id, job.InterventionID, err)
	}
}

// Enqueue submits a job and returns immediately. When the queue is full the
// upgrade is skipped: the fallback payload is finalized as ready so the row
// never sits in pending with no job to resolve it.
func (w *Worker) Enqueue(job UpgradeJob) {
	select {
	case w.jobs <- job:
	default:
		log.Printf("upgrade queue full, finalizing fallback for intervention %s", job.InterventionID)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("finalize on full queue: panic on intervention %s: %v", job.InterventionID, r)
				}
			}()
			if err := w.composer.FinalizeFallback(job.InterventionID); err != nil {
				log.Printf("finalize on full queue: intervention %s: %v", job.InterventionID, err)
			}
		}()
	}
}
