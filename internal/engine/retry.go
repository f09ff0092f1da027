package engine

import (
	"time"

	"go-jobflow/internal/domain"
)

// scheduleRetry starts a fresh execution of a failed run after an
// exponential backoff, while the workflow allows further attempts. The retry
// goes through the same state and concurrency checks as any trigger; a
// rejected retry is logged and dropped.
func (e *Executor) scheduleRetry(failed *run) {
	wf := failed.workflow
	if !wf.RetryOnFailure || failed.attempt >= wf.RetryLimit() {
		return
	}

	delay := e.cfg.retryDelay(failed.attempt)
	failedID := failed.ec.ExecutionID
	userID := failed.ec.UserID
	input := failed.ec.Input
	attempt := failed.attempt + 1
	logger := e.logger.With("workflowId", wf.ID, "retryOf", failedID, "attempt", attempt)

	logger.Info("Scheduling workflow retry", "delay", delay)

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-e.baseCtx.Done():
			logger.Info("Retry abandoned on shutdown")
			return
		case <-timer.C:
		}

		current, err := e.loadExecutable(e.baseCtx, wf.ID)
		if err != nil {
			logger.Warn("Retry rejected", "error", err)
			e.metrics.ExecutionRejected(rejectReason(err))
			return
		}
		handle, err := e.start(e.baseCtx, current, userID, input, domain.TriggeredByRetry, attempt, &failedID)
		if err != nil {
			logger.Warn("Retry rejected", "error", err)
			return
		}
		logger.Info("Workflow retry started", "executionId", handle.ExecutionID)
	}()
}
