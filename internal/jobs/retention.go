package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carcall/signal-server-go/internal/repository"
)

// RetentionJob prunes call-history rows older than the configured
// retention window on a fixed interval.
type RetentionJob struct {
	historyRepo repository.CallHistoryRepository
	retention   time.Duration
	interval    time.Duration
	done        chan struct{}
}

func NewRetentionJob(historyRepo repository.CallHistoryRepository, retention, interval time.Duration) *RetentionJob {
	return &RetentionJob{
		historyRepo: historyRepo,
		retention:   retention,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *RetentionJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("retention", j.retention).Msg("history retention job started")
}

func (j *RetentionJob) Stop() {
	close(j.done)
	log.Info().Msg("history retention job stopped")
}

func (j *RetentionJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *RetentionJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.retention)
	count, err := j.historyRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune call history")
		return
	}
	if count > 0 {
		log.Info().Int64("count", count).Time("cutoff", cutoff).Msg("pruned old call history")
	}
}
