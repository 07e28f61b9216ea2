package scheduler

import "context"

// Run drives RunOnce until quit is set, ctx is done, or an iteration fails.
//
// Termination is only checked between iterations; an iteration in progress
// always completes or fails on its own. Run calls Init if it has not been
// called yet.
//
// Returns nil when quit was requested, ctx.Err() on cancellation, and the
// iteration error otherwise.
func (s *Scheduler) Run(ctx context.Context, quit *QuitFlag) error {
	if !s.initialized {
		s.Init()
	}
	s.logger.Info("scheduler running",
		"updates_per_second", s.cfg.UpdatesPerSecond,
		"bail_threshold", s.cfg.BailThreshold,
	)

	for {
		if quit != nil && quit.IsSet() {
			s.logger.Info("scheduler stopping", "reason", "quit", "iterations", s.stats.Iterations)
			return nil
		}
		if err := ctx.Err(); err != nil {
			s.logger.Info("scheduler stopping", "reason", err, "iterations", s.stats.Iterations)
			return err
		}
		if err := s.RunOnce(); err != nil {
			return err
		}
	}
}
