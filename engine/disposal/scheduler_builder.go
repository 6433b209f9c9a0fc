package disposal

// SchedulerBuilderOption is a functional option for configuring a Scheduler via NewScheduler.
type SchedulerBuilderOption func(*scheduler)

// WithBatchSize sets how many leaves ResumeOneBatch releases. Values below 1 are ignored.
//
// Parameters:
//   - n: the batch size
//
// Returns:
//   - SchedulerBuilderOption: a function that applies the batch size option to a scheduler
func WithBatchSize(n int) SchedulerBuilderOption {
	return func(s *scheduler) {
		if n > 0 {
			s.batchSize = n
		}
	}
}
