package services

import (
	"github.com/sjperalta/fintera-ledger/internal/jobs"
)

// JobStatus is the view of background work served by the status endpoint
type JobStatus struct {
	Running  bool              `json:"running"`
	Worker   *jobs.WorkerStats `json:"worker,omitempty"`
	AutoPost *AutoPostReport   `json:"auto_post,omitempty"`
}

type JobService struct {
	worker   *jobs.Worker
	autoPost *AutoPostJob
}

func NewJobService(worker *jobs.Worker, autoPost *AutoPostJob) *JobService {
	return &JobService{
		worker:   worker,
		autoPost: autoPost,
	}
}

// GetStatus reports the worker counters, per-job history and the last auto-post run.
// Without a worker nothing runs in the background.
func (s *JobService) GetStatus() JobStatus {
	if s.worker == nil {
		return JobStatus{}
	}
	stats := s.worker.GetStats()
	status := JobStatus{Running: true, Worker: &stats}
	if s.autoPost != nil {
		status.AutoPost = s.autoPost.LastReport()
	}
	return status
}
