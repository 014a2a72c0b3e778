package services

import (
	"testing"
	"time"

	"github.com/sjperalta/fintera-ledger/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobService_WithoutWorker(t *testing.T) {
	status := NewJobService(nil, nil).GetStatus()
	assert.False(t, status.Running)
	assert.Nil(t, status.Worker)
	assert.Nil(t, status.AutoPost)
}

func TestJobService_ReportsResyncsAndAutoPost(t *testing.T) {
	f := newFixture(t)
	worker := jobs.NewWorker(2)
	defer worker.Shutdown()
	svcs := NewServices(f.repos, worker, Options{Now: func() time.Time { return today }})
	f.svcs = svcs

	checking := f.checking(t)
	f.autoPostLoan(t, checking.ID)
	worker.Wait()

	assert.Nil(t, svcs.Job.GetStatus().AutoPost, "no run yet")

	require.NoError(t, svcs.AutoPost.Run(f.ctx))
	worker.Wait()

	status := svcs.Job.GetStatus()
	assert.True(t, status.Running)
	require.NotNil(t, status.AutoPost)
	assert.Equal(t, 4, status.AutoPost.Posted)
	assert.Equal(t, today, status.AutoPost.FinishedAt)

	require.NotNil(t, status.Worker)
	resyncs, ok := status.Worker.Jobs["balance_resync"]
	require.True(t, ok)
	assert.Positive(t, resyncs.Runs)
	assert.Zero(t, resyncs.Failures)
}
