package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type panickyWorker struct {
	runs atomic.Int32
}

func (w *panickyWorker) Run(_ context.Context) error {
	w.runs.Add(1)
	panic("boom")
}

type oneShotWorker struct {
	runs atomic.Int32
}

func (w *oneShotWorker) Run(_ context.Context) error {
	w.runs.Add(1)
	return nil
}

func Test_Supervisor_Restarts_Panicked_Worker_After_Interval(t *testing.T) {
	req := require.New(t)
	worker := &panickyWorker{}
	sup := NewSupervisor(slog.Default(), 5*time.Millisecond)
	sup.Add(worker)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sup.Run(context.Background())
	}()

	req.Eventually(func() bool { return worker.runs.Load() >= 3 },
		2*time.Second, 5*time.Millisecond, "worker was not restarted")

	sup.Stop()
	<-done
}

func Test_Supervisor_Retires_Worker_That_Returns_Nil(t *testing.T) {
	req := require.New(t)
	worker := &oneShotWorker{}
	sup := NewSupervisor(slog.Default(), 0)
	sup.Add(worker)

	// Run returns on its own once every worker has finished cleanly.
	sup.Run(context.Background())
	req.Equal(int32(1), worker.runs.Load())
}
