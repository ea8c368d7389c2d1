package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/DRSN-tech/imgshrink/internal/usecase"
	"github.com/DRSN-tech/imgshrink/pkg/jitter"
	"github.com/DRSN-tech/imgshrink/pkg/logger"
)

// Worker периодически запускает очистку невостребованных артефактов.
type Worker struct {
	uc       usecase.SweepUC
	interval time.Duration
	logger   logger.Logger
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

func NewWorker(uc usecase.SweepUC, interval time.Duration, logger logger.Logger) *Worker {
	return &Worker{
		uc:       uc,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start запускает цикл в фоне. Нулевой интервал отключает воркер.
func (w *Worker) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.logger.Infof("Sweeper disabled")
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Stop останавливает цикл и ждёт завершения текущего прохода.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	// Первый проход сразу после старта: забираем то, что осталось с прошлого запуска
	w.sweep(ctx)

	timer := time.NewTimer(jitter.Duration(w.interval, jitter.DefaultJitter/5))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Infof("Sweeper stopped by context cancellation")
			return
		case <-w.stop:
			w.logger.Infof("Sweeper stopped")
			return
		case <-timer.C:
			w.sweep(ctx)
			timer.Reset(jitter.Duration(w.interval, jitter.DefaultJitter/5))
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	res, err := w.uc.Sweep(ctx)
	if err != nil {
		w.logger.Warnf("sweep failed: %v", err)
		return
	}
	if res.Expired > 0 {
		w.logger.Infof("sweep scheduled %d expired artifacts for removal", res.Expired)
	}
}
