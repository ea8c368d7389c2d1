package cleanup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/imgshrink/internal/domain"
	"github.com/DRSN-tech/imgshrink/internal/usecase"
	"github.com/DRSN-tech/imgshrink/pkg/jitter"
	"github.com/DRSN-tech/imgshrink/pkg/logger"
)

const (
	defaultAttempts    = 3
	defaultBaseBackoff = time.Second
	defaultMaxBackoff  = 8 * time.Second
	defaultTimeout     = 30 * time.Second
)

// Cleaner удаляет артефакты в фоне с экспоненциальной задержкой и джиттером между попытками.
type Cleaner struct {
	remover     usecase.ArtifactRemover
	logger      logger.Logger
	shutdownCtx context.Context
	wg          sync.WaitGroup

	attempts    int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	timeout     time.Duration
}

// NewCleaner создаёт Cleaner. Отмена shutdownCtx прерывает незавершённые очистки.
func NewCleaner(remover usecase.ArtifactRemover, logger logger.Logger, shutdownCtx context.Context) *Cleaner {
	return &Cleaner{
		remover:     remover,
		logger:      logger,
		shutdownCtx: shutdownCtx,
		attempts:    defaultAttempts,
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
		timeout:     defaultTimeout,
	}
}

// WithBackoff переопределяет параметры повторов.
func (c *Cleaner) WithBackoff(attempts int, base, max time.Duration) *Cleaner {
	c.attempts = attempts
	c.baseBackoff = base
	c.maxBackoff = max
	return c
}

// CleanupArtifacts запускает фоновую очистку указанных артефактов
func (c *Cleaner) CleanupArtifacts(keys []domain.ArtifactKey) {
	if len(keys) == 0 {
		return
	}
	c.wg.Add(1)
	go c.cleanup(keys)
}

func (c *Cleaner) cleanup(keys []domain.ArtifactKey) {
	defer c.wg.Done()
	const op = "Cleaner.cleanup"

	ctx, cancel := context.WithTimeout(c.shutdownCtx, c.timeout)
	defer cancel()

	for _, key := range keys {
		if !c.removeWithRetry(ctx, key) {
			if ctx.Err() != nil {
				c.logger.Warnf("%s: interrupted by shutdown, key=%s", op, key.FileName())
				return
			}
			c.logger.Warnf("%s: giving up on %s after %d attempts", op, key.FileName(), c.attempts)
		}
	}
}

// removeWithRetry возвращает true, если артефакт удалён.
func (c *Cleaner) removeWithRetry(ctx context.Context, key domain.ArtifactKey) bool {
	for attempt := 0; attempt < c.attempts; attempt++ {
		err := c.remover.Remove(ctx, key)
		if err == nil {
			return true
		}
		c.logger.Debugf("remove %s failed (attempt %d): %v", key.FileName(), attempt+1, err)

		if attempt == c.attempts-1 {
			break
		}

		select {
		case <-time.After(jitter.ExponentialBackoff(c.baseBackoff, c.maxBackoff, attempt, jitter.DefaultJitter)):
		case <-ctx.Done():
			return false
		}
	}
	return false
}

// WaitForCleanup ожидает завершения всех фоновых очисток с учётом таймаута завершения приложения.
func (c *Cleaner) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("artifact cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
