package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/imgshrink/internal/cfg"
	"github.com/DRSN-tech/imgshrink/pkg/e"
	"github.com/DRSN-tech/imgshrink/pkg/logger"
)

// SweepUseCase удаляет артефакты, которые так и не скачали за ARTIFACT_TTL.
type SweepUseCase struct {
	lister  ArtifactLister
	cleaner Cleaner
	metrics Metrics
	cfg     *cfg.SweepCfg
	logger  logger.Logger
	now     func() time.Time
}

func NewSweepUC(lister ArtifactLister, cleaner Cleaner, metrics Metrics, cfg *cfg.SweepCfg, logger logger.Logger) *SweepUseCase {
	return &SweepUseCase{
		lister:  lister,
		cleaner: cleaner,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Sweep находит просроченные артефакты и передаёт их фоновой очистке.
func (s *SweepUseCase) Sweep(ctx context.Context) (*SweepRes, error) {
	const op = "SweepUseCase.Sweep"

	keys, err := s.lister.ListExpired(ctx, s.now().Add(-s.cfg.TTL))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if len(keys) > 0 {
		s.logger.Infof("%s: removing %d expired artifacts", op, len(keys))
		s.cleaner.CleanupArtifacts(keys)
		s.metrics.AddSwept(len(keys))
	}

	return &SweepRes{Expired: len(keys)}, nil
}
