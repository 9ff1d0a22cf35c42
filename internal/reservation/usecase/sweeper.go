package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/cache"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sweepLockKey         = "lock:inventory:reservation-sweep"
	DefaultSweepInterval = time.Minute
)

// Sweeper runs ExpireSweep on a ticker. With a Locker, only the replica holding
// the lease sweeps on a given tick.
type Sweeper struct {
	uc       reservation.UseCase
	locker   cache.Locker
	interval time.Duration
	leaseTTL time.Duration
	logger   logger.ZapLogger
}

func NewSweeper(uc reservation.UseCase, locker cache.Locker, interval, leaseTTL time.Duration, log logger.ZapLogger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if leaseTTL <= 0 {
		leaseTTL = interval
	}
	return &Sweeper{
		uc:       uc,
		locker:   locker,
		interval: interval,
		leaseTTL: leaseTTL,
		logger:   log,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting reservation expiry sweeper", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping reservation expiry sweeper")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Reservation expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs a single sweep and returns how many reservations it expired.
// A lease held by another replica skips the tick.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	if s.locker != nil {
		token := uuid.New().String()
		ok, err := s.locker.AcquireLock(ctx, sweepLockKey, token, s.leaseTTL)
		switch {
		case err != nil:
			s.logger.Warn("Sweep lease unavailable, sweeping without it", zap.Error(err))
		case !ok:
			s.logger.Debug("Sweep lease held elsewhere, skipping tick")
			return 0, nil
		default:
			defer func() {
				if err := s.locker.ReleaseLock(context.Background(), sweepLockKey, token); err != nil {
					s.logger.Warn("Failed to release sweep lease", zap.Error(err))
				}
			}()
		}
	}

	expired, err := s.uc.ExpireSweep(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return len(expired), nil
}
