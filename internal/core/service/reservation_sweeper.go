package service

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/apartment-sales/internal/port"
)

type ReservationExpirer interface {
	ExpireReservations(ctx context.Context, now time.Time) (int, error)
}

// ReservationSweeper periodically releases expired reservations.
type ReservationSweeper struct {
	expirer  ReservationExpirer
	interval time.Duration
	logger   port.LoggerPort

	wg   sync.WaitGroup
	done chan struct{}
}

func NewReservationSweeper(expirer ReservationExpirer, interval time.Duration, logger port.LoggerPort) *ReservationSweeper {
	return &ReservationSweeper{
		expirer:  expirer,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

func (s *ReservationSweeper) Start() {
	s.wg.Add(1)
	go s.run()
}

func (s *ReservationSweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *ReservationSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	n, err := s.expirer.ExpireReservations(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("reservation sweep failed", err, nil)
		return
	}
	if n > 0 {
		s.logger.Info("expired reservations released", port.Fields{"count": n})
	}
}

// Close stops the loop and waits for an in-flight sweep to finish.
func (s *ReservationSweeper) Close() {
	close(s.done)
	s.wg.Wait()
}
