package bot

import (
	"fmt"
	"time"
)

// Sweeper runs the retention purge on an interval so codes past the 60-day
// window disappear even when nobody interacts with the bot.
type Sweeper struct {
	interval time.Duration
	bot      *TgBot
	stopCh   chan struct{}
	done     chan struct{}
}

func NewSweeper(bot *TgBot, interval time.Duration) *Sweeper {
	return &Sweeper{
		interval: interval,
		bot:      bot,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) StartTicker() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopCh:
				s.sweep() // final sweep
				return
			}
		}
	}()
}

func (s *Sweeper) sweep() {
	removed, err := s.bot.core.PurgeExpired()
	if err != nil {
		s.bot.log.Warn("retention sweep", "error", err)
		return
	}
	if removed > 0 {
		s.bot.notifyAdmin(fmt.Sprintf("Retention sweep removed %d code\\(s\\)\\.", removed))
	}
}

func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.done
}
