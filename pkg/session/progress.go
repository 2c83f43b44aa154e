package session

import (
	"sync"
	"time"

	"github.com/slimproto/slim-go/pkg/player"
)

// progressClock advances the position of playing players between status
// pushes. One shared ticker serves all players; it stops itself when
// nothing is playing and is restarted by the next playing status.
type progressClock struct {
	interval time.Duration
	registry *player.Registry
	emit     func(playerID string, position float64)

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

func newProgressClock(interval time.Duration, registry *player.Registry, emit func(string, float64)) *progressClock {
	return &progressClock{
		interval: interval,
		registry: registry,
		emit:     emit,
	}
}

// Start launches the ticker if it is not already running.
func (p *progressClock) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	go p.loop(p.stop)
}

// Stop halts the ticker. Safe to call when not running.
func (p *progressClock) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.stop)
}

// stopSelf stops the clock only if the given run is still the current
// one, so a self-stop cannot cancel a restart that raced it.
func (p *progressClock) stopSelf(stop chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || p.stop != stop {
		return
	}
	p.running = false
	close(p.stop)
}

func (p *progressClock) loop(stop chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	delta := p.interval.Seconds()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			updates := p.registry.AdvancePlaying(delta)
			if len(updates) == 0 {
				p.stopSelf(stop)
				return
			}
			for _, u := range updates {
				p.emit(u.PlayerID, u.Position)
			}
		}
	}
}
