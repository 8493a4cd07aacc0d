// Fixed-delay polling loop for per-frame screen updates
package poller

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrAlreadyRunning = errors.New("poller already running")

// Poller calls tick repeatedly, waiting interval after each tick returns before
// starting the next. Ticks never overlap. A panicking tick is logged and the
// loop continues.
type Poller struct {
	name     string
	interval time.Duration
	tick     func()
	logger   *logrus.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func New(name string, interval time.Duration, tick func(), logger *logrus.Logger) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		tick:     tick,
		logger:   logger,
	}
}

// Start launches the loop. The first tick runs immediately.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		return fmt.Errorf("%s: %w", p.name, ErrAlreadyRunning)
	}

	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.stop, p.done)

	p.logger.WithFields(logrus.Fields{"poller": p.name, "interval": p.interval}).Debug("Poller started")
	return nil
}

// Stop ends the loop and waits for an in-flight tick to finish. It is safe to
// call on a stopped poller. Stop must not be called from inside tick.
func (p *Poller) Stop() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done

	p.logger.WithField("poller", p.name).Debug("Poller stopped")
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

func (p *Poller) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		p.safeTick()

		select {
		case <-stop:
			return
		default:
		}
		timer.Reset(p.interval)
	}
}

func (p *Poller) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithFields(logrus.Fields{"poller": p.name, "panic": r}).Error("Tick panicked, skipping")
		}
	}()
	p.tick()
}
