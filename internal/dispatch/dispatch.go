// Slot filling: ask a serial-attached feeder to fill empty grid cells
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"vision-inventory/internal/blobs"
	"vision-inventory/internal/config"
	"vision-inventory/internal/geometry"
)

var (
	ErrDisabled = errors.New("dispatch disabled")
	ErrBusy     = errors.New("dispatch already in progress")
)

// OpenFunc opens the link to the feeder.
type OpenFunc func() (io.WriteCloser, error)

// SerialOpener opens the configured port as 8N1 at the configured baud rate.
func SerialOpener(cfg config.DispatchConfig) OpenFunc {
	return func() (io.WriteCloser, error) {
		port, err := serial.Open(cfg.Port, &serial.Mode{
			BaudRate: cfg.BaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
		}
		return port, nil
	}
}

// Dispatcher sends one command per empty cell of the target row. The link is
// opened on first use and kept open until Close.
type Dispatcher struct {
	cfg    config.DispatchConfig
	open   OpenFunc
	logger *logrus.Logger

	mu   sync.Mutex
	link io.WriteCloser
	busy bool

	// wait is replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(cfg config.DispatchConfig, open OpenFunc, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		open:   open,
		logger: logger,
		wait:   sleepContext,
	}
}

// Enabled reports whether dispatching is configured on.
func (d *Dispatcher) Enabled() bool {
	return d.cfg.Enabled
}

// Targets returns the empty cells of the configured row in column order.
func (d *Dispatcher) Targets(occ *blobs.Occupancy) []geometry.Cell {
	if occ == nil {
		return nil
	}
	return occ.Empty(d.cfg.TargetRow)
}

// FillEmpty sends the command once for every target cell, pausing the
// configured gap after each. It returns how many commands were sent. Only one
// fill runs at a time.
func (d *Dispatcher) FillEmpty(ctx context.Context, occ *blobs.Occupancy) (int, error) {
	if !d.cfg.Enabled {
		return 0, ErrDisabled
	}

	d.mu.Lock()
	if d.busy {
		d.mu.Unlock()
		return 0, ErrBusy
	}
	d.busy = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()
	}()

	link, err := d.ensureLink()
	if err != nil {
		return 0, err
	}

	targets := d.Targets(occ)
	command := []byte(d.cfg.Command + "\r")
	gap := time.Duration(d.cfg.GapMS) * time.Millisecond

	sent := 0
	for _, cell := range targets {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if _, err := link.Write(command); err != nil {
			d.dropLink()
			return sent, fmt.Errorf("send to cell %d,%d: %w", cell.Row, cell.Col, err)
		}
		sent++
		d.logger.WithFields(logrus.Fields{"row": cell.Row, "col": cell.Col}).Info("Fill command sent")

		if err := d.wait(ctx, gap); err != nil {
			return sent, err
		}
	}

	d.logger.WithFields(logrus.Fields{"row": d.cfg.TargetRow, "sent": sent}).Info("Fill complete")
	return sent, nil
}

func (d *Dispatcher) ensureLink() (io.WriteCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.link != nil {
		return d.link, nil
	}
	link, err := d.open()
	if err != nil {
		return nil, err
	}
	d.link = link
	return link, nil
}

func (d *Dispatcher) dropLink() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.link != nil {
		d.link.Close()
		d.link = nil
	}
}

// Close releases the link.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.link == nil {
		return nil
	}
	err := d.link.Close()
	d.link = nil
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
