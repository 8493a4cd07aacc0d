package inventory

import (
	"image/color"
	"strconv"
	"sync"
	"time"

	"vision-inventory/internal/catalog"
	"vision-inventory/internal/palette"
)

// Highlighter remembers the marker the operator saved most recently for a
// limited time. One instance is shared by every screen that draws markers. It
// is safe for concurrent use.
type Highlighter struct {
	mu    sync.Mutex
	id    string
	until time.Time
	ttl   time.Duration
	now   func() time.Time
}

func NewHighlighter(ttl time.Duration) *Highlighter {
	return &Highlighter{ttl: ttl, now: time.Now}
}

// Set highlights id, replacing any previous highlight and restarting the timer.
// Numeric IDs match regardless of leading zeros.
func (h *Highlighter) Set(id string) {
	id = catalog.NormalizeID(id)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.id = id
	h.until = h.now().Add(h.ttl)
}

// Active returns the highlighted ID if it has not expired.
func (h *Highlighter) Active() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.id == "" || !h.now().Before(h.until) {
		return "", false
	}
	return h.id, true
}

// Color picks the outline color for a detected marker.
func (h *Highlighter) Color(id int) color.RGBA {
	if active, ok := h.Active(); ok && active == strconv.Itoa(id) {
		return palette.MarkerRecent
	}
	return palette.Marker
}
