// Package bubble drives the small informational indicator that follows the
// cursor over map features and freezes on selection.
package bubble

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"map_exhibits/internal/bus"
	"map_exhibits/internal/models"
)

// State is the hover/selection state of the indicator.
type State int

const (
	Idle State = iota
	Hovered
	Selected
)

func (s State) String() string {
	switch s {
	case Hovered:
		return "hovered"
	case Selected:
		return "selected"
	default:
		return "idle"
	}
}

// Padding offsets the indicator from the cursor.
type Padding struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

var DefaultPadding = Padding{X: 20, Y: 20}

// Indicator is what the viewer renders.
type Indicator struct {
	Visible bool    `json:"visible"`
	Frozen  bool    `json:"frozen"`
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
}

// Bubble is the indicator state machine. It is the only writer of the
// indicator.
type Bubble struct {
	mu       sync.Mutex
	state    State
	recordID uint
	active   bool
	padding  Padding
	ind      Indicator
	log      *logrus.Entry
}

// New creates an active bubble subscribed to b.
func New(b *bus.Bus, padding Padding, log *logrus.Entry) *Bubble {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	bb := &Bubble{
		active:  true,
		padding: padding,
		log:     log.WithField("component", "bubble"),
	}
	for _, cmd := range []bus.Command{
		bus.CmdHighlight, bus.CmdUnhighlight, bus.CmdSelect, bus.CmdUnselect,
		bus.CmdCursorMove, bus.CmdCursorOut,
		bus.CmdPresenterActivate, bus.CmdPresenterDeactivate,
	} {
		b.Subscribe(cmd, bb.Handle)
	}
	return bb
}

// Handle applies one bus message. Activation messages are always honored;
// every other message is ignored while the presenter is deactivated.
func (b *Bubble) Handle(ctx context.Context, msg bus.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch msg.(type) {
	case bus.PresenterActivate:
		b.active = true
		return nil
	case bus.PresenterDeactivate:
		b.active = false
		b.reset()
		return nil
	}
	if !b.active {
		return nil
	}

	switch m := msg.(type) {
	case bus.Highlight:
		b.hover(m.Record)
	case bus.Unhighlight, bus.CursorOut:
		if b.state == Hovered {
			b.reset()
		}
	case bus.CursorMove:
		if b.state == Hovered {
			b.ind.Left = m.X + b.padding.X
			b.ind.Top = m.Y - b.padding.Y
		}
	case bus.Select:
		b.freeze(m.Record)
	case bus.Unselect:
		// 0 unselects whatever is frozen.
		if b.state == Selected && (m.RecordID == 0 || m.RecordID == b.recordID) {
			b.reset()
		}
	}
	return nil
}

func (b *Bubble) hover(r models.RecordData) {
	if b.state == Selected {
		return
	}
	b.state = Hovered
	b.recordID = r.ID
	b.show(r)
}

func (b *Bubble) freeze(r models.RecordData) {
	if b.state == Selected && b.recordID == r.ID {
		return
	}
	if b.state != Hovered || b.recordID != r.ID {
		b.show(r)
	}
	b.state = Selected
	b.recordID = r.ID
	b.ind.Frozen = true
	b.log.WithField("record_id", r.ID).Debug("Indicator frozen.")
}

func (b *Bubble) show(r models.RecordData) {
	b.ind.Visible = true
	b.ind.Title = deref(r.Title)
	b.ind.Body = deref(r.Body)
}

func (b *Bubble) reset() {
	b.state = Idle
	b.recordID = 0
	b.ind.Visible = false
	b.ind.Frozen = false
}

// Indicator returns the current indicator.
func (b *Bubble) Indicator() Indicator {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ind
}

// State returns the current state and the record it concerns.
func (b *Bubble) State() (State, uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.recordID
}

// Active reports whether the presenter is active.
func (b *Bubble) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
