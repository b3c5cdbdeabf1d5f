package indicator

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/lysyi3m/rec-comb/app/filter"
)

type State int

const (
	Hidden State = iota
	Shown
	Fading
)

func (s State) String() string {
	switch s {
	case Shown:
		return "visible"
	case Fading:
		return "fading"
	default:
		return "hidden"
	}
}

// Display renders the indicator somewhere. Render is called with the lock
// of the indicator held and must not call back into it.
type Display interface {
	Render(state State, text string)
}

// Indicator is a transient readout of the hidden counters. Every update
// shows it and restarts the dwell timer; once the dwell passes it fades out
// and is hidden.
type Indicator struct {
	dwell    time.Duration
	fade     time.Duration
	displays []Display

	mu         sync.Mutex
	state      State
	text       string
	generation uint64
	conceal    func(func())
	fadeTimer  *time.Timer
}

func New(dwell, fade time.Duration, displays ...Display) *Indicator {
	return &Indicator{
		dwell:    dwell,
		fade:     fade,
		displays: displays,
		conceal:  debounce.New(dwell),
	}
}

// Summary formats counters the way the indicator shows them, listing only
// non-zero categories. It returns "" when nothing is hidden.
func Summary(c filter.Counters) string {
	if c.Total() == 0 {
		return ""
	}

	var parts []string
	if c.Keyword > 0 {
		parts = append(parts, fmt.Sprintf("%d keywords", c.Keyword))
	}
	if c.Length > 0 {
		parts = append(parts, fmt.Sprintf("%d short videos", c.Length))
	}
	if c.Shorts > 0 {
		parts = append(parts, fmt.Sprintf("%d shorts", c.Shorts))
	}

	return "Filter Active: " + strings.Join(parts, ", ") + " hidden"
}

// Publish implements filter.Publisher.
func (i *Indicator) Publish(c filter.Counters) {
	text := Summary(c)
	if text == "" {
		return
	}

	i.mu.Lock()
	i.generation++
	if i.fadeTimer != nil {
		i.fadeTimer.Stop()
		i.fadeTimer = nil
	}
	i.text = text
	i.setStateLocked(Shown)
	generation := i.generation
	i.mu.Unlock()

	i.conceal(func() { i.beginFade(generation) })
}

func (i *Indicator) beginFade(generation uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if generation != i.generation || i.state != Shown {
		return
	}
	i.setStateLocked(Fading)

	i.fadeTimer = time.AfterFunc(i.fade, func() {
		i.mu.Lock()
		defer i.mu.Unlock()

		if generation != i.generation {
			return
		}
		i.fadeTimer = nil
		i.setStateLocked(Hidden)
	})
}

func (i *Indicator) setStateLocked(state State) {
	i.state = state
	for _, d := range i.displays {
		d.Render(state, i.text)
	}
}

// State returns the current state and the last text shown.
func (i *Indicator) State() (State, string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state, i.text
}
