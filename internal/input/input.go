// Package input holds the logical action map that keyboard or touch drivers
// populate and the simulation reads once per step.
package input

import (
	"sync"
	"time"
)

// Action is a logical control, independent of the physical key bound to it.
type Action string

const (
	Forward Action = "forward"
	Back    Action = "back"
	Left    Action = "left"
	Right   Action = "right"
	Boost   Action = "boost"
	Jump    Action = "jump"
	Ascend  Action = "ascend"
)

// Actions lists every known action.
var Actions = []Action{Forward, Back, Left, Right, Boost, Jump, Ascend}

// Snapshot is an immutable view of the action map for one step.
type Snapshot struct {
	Forward bool
	Back    bool
	Left    bool
	Right   bool
	Boost   bool
	Jump    bool
	Ascend  bool
}

// Turning reports whether exactly one turn action is held; it returns +1 for
// left (counter-clockwise) and -1 for right.
func (s Snapshot) Turning() (dir float64, ok bool) {
	switch {
	case s.Left && !s.Right:
		return 1, true
	case s.Right && !s.Left:
		return -1, true
	}
	return 0, false
}

// Source is anything the simulation can read input from.
type Source interface {
	Snapshot() Snapshot
}

// State is a concurrency-safe action map written by input drivers.
type State struct {
	mu      sync.RWMutex
	pressed map[Action]bool
}

// NewState creates an empty action map.
func NewState() *State {
	return &State{pressed: make(map[Action]bool)}
}

// Set marks an action as held or released.
func (s *State) Set(a Action, held bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pressed[a] = held
}

// Pressed reports whether the action is held.
func (s *State) Pressed(a Action) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pressed[a]
}

// Reset releases every action.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pressed = make(map[Action]bool)
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Forward: s.pressed[Forward],
		Back:    s.pressed[Back],
		Left:    s.pressed[Left],
		Right:   s.pressed[Right],
		Boost:   s.pressed[Boost],
		Jump:    s.pressed[Jump],
		Ascend:  s.pressed[Ascend],
	}
}

// Latch is a Source for drivers that only report key presses, such as
// terminals: each press holds the action for a fixed window.
type Latch struct {
	mu    sync.Mutex
	hold  time.Duration
	until map[Action]time.Time
	now   func() time.Time
}

// NewLatch creates a latch that keeps each press alive for hold.
func NewLatch(hold time.Duration) *Latch {
	return &Latch{
		hold:  hold,
		until: make(map[Action]time.Time),
		now:   time.Now,
	}
}

// Press (re)arms the action.
func (l *Latch) Press(a Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.until[a] = l.now().Add(l.hold)
}

// Release drops the action immediately.
func (l *Latch) Release(a Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.until, a)
}

func (l *Latch) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	held := func(a Action) bool {
		t, ok := l.until[a]
		return ok && now.Before(t)
	}
	return Snapshot{
		Forward: held(Forward),
		Back:    held(Back),
		Left:    held(Left),
		Right:   held(Right),
		Boost:   held(Boost),
		Jump:    held(Jump),
		Ascend:  held(Ascend),
	}
}
