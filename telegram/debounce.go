package telegram

import "time"

type gateState int

const (
	gateIdle gateState = iota
	gateArmed
	gateFired
)

func (s gateState) String() string {
	switch s {
	case gateArmed:
		return "armed"
	case gateFired:
		return "fired"
	}
	return "idle"
}

// flushGate is the per-group debounce state. It is armed by the first
// matching message, fires once after the settle delay and is then released
// by the aggregator.
type flushGate struct {
	state       gateState
	destination int64
	caption     string
	triggerID   int
}

// arm moves an idle gate to armed. It reports false if the gate was already
// armed or fired.
func (g *flushGate) arm(rule Rule, msg IncomingMessage) bool {
	if g.state != gateIdle {
		return false
	}
	g.state = gateArmed
	g.destination = rule.Destination
	g.caption = msg.Caption
	g.triggerID = msg.ID
	return true
}

// fire moves an armed gate to fired. It reports false for any other state.
func (g *flushGate) fire() bool {
	if g.state != gateArmed {
		return false
	}
	g.state = gateFired
	return true
}

// scheduleFunc runs f once after d.
type scheduleFunc func(d time.Duration, f func())

func afterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
