package core

// Connectivity is the network state as seen by the Monitor.
type Connectivity string

const (
	ConnectivityUnknown Connectivity = "unknown"
	ConnectivityOnline  Connectivity = "online"
	ConnectivityOffline Connectivity = "offline"
)

// Monitor tracks connectivity transitions. It starts in unknown and is
// edge-triggered: reconciliation is requested only on a transition into
// online while mutations are pending. Repeated online reports do nothing.
//
// Monitor is not safe for concurrent use.
type Monitor struct {
	state Connectivity
}

// NewMonitor creates a Monitor in the unknown state.
func NewMonitor() *Monitor {
	return &Monitor{state: ConnectivityUnknown}
}

// Observe applies a reachability report. changed reports a state
// transition; trigger reports that reconciliation should start.
func (m *Monitor) Observe(r Reachability, pending int) (changed, trigger bool) {
	next := ConnectivityOffline
	if r.Online() {
		next = ConnectivityOnline
	}
	if next == m.state {
		return false, false
	}
	m.state = next
	return true, next == ConnectivityOnline && pending > 0
}

// State returns the current connectivity.
func (m *Monitor) State() Connectivity { return m.state }

// Online reports whether the last report was online.
func (m *Monitor) Online() bool { return m.state == ConnectivityOnline }

// Reset returns the monitor to unknown.
func (m *Monitor) Reset() { m.state = ConnectivityUnknown }
