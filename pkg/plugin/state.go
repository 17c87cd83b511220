package plugin

// State tracks a Runner through its single run. Transitions only move
// forward; a Runner is not reusable once it reaches StateCleaned.
type State uint32

const (
	// StateIdle is the state of a Runner that has never run.
	StateIdle State = iota
	// StateConnecting covers the attach to the shared block.
	StateConnecting
	// StateReady covers plugin startup, after attach and before the loop.
	StateReady
	// StateRunning covers the cycle loop.
	StateRunning
	// StateDraining covers teardown after the loop has exited.
	StateDraining
	// StateCleaned is terminal; the block has been released.
	StateCleaned
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateConnecting: "connecting",
	StateReady:      "ready",
	StateRunning:    "running",
	StateDraining:   "draining",
	StateCleaned:    "cleaned",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Phase is one of the three work phases of a cycle.
type Phase uint32

const (
	PhaseWrite Phase = iota
	PhaseRead
	PhaseVerify
)

var phaseNames = [...]string{
	PhaseWrite:  "Write",
	PhaseRead:   "Read",
	PhaseVerify: "Verify",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}
