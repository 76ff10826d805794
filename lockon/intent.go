package lockon

import "fmt"

// IntentKind is the kind of actuation requested for a frame
type IntentKind uint8

const (
	// IntentIdle means do nothing this frame
	IntentIdle IntentKind = iota
	// IntentMove means move pointer by (DX, DY)
	IntentMove
	// IntentCommit means trigger the discrete action
	IntentCommit
)

func (kind IntentKind) String() string {
	switch kind {
	case IntentIdle:
		return "idle"
	case IntentMove:
		return "move"
	case IntentCommit:
		return "commit"
	default:
		return fmt.Sprintf("IntentKind(%d)", uint8(kind))
	}
}

// Intent is transient actuation value computed once per frame. It is never persisted.
type Intent struct {
	Kind IntentKind
	DX   int
	DY   int
}

// Idle returns idle intent
func Idle() Intent {
	return Intent{Kind: IntentIdle}
}

// Move returns relative move intent
func Move(dx, dy int) Intent {
	return Intent{Kind: IntentMove, DX: dx, DY: dy}
}

// Commit returns commit intent
func Commit() Intent {
	return Intent{Kind: IntentCommit}
}

func (intent Intent) String() string {
	if intent.Kind == IntentMove {
		return fmt.Sprintf("move(%d,%d)", intent.DX, intent.DY)
	}
	return intent.Kind.String()
}
