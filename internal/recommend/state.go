package recommend

// State is the observable session state of the orchestrator.
type State int

const (
	StateIdle State = iota
	StateLoadingInit
	StateReady
	StateErrorInit
	StateLoadingInfer
	StateSuccess
	StateErrorInfer
	StateCancelled
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingInit:
		return "loading_init"
	case StateReady:
		return "ready"
	case StateErrorInit:
		return "error_init"
	case StateLoadingInfer:
		return "loading_infer"
	case StateSuccess:
		return "success"
	case StateErrorInfer:
		return "error_infer"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Transition is one published state change. Message carries the loading
// hint or failure detail for states that have one.
type Transition struct {
	State   State
	Message string
}

// Observer receives transitions synchronously and in publish order.
// Observers must not call back into the orchestrator.
type Observer func(Transition)
