package search

// State is the lifecycle of the vector index owned by the engine.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// IndexState reports the index lifecycle as text.
func (s *Service) IndexState() string {
	return s.State().String()
}
