package sim

// EventKind tags a discrete game event exposed to collaborators for
// scoring, audio and VFX triggers.
type EventKind int

const (
	EventSpawned EventKind = iota
	EventGoalReached
	EventDelivered
	EventAgentLost
	EventAgentDestroyedByHazard
)

func (k EventKind) String() string {
	switch k {
	case EventSpawned:
		return "spawned"
	case EventGoalReached:
		return "goal-reached"
	case EventDelivered:
		return "delivered"
	case EventAgentLost:
		return "agent-lost"
	case EventAgentDestroyedByHazard:
		return "destroyed-by-hazard"
	default:
		return "unknown"
	}
}

// Event is one discrete game event.
type Event struct {
	Kind  EventKind
	Agent AgentID
}
