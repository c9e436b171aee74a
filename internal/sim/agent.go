package sim

import "math"

const (
	maxSpeed = 8.0 // world units per second

	// waypointRadius is the pop distance for intermediate waypoints.
	waypointRadius = maxSpeed / 10.0

	// goalRadius / homeRadius are the arrival distances for the two
	// terminal waypoints. Home is looser so a crowd of returning agents
	// does not queue on the exact spawn centre.
	goalRadius = 1.0
	homeRadius = 1.5

	// backoffBase is the starting avoidance delta for every planning query.
	backoffBase    = 0.1
	backoffFactor  = 3.0
	backoffCeiling = 10.0
)

// AgentID identifies one live agent for the duration of its life.
type AgentID int

// AgentState is the behavioural state of an agent.
type AgentState int

const (
	StateSeeking   AgentState = iota // outbound, heading for the goal
	StateReturning                   // inbound, carrying a delivery home
)

func (s AgentState) String() string {
	switch s {
	case StateSeeking:
		return "seeking"
	case StateReturning:
		return "returning"
	default:
		return "unknown"
	}
}

// Agent is one autonomous runner in the arena.
type Agent struct {
	id      AgentID
	pos     Vec2
	vel     Vec2
	heading float64 // radians; kept when velocity is near zero
	state   AgentState

	// Path assignment: next is the current waypoint, stack holds the rest
	// reversed so the next waypoint is always the last element.
	hasPath bool
	next    Vec2
	stack   []Vec2

	// Replanning state.
	replanTimer float64 // seconds until the next revalidation
	delta       float64 // personal avoidance delta, grows on failure
	parked      bool    // backoff ceiling exceeded; wait for a rebuild
}

func newAgent(id AgentID, at Vec2) *Agent {
	return &Agent{
		id:    id,
		pos:   at,
		state: StateSeeking,
		delta: backoffBase,
	}
}

func (a *Agent) ID() AgentID       { return a.id }
func (a *Agent) Pos() Vec2         { return a.pos }
func (a *Agent) Heading() float64  { return a.heading }
func (a *Agent) State() AgentState { return a.state }
func (a *Agent) HasPath() bool     { return a.hasPath }
func (a *Agent) Parked() bool      { return a.parked }

// setPath installs a freshly planned waypoint chain. The chain starts at
// the agent's own position, so the first real target is the second entry.
func (a *Agent) setPath(waypoints []Vec2) {
	if len(waypoints) == 0 {
		a.clearPath()
		return
	}
	a.next = waypoints[len(waypoints)-1]
	a.stack = a.stack[:0]
	if len(waypoints) >= 2 {
		a.next = waypoints[1]
		for i := len(waypoints) - 1; i >= 2; i-- {
			a.stack = append(a.stack, waypoints[i])
		}
	}
	a.hasPath = true
	a.replanTimer = replanInterval
}

func (a *Agent) clearPath() {
	a.hasPath = false
	a.stack = a.stack[:0]
}

// target returns the destination point and the layer exclusion for the
// agent's current state: outbound agents must not cut through the
// out-portal plane, inbound agents must not re-enter through the in-portal
// plane.
func (a *Agent) target(lv *Level) (Vec2, LayerSet) {
	if a.state == StateSeeking {
		return lv.GoalPoint(), NewLayerSet(LayerPortalOut)
	}
	return lv.SpawnPoint(), NewLayerSet(LayerPortalIn)
}

// steer advances the agent one tick toward its current waypoint: a
// first-order blend of current velocity toward the desired velocity,
// clamped to max speed, with overshoot damping once the stack is empty.
func (a *Agent) steer(dt float64) {
	if !a.hasPath {
		return
	}
	full := a.next.Sub(a.pos)
	desired := full.Norm().Scale(maxSpeed)
	steering := desired.Sub(a.vel)
	a.vel = a.vel.Add(steering.Scale(dt))
	if a.vel.Len() > maxSpeed {
		a.vel = a.vel.Norm().Scale(maxSpeed)
	}
	if len(a.stack) == 0 && a.vel.Len() > full.Len() {
		a.vel = a.vel.Scale(0.9)
	}
	a.pos = a.pos.Add(a.vel.Scale(dt))
	if a.vel.Len() > 1e-3 {
		a.heading = math.Atan2(a.vel.Y, a.vel.X)
	}
}

// popWaypoint advances to the next waypoint when within pop distance of the
// current one. Returns true if a waypoint was consumed.
func (a *Agent) popWaypoint() bool {
	if !a.hasPath || len(a.stack) == 0 {
		return false
	}
	if a.pos.Dist(a.next) >= waypointRadius {
		return false
	}
	a.next = a.stack[len(a.stack)-1]
	a.stack = a.stack[:len(a.stack)-1]
	return true
}

// arrived reports whether the agent has reached its terminal waypoint: the
// stack is empty and the distance is within the state's arrival radius.
func (a *Agent) arrived() bool {
	if !a.hasPath || len(a.stack) > 0 {
		return false
	}
	r := goalRadius
	if a.state == StateReturning {
		r = homeRadius
	}
	return a.pos.Dist(a.next) < r
}
