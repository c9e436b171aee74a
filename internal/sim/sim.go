package sim

import (
	"fmt"
)

const (
	// Spawner timing. The first spawn after level start is quicker, and
	// quicker still when there is no intro message competing for the
	// player's attention.
	initialSpawnDelay        = 1.5
	initialSpawnDelayMessage = 7.5

	// replanInterval is how often an agent revalidates an assigned path.
	replanInterval = 0.5

	// Global cooldowns after planning failures, so a blocked level is not
	// re-queried every tick.
	assignFailCooldown = 0.5
	replanFailCooldown = 0.25
)

// PathStatus is the level-wide planning health flag. While Blocked, the
// spawner is fully suspended.
type PathStatus int

const (
	PathOpen PathStatus = iota
	PathBlocked
)

func (ps PathStatus) String() string {
	if ps == PathBlocked {
		return "blocked"
	}
	return "open"
}

// AgentSnapshot is the per-tick agent view exposed for rendering.
type AgentSnapshot struct {
	ID      AgentID
	Pos     Vec2
	Heading float64
	State   AgentState
}

// Sim is the simulation context for one level instance: the live agent
// set, the active navigation surface, the exclusion set, and all level-wide
// mutable state. All per-tick phases run to completion in a fixed order
// inside Update; nothing here is safe for concurrent use.
type Sim struct {
	level   *Level
	surface *Surface
	planner *Planner

	excluded map[CellCoord]bool
	agents   []*Agent
	nextID   AgentID

	status PathStatus

	spawnWait      float64
	assignCooldown float64
	replanCooldown float64

	obstaclesLeft int
	delivered     int
	lostCount     int

	tick   int
	events []Event

	contacts []Contact

	log *SimLog
}

// NewSim builds the simulation for a level: the initial navigation surface
// with an empty exclusion set, an empty agent set, and the spawner armed
// with the initial delay. Construction fails only on degenerate topology.
func NewSim(level *Level, log *SimLog) (*Sim, error) {
	surface, err := BuildSurface(level, nil)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = NewSimLog(false)
	}
	s := &Sim{
		level:         level,
		surface:       surface,
		planner:       NewPlanner(surface),
		excluded:      make(map[CellCoord]bool),
		status:        PathOpen,
		obstaclesLeft: level.Config().Obstacles,
		log:           log,
	}
	s.spawnWait = initialSpawnDelay
	if level.Config().Message != "" {
		s.spawnWait = initialSpawnDelayMessage
	}
	return s, nil
}

func (s *Sim) Level() *Level      { return s.level }
func (s *Sim) Surface() *Surface  { return s.surface }
func (s *Sim) Status() PathStatus { return s.status }
func (s *Sim) Tick() int          { return s.tick }
func (s *Sim) Delivered() int     { return s.delivered }
func (s *Sim) Lost() int          { return s.lostCount }
func (s *Sim) Population() int    { return len(s.agents) }
func (s *Sim) Log() *SimLog       { return s.log }
func (s *Sim) ObstaclesLeft() int { return s.obstaclesLeft }

// Won reports whether the level's delivery target has been met.
func (s *Sim) Won() bool {
	t := s.level.Config().Treasures
	return t > 0 && s.delivered >= t
}

// Failed reports whether the level's loss budget has been exhausted.
func (s *Sim) Failed() bool {
	b := s.level.Config().LostBudget
	return b > 0 && s.lostCount >= b
}

// Agents returns per-tick snapshots of all live agents for rendering.
func (s *Sim) Agents() []AgentSnapshot {
	out := make([]AgentSnapshot, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, AgentSnapshot{ID: a.id, Pos: a.pos, Heading: a.heading, State: a.state})
	}
	return out
}

// AgentPaths returns, per live agent, the chain from its position through
// its remaining waypoints. Used by the viewer's path overlay.
func (s *Sim) AgentPaths() map[AgentID][]Vec2 {
	out := make(map[AgentID][]Vec2, len(s.agents))
	for _, a := range s.agents {
		if !a.hasPath {
			continue
		}
		chain := make([]Vec2, 0, len(a.stack)+2)
		chain = append(chain, a.pos, a.next)
		for i := len(a.stack) - 1; i >= 0; i-- {
			chain = append(chain, a.stack[i])
		}
		out[a.id] = chain
	}
	return out
}

// Events drains and returns the events emitted since the last call.
func (s *Sim) Events() []Event {
	out := s.events
	s.events = nil
	return out
}

func (s *Sim) emit(e Event) { s.events = append(s.events, e) }

// SubmitContacts feeds this tick's physical overlaps to the collision
// resolver. The feed is consumed by the next Update.
func (s *Sim) SubmitContacts(cs []Contact) {
	s.contacts = append(s.contacts, cs...)
}

func (s *Sim) agent(id AgentID) *Agent {
	for _, a := range s.agents {
		if a.id == id {
			return a
		}
	}
	return nil
}

// Update advances the simulation one tick of dt seconds. Phases run to
// completion in a fixed order: spawn, steering, arrival, path assignment,
// replanning, collision resolution.
func (s *Sim) Update(dt float64) {
	s.tick++
	s.updateSpawner(dt)
	for _, a := range s.agents {
		a.steer(dt)
	}
	s.updateArrivals()
	s.assignPaths(dt)
	s.replanPaths(dt)
	s.resolveContacts()
}

// --- spawner ---

// updateSpawner counts down the spawn timer while the level can accept a
// new agent. The countdown is frozen — not merely delayed — while the path
// status is blocked or the population is at cap.
func (s *Sim) updateSpawner(dt float64) {
	if s.status == PathBlocked {
		return
	}
	if len(s.agents) >= s.level.Config().PopulationCap {
		return
	}
	s.spawnWait -= dt
	if s.spawnWait > 0 {
		return
	}
	a := newAgent(s.nextID, s.level.SpawnPoint())
	s.nextID++
	s.agents = append(s.agents, a)
	s.spawnWait = s.level.Config().SpawnInterval
	s.emit(Event{Kind: EventSpawned, Agent: a.id})
	s.log.Add(s.tick, agentLabel(a.id), "spawn", "spawned",
		fmt.Sprintf("population=%d", len(s.agents)), float64(len(s.agents)))
}

// --- arrival & state transitions ---

func (s *Sim) updateArrivals() {
	for i := 0; i < len(s.agents); i++ {
		a := s.agents[i]
		if a.popWaypoint() {
			continue
		}
		if !a.arrived() {
			continue
		}
		switch a.state {
		case StateSeeking:
			a.state = StateReturning
			a.clearPath()
			s.emit(Event{Kind: EventGoalReached, Agent: a.id})
			s.log.Add(s.tick, agentLabel(a.id), "agent", "goal_reached", "turning back", 0)
		case StateReturning:
			s.agents = append(s.agents[:i], s.agents[i+1:]...)
			i--
			s.delivered++
			s.emit(Event{Kind: EventDelivered, Agent: a.id})
			s.log.Add(s.tick, agentLabel(a.id), "agent", "delivered",
				fmt.Sprintf("total=%d", s.delivered), float64(s.delivered))
		}
	}
}

// --- path assignment ---

// assignPaths gives a path to every agent that has none. A failure marks
// the level blocked and backs off globally; a success re-opens it. Parked
// agents are skipped until the next surface rebuild.
func (s *Sim) assignPaths(dt float64) {
	if s.assignCooldown > 0 {
		s.assignCooldown -= dt
		return
	}
	for _, a := range s.agents {
		if a.hasPath || a.parked {
			continue
		}
		to, exclusion := a.target(s.level)
		path := s.planner.Plan(a.pos, to, exclusion, a.delta)
		if path != nil {
			a.setPath(path)
			s.setStatus(PathOpen)
			continue
		}
		s.setStatus(PathBlocked)
		s.assignCooldown = assignFailCooldown
		s.log.Add(s.tick, agentLabel(a.id), "path", "assign_failed",
			fmt.Sprintf("to (%.0f,%.0f)", to.X, to.Y), 0)
	}
}

func (s *Sim) setStatus(ps PathStatus) {
	if s.status == ps {
		return
	}
	s.status = ps
	s.log.Add(s.tick, "--", "path", "status", ps.String(), 0)
}

// --- replanning ---

// replanPaths revalidates assigned paths on their per-agent timers so
// freshly placed obstacles are reacted to. Each failure widens the agent's
// personal avoidance delta by the backoff factor; past the ceiling the
// path is dropped and the agent parks until the next rebuild. Only
// collisions destroy agents — a parked agent just waits.
func (s *Sim) replanPaths(dt float64) {
	if s.replanCooldown > 0 {
		s.replanCooldown -= dt
		return
	}
	for _, a := range s.agents {
		if !a.hasPath {
			continue
		}
		a.replanTimer -= dt
		if a.replanTimer > 0 {
			continue
		}
		to, exclusion := a.target(s.level)
		path := s.planner.Plan(a.pos, to, exclusion, a.delta)
		if path != nil {
			a.setPath(path)
			a.delta = backoffBase
			continue
		}
		a.delta *= backoffFactor
		s.log.Add(s.tick, agentLabel(a.id), "path", "replan_failed",
			fmt.Sprintf("delta=%.1f", a.delta), a.delta)
		if a.delta > backoffCeiling {
			a.clearPath()
			a.parked = true
			s.log.Add(s.tick, agentLabel(a.id), "path", "parked",
				"backoff ceiling exceeded", a.delta)
		} else {
			a.replanTimer = replanFailCooldown
		}
		s.replanCooldown = replanFailCooldown
	}
}

// --- obstacles & surface rebuilds ---

// PlaceObstacle blocks a floor cell and synchronously rebuilds the
// navigation surface; no planning query ever observes a stale surface.
func (s *Sim) PlaceObstacle(cc CellCoord) error {
	if s.level.Cell(cc.Col, cc.Row).Kind != CellFloor {
		return fmt.Errorf("obstacle: cell (%d,%d) is %s, not floor",
			cc.Col, cc.Row, s.level.Cell(cc.Col, cc.Row).Kind)
	}
	if s.excluded[cc] {
		return fmt.Errorf("obstacle: cell (%d,%d) already blocked", cc.Col, cc.Row)
	}
	if s.obstaclesLeft == 0 {
		return fmt.Errorf("obstacle: no obstacles left")
	}
	s.excluded[cc] = true
	if s.obstaclesLeft > 0 {
		s.obstaclesLeft--
	}
	s.log.Add(s.tick, "--", "obstacle", "placed",
		fmt.Sprintf("(%d,%d)", cc.Col, cc.Row), 0)
	return s.rebuildSurface()
}

// RemoveObstacle unblocks a cell and synchronously rebuilds the surface.
func (s *Sim) RemoveObstacle(cc CellCoord) error {
	if !s.excluded[cc] {
		return fmt.Errorf("obstacle: cell (%d,%d) is not blocked", cc.Col, cc.Row)
	}
	delete(s.excluded, cc)
	if s.obstaclesLeft >= 0 {
		s.obstaclesLeft++
	}
	s.log.Add(s.tick, "--", "obstacle", "removed",
		fmt.Sprintf("(%d,%d)", cc.Col, cc.Row), 0)
	return s.rebuildSurface()
}

// Excluded reports whether a cell is currently blocked by an obstacle.
func (s *Sim) Excluded(cc CellCoord) bool { return s.excluded[cc] }

// rebuildSurface replaces the active surface wholesale from the current
// exclusion set. Parked agents resume planning against the new surface
// with a fresh delta, and the blocked flag is cleared so the next attempt
// probes the new topology.
func (s *Sim) rebuildSurface() error {
	surface, err := BuildSurface(s.level, s.excluded)
	if err != nil {
		return err
	}
	s.surface = surface
	s.planner = NewPlanner(surface)
	for _, a := range s.agents {
		if a.parked {
			a.parked = false
			a.delta = backoffBase
		}
	}
	s.setStatus(PathOpen)
	s.log.Add(s.tick, "--", "surface", "rebuilt",
		fmt.Sprintf("%d excluded cells", len(s.excluded)), float64(len(s.excluded)))
	return nil
}
