package sim

import (
	"math"
	"testing"
)

func TestSim_InitialSpawnDelay(t *testing.T) {
	ts := NewTestSim()
	ts.RunTicks(85) // just short of the 1.5 s initial delay
	if got := ts.Sim.Population(); got != 0 {
		t.Fatalf("population before the initial delay: got %d, want 0", got)
	}
	ts.RunTicks(10)
	if got := ts.Sim.Population(); got != 1 {
		t.Fatalf("population after the initial delay: got %d, want 1", got)
	}
}

func TestSim_MessageDelaysFirstSpawn(t *testing.T) {
	ts := NewTestSim(WithMessage("Treasure awaits."))
	ts.RunTicks(440) // just short of the 7.5 s message delay
	if got := ts.Sim.Population(); got != 0 {
		t.Fatalf("population during the message delay: got %d, want 0", got)
	}
	ts.RunTicks(20)
	if got := ts.Sim.Population(); got != 1 {
		t.Fatalf("population after the message delay: got %d, want 1", got)
	}
}

func TestSim_PopulationNeverExceedsCap(t *testing.T) {
	ts := NewTestSim(WithPopulationCap(2), WithSpawnInterval(0.2))
	if tick := ts.RunUntil(func(s *Sim) bool { return s.Population() > 2 }, 2400); tick != -1 {
		t.Fatalf("population exceeded the cap at tick %d", tick)
	}
}

func TestSim_DeliveryCycle(t *testing.T) {
	ts := NewTestSim()
	if tick := ts.RunUntil(func(s *Sim) bool { return s.Delivered() >= 1 }, 4000); tick == -1 {
		t.Fatal("agent never completed a delivery")
	}

	// The log shows the full out-and-back arc in order.
	spawned := ts.SimLog.Filter("spawn", "spawned")
	reached := ts.SimLog.Filter("agent", "goal_reached")
	delivered := ts.SimLog.Filter("agent", "delivered")
	if len(spawned) == 0 || len(reached) == 0 || len(delivered) == 0 {
		t.Fatalf("missing arc events: spawned=%d reached=%d delivered=%d",
			len(spawned), len(reached), len(delivered))
	}
	if !(spawned[0].Tick < reached[0].Tick && reached[0].Tick < delivered[0].Tick) {
		t.Fatalf("arc out of order: spawn=%d reach=%d deliver=%d",
			spawned[0].Tick, reached[0].Tick, delivered[0].Tick)
	}

	// Emitted events carry the same arc.
	var kinds []EventKind
	for _, e := range ts.Sim.Events() {
		kinds = append(kinds, e.Kind)
	}
	wantArc := []EventKind{EventSpawned, EventGoalReached, EventDelivered}
	wi := 0
	for _, k := range kinds {
		if wi < len(wantArc) && k == wantArc[wi] {
			wi++
		}
	}
	if wi != len(wantArc) {
		t.Fatalf("event arc incomplete: got %v", kinds)
	}
}

func TestSim_ObstacleBlocksSpawnerAndRemovalReopens(t *testing.T) {
	ts := NewTestSim(WithCells("X#>"), WithPopulationCap(3), WithSpawnInterval(0.5))
	if tick := ts.RunUntil(func(s *Sim) bool { return s.Population() == 1 }, 600); tick == -1 {
		t.Fatal("first agent never spawned")
	}

	if err := ts.Sim.PlaceObstacle(CellCoord{Col: 1, Row: 0}); err != nil {
		t.Fatalf("PlaceObstacle: %v", err)
	}

	// The next spawn's assignment fails and flips the level to blocked.
	if tick := ts.RunUntil(func(s *Sim) bool { return s.Status() == PathBlocked }, 600); tick == -1 {
		t.Fatal("level never went blocked")
	}

	// Blocked freezes the spawner: population holds below the cap, and
	// nothing is destroyed by the blockage itself.
	pop := ts.Sim.Population()
	if pop >= 3 {
		t.Fatalf("population reached the cap while blocked: %d", pop)
	}
	ts.RunTicks(600)
	if got := ts.Sim.Population(); got != pop {
		t.Fatalf("population changed while blocked: %d -> %d", pop, got)
	}
	if ts.Sim.Lost() != 0 {
		t.Fatalf("blockage destroyed agents: lost=%d", ts.Sim.Lost())
	}

	// Removal rebuilds the surface and re-opens the level.
	if err := ts.Sim.RemoveObstacle(CellCoord{Col: 1, Row: 0}); err != nil {
		t.Fatalf("RemoveObstacle: %v", err)
	}
	if ts.Sim.Status() != PathOpen {
		t.Fatalf("status after removal: got %s, want open", ts.Sim.Status())
	}
	if tick := ts.RunUntil(func(s *Sim) bool { return s.Delivered() >= 1 }, 4000); tick == -1 {
		t.Fatal("no delivery after the corridor re-opened")
	}
}

func TestSim_ReplanBackoffParksAgent(t *testing.T) {
	ts := NewTestSim(WithCells("X#>"), WithSpawnInterval(0.5))
	if tick := ts.RunUntil(func(s *Sim) bool {
		return s.Population() == 1 && s.agents[0].hasPath
	}, 600); tick == -1 {
		t.Fatal("first agent never got a path")
	}

	if err := ts.Sim.PlaceObstacle(CellCoord{Col: 1, Row: 0}); err != nil {
		t.Fatalf("PlaceObstacle: %v", err)
	}
	ts.RunTicks(600)

	a := ts.Sim.agents[0]
	if !a.parked {
		t.Fatal("agent should be parked after the backoff ceiling")
	}
	if a.hasPath {
		t.Fatal("parked agent should have dropped its path")
	}
	if ts.Sim.Population() != 1 {
		t.Fatalf("parking must not destroy the agent: population %d", ts.Sim.Population())
	}

	// The delta triples per failure from 0.1 and parks past 10.
	failures := ts.SimLog.Filter("path", "replan_failed")
	want := []float64{0.3, 0.9, 2.7, 8.1, 24.3}
	if len(failures) != len(want) {
		t.Fatalf("replan failures: got %d, want %d", len(failures), len(want))
	}
	for i, e := range failures {
		if math.Abs(e.NumVal-want[i]) > 1e-6 {
			t.Fatalf("failure %d: delta %.4f, want %.4f", i, e.NumVal, want[i])
		}
	}
	if got := len(ts.SimLog.Filter("path", "parked")); got != 1 {
		t.Fatalf("parked events: got %d, want 1", got)
	}

	// A rebuild un-parks the agent with a fresh delta and it recovers.
	if err := ts.Sim.RemoveObstacle(CellCoord{Col: 1, Row: 0}); err != nil {
		t.Fatalf("RemoveObstacle: %v", err)
	}
	if a.parked {
		t.Fatal("rebuild should un-park the agent")
	}
	if a.delta != backoffBase {
		t.Fatalf("delta after rebuild: got %v, want %v", a.delta, backoffBase)
	}
	if tick := ts.RunUntil(func(s *Sim) bool { return s.Delivered() >= 1 }, 4000); tick == -1 {
		t.Fatal("un-parked agent never delivered")
	}
}

func TestSim_OpposingContactDestroysSeeker(t *testing.T) {
	ts := NewTestSim(WithPopulationCap(2), WithSpawnInterval(0.2))
	if tick := ts.RunUntil(func(s *Sim) bool { return s.Population() == 2 }, 1200); tick == -1 {
		t.Fatal("two agents never spawned")
	}
	seeker := ts.Sim.agents[0]
	returner := ts.Sim.agents[1]
	returner.state = StateReturning

	ts.Sim.Events() // drain spawn events
	ts.Sim.SubmitContacts([]Contact{{Agent: seeker.id, Other: returner.id, Kind: ContactAgent}})
	ts.RunTicks(1)

	if got := ts.Sim.Population(); got != 1 {
		t.Fatalf("population after opposing contact: got %d, want 1", got)
	}
	if ts.Sim.agents[0].id != returner.id {
		t.Fatal("the returning agent should survive")
	}
	if ts.Sim.Lost() != 1 {
		t.Fatalf("lost count: got %d, want 1", ts.Sim.Lost())
	}
	found := false
	for _, e := range ts.Sim.Events() {
		if e.Kind == EventAgentLost && e.Agent == seeker.id {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an agent-lost event for the seeker")
	}
}

func TestSim_SameStateContactIsHarmless(t *testing.T) {
	ts := NewTestSim(WithPopulationCap(2), WithSpawnInterval(0.2))
	if tick := ts.RunUntil(func(s *Sim) bool { return s.Population() == 2 }, 1200); tick == -1 {
		t.Fatal("two agents never spawned")
	}
	a, b := ts.Sim.agents[0], ts.Sim.agents[1]

	ts.Sim.SubmitContacts([]Contact{{Agent: a.id, Other: b.id, Kind: ContactAgent}})
	ts.RunTicks(1)
	if got := ts.Sim.Population(); got != 2 {
		t.Fatalf("same-state contact destroyed an agent: population %d", got)
	}
}

func TestSim_HazardContactDestroysAgent(t *testing.T) {
	ts := NewTestSim()
	if tick := ts.RunUntil(func(s *Sim) bool { return s.Population() == 1 }, 600); tick == -1 {
		t.Fatal("agent never spawned")
	}
	id := ts.Sim.agents[0].id

	ts.Sim.Events()
	ts.Sim.SubmitContacts([]Contact{{Agent: id, Kind: ContactHazard}})
	ts.RunTicks(1)

	if got := ts.Sim.Population(); got != 0 {
		t.Fatalf("population after hazard contact: got %d, want 0", got)
	}
	found := false
	for _, e := range ts.Sim.Events() {
		if e.Kind == EventAgentDestroyedByHazard && e.Agent == id {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a destroyed-by-hazard event")
	}

	// The spawner replaces the loss.
	if tick := ts.RunUntil(func(s *Sim) bool { return s.Population() == 1 }, 600); tick == -1 {
		t.Fatal("spawner never replaced the destroyed agent")
	}
}

func TestSim_WinAndFailConditions(t *testing.T) {
	ts := NewTestSim(WithTreasures(1))
	if tick := ts.RunUntil(func(s *Sim) bool { return s.Won() }, 4000); tick == -1 {
		t.Fatal("level never won after one delivery")
	}

	ts = NewTestSim(WithLostBudget(1))
	if tick := ts.RunUntil(func(s *Sim) bool { return s.Population() == 1 }, 600); tick == -1 {
		t.Fatal("agent never spawned")
	}
	ts.Sim.SubmitContacts([]Contact{{Agent: ts.Sim.agents[0].id, Kind: ContactHazard}})
	ts.RunTicks(1)
	if !ts.Sim.Failed() {
		t.Fatal("level should fail once the loss budget is spent")
	}
}

func TestSim_ObstacleValidation(t *testing.T) {
	ts := NewTestSim()

	if err := ts.Sim.PlaceObstacle(CellCoord{Col: 0, Row: 0}); err == nil {
		t.Fatal("placing on the spawn cell should fail")
	}
	if err := ts.Sim.PlaceObstacle(CellCoord{Col: 9, Row: 9}); err == nil {
		t.Fatal("placing out of range should fail")
	}
	if err := ts.Sim.PlaceObstacle(CellCoord{Col: 2, Row: 2}); err != nil {
		t.Fatalf("placing on floor: %v", err)
	}
	if err := ts.Sim.PlaceObstacle(CellCoord{Col: 2, Row: 2}); err == nil {
		t.Fatal("placing twice on the same cell should fail")
	}
	if err := ts.Sim.RemoveObstacle(CellCoord{Col: 3, Row: 3}); err == nil {
		t.Fatal("removing a missing obstacle should fail")
	}
	if !ts.Sim.Excluded(CellCoord{Col: 2, Row: 2}) {
		t.Fatal("placed cell should read as excluded")
	}
}

func TestSim_ObstacleBudget(t *testing.T) {
	ts := NewTestSim(WithObstacleBudget(1))
	if got := ts.Sim.ObstaclesLeft(); got != 1 {
		t.Fatalf("initial budget: got %d, want 1", got)
	}
	if err := ts.Sim.PlaceObstacle(CellCoord{Col: 1, Row: 1}); err != nil {
		t.Fatalf("first placement: %v", err)
	}
	if err := ts.Sim.PlaceObstacle(CellCoord{Col: 2, Row: 2}); err == nil {
		t.Fatal("placement beyond the budget should fail")
	}
	if err := ts.Sim.RemoveObstacle(CellCoord{Col: 1, Row: 1}); err != nil {
		t.Fatalf("removal: %v", err)
	}
	if got := ts.Sim.ObstaclesLeft(); got != 1 {
		t.Fatalf("budget after refund: got %d, want 1", got)
	}
	if err := ts.Sim.PlaceObstacle(CellCoord{Col: 2, Row: 2}); err != nil {
		t.Fatalf("placement after refund: %v", err)
	}
}

func TestSim_AgentPathsChainFromPosition(t *testing.T) {
	ts := NewTestSim(WithCells(
		"X##",
		"# #",
		"##>",
	))
	if tick := ts.RunUntil(func(s *Sim) bool {
		return s.Population() == 1 && s.agents[0].hasPath
	}, 600); tick == -1 {
		t.Fatal("agent never got a path")
	}
	paths := ts.Sim.AgentPaths()
	chain, ok := paths[ts.Sim.agents[0].id]
	if !ok || len(chain) < 2 {
		t.Fatalf("expected a path chain, got %v", paths)
	}
	if !chain[0].Eq(ts.Sim.agents[0].pos) {
		t.Fatalf("chain should start at the agent: %v vs %v", chain[0], ts.Sim.agents[0].pos)
	}
	if !chain[len(chain)-1].Eq(ts.Sim.Level().GoalPoint()) {
		t.Fatalf("chain should end at the goal: %v", chain[len(chain)-1])
	}
}

func TestSim_PortalLevelFullCycle(t *testing.T) {
	ts := NewTestSim(WithCells(
		"X##I##>",
		"#     #",
		"###O###",
	), WithSpawnInterval(1.0))
	if tick := ts.RunUntil(func(s *Sim) bool { return s.Delivered() >= 1 }, 8000); tick == -1 {
		t.Fatal("agent never completed the gated loop")
	}
	if ts.Sim.Lost() != 0 {
		t.Fatalf("lost agents on a collision-free run: %d", ts.Sim.Lost())
	}
}
