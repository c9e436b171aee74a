package sim

import (
	"math"
	"testing"
)

func TestAgent_SetPathOrder(t *testing.T) {
	a := newAgent(1, Vec2{0, 0})
	wps := []Vec2{{0, 0}, {4, 0}, {4, 4}, {8, 4}}
	a.setPath(wps)

	if !a.hasPath {
		t.Fatal("setPath should mark the agent pathed")
	}
	if !a.next.Eq(Vec2{4, 0}) {
		t.Fatalf("first target: got %v, want (4,0)", a.next)
	}
	a.pos = a.next
	if !a.popWaypoint() {
		t.Fatal("expected a pop at the waypoint")
	}
	if !a.next.Eq(Vec2{4, 4}) {
		t.Fatalf("second target: got %v, want (4,4)", a.next)
	}
	a.pos = a.next
	if !a.popWaypoint() {
		t.Fatal("expected a pop at the waypoint")
	}
	if !a.next.Eq(Vec2{8, 4}) {
		t.Fatalf("final target: got %v, want (8,4)", a.next)
	}
	// The terminal waypoint is never popped; arrival consumes it.
	a.pos = a.next
	if a.popWaypoint() {
		t.Fatal("terminal waypoint must not pop")
	}
}

func TestAgent_SetPathTwoPoints(t *testing.T) {
	a := newAgent(1, Vec2{0, 0})
	a.setPath([]Vec2{{0, 0}, {8, 0}})
	if !a.next.Eq(Vec2{8, 0}) || len(a.stack) != 0 {
		t.Fatalf("two-point path: next=%v stack=%v", a.next, a.stack)
	}
}

func TestAgent_SetPathSinglePoint(t *testing.T) {
	a := newAgent(1, Vec2{0, 0})
	a.stack = append(a.stack, Vec2{5, 5}) // stale entry from a prior path
	a.setPath([]Vec2{{1, 1}})
	if !a.hasPath {
		t.Fatal("single-point path should still be a path")
	}
	if !a.next.Eq(Vec2{1, 1}) || len(a.stack) != 0 {
		t.Fatalf("single-point path: next=%v stack=%v", a.next, a.stack)
	}
	a.pos = a.next
	if a.popWaypoint() {
		t.Fatal("terminal waypoint must not pop")
	}
}

func TestAgent_SetPathEmptyClears(t *testing.T) {
	a := newAgent(1, Vec2{0, 0})
	a.setPath([]Vec2{{0, 0}, {4, 0}, {8, 0}})
	a.setPath(nil)
	if a.hasPath || len(a.stack) != 0 {
		t.Fatalf("empty path should clear: hasPath=%v stack=%v", a.hasPath, a.stack)
	}
}

func TestAgent_SteerReachesWaypoint(t *testing.T) {
	a := newAgent(1, Vec2{0, 0})
	a.setPath([]Vec2{{0, 0}, {20, 0}})

	const dt = 1.0 / 60.0
	for i := 0; i < 60*10; i++ {
		a.steer(dt)
		if speed := a.vel.Len(); speed > maxSpeed+1e-9 {
			t.Fatalf("tick %d: speed %.3f exceeds max %.1f", i, speed, maxSpeed)
		}
		if a.pos.Dist(Vec2{20, 0}) < goalRadius {
			return
		}
	}
	t.Fatalf("agent never reached the waypoint, stopped at %v", a.pos)
}

func TestAgent_SteerDampsOvershoot(t *testing.T) {
	a := newAgent(1, Vec2{0, 0})
	a.setPath([]Vec2{{0, 0}, {0.5, 0}})
	a.vel = Vec2{maxSpeed, 0}

	const dt = 1.0 / 60.0
	a.steer(dt)
	if a.vel.Len() >= maxSpeed {
		t.Fatalf("overshoot damping did not engage: speed %.3f", a.vel.Len())
	}
}

func TestAgent_HeadingFollowsVelocity(t *testing.T) {
	a := newAgent(1, Vec2{0, 0})
	a.setPath([]Vec2{{0, 0}, {0, 10}})

	const dt = 1.0 / 60.0
	for i := 0; i < 30; i++ {
		a.steer(dt)
	}
	if math.Abs(a.heading-math.Pi/2) > 0.05 {
		t.Fatalf("heading: got %.3f, want ~%.3f", a.heading, math.Pi/2)
	}

	// Heading is retained once the agent stops.
	prev := a.heading
	a.clearPath()
	a.vel = Vec2{}
	a.steer(dt)
	if a.heading != prev {
		t.Fatalf("heading changed while stopped: %.3f -> %.3f", prev, a.heading)
	}
}

func TestAgent_ArrivalRadiiByState(t *testing.T) {
	a := newAgent(1, Vec2{0, 0})
	a.setPath([]Vec2{{0, 0}, {1.2, 0}})

	if a.arrived() {
		t.Fatal("seeking agent 1.2 away should not have arrived (radius 1.0)")
	}
	a.state = StateReturning
	if !a.arrived() {
		t.Fatal("returning agent 1.2 away should have arrived (radius 1.5)")
	}
}

func TestAgent_TargetByState(t *testing.T) {
	lv := mustLevel(t, "X#>")
	a := newAgent(1, lv.SpawnPoint())

	to, excl := a.target(lv)
	if !to.Eq(lv.GoalPoint()) || !excl.Has(LayerPortalOut) || excl.Has(LayerPortalIn) {
		t.Fatalf("seeking target: to=%v excl=%b", to, excl)
	}
	a.state = StateReturning
	to, excl = a.target(lv)
	if !to.Eq(lv.SpawnPoint()) || !excl.Has(LayerPortalIn) || excl.Has(LayerPortalOut) {
		t.Fatalf("returning target: to=%v excl=%b", to, excl)
	}
}
