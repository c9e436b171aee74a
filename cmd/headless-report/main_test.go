package main

import (
	"testing"

	"github.com/ashkedar/gridrush/internal/sim"
)

func TestFirstTickHelpers(t *testing.T) {
	entries := []sim.SimLogEntry{
		{Tick: 10, Category: "spawn", Key: "spawned"},
		{Tick: 20, Category: "path", Key: "status", Value: "blocked"},
		{Tick: 25, Category: "path", Key: "status", Value: "open"},
		{Tick: 30, Category: "path", Key: "status", Value: "blocked"},
		{Tick: 40, Category: "agent", Key: "delivered"},
	}

	if got := firstTick(entries, "spawn", "spawned"); got != 10 {
		t.Fatalf("firstTick spawn: got %d, want 10", got)
	}
	if got := firstTick(entries, "agent", "goal_reached"); got != -1 {
		t.Fatalf("firstTick missing key: got %d, want -1", got)
	}
	if got := firstTickValue(entries, "path", "status", "blocked"); got != 20 {
		t.Fatalf("firstTickValue blocked: got %d, want 20", got)
	}
	if got := countStatus(entries, "blocked"); got != 2 {
		t.Fatalf("countStatus blocked: got %d, want 2", got)
	}
}

func TestRunScenario_ScriptedObstacle(t *testing.T) {
	sc := scenarioDef{
		name: "test-blockade",
		opts: []sim.SimOption{
			sim.WithCells("X###>"),
			sim.WithPopulationCap(3),
			sim.WithSpawnInterval(0.5),
		},
		actions: []timedAction{
			{tick: 120, place: true, cell: sim.CellCoord{Col: 2, Row: 0}},
			{tick: 600, place: false, cell: sim.CellCoord{Col: 2, Row: 0}},
		},
	}

	stats := runScenario(sc, 1200)
	if stats.spawns == 0 {
		t.Fatal("expected at least one spawn")
	}
	if stats.rebuilds != 2 {
		t.Fatalf("expected 2 surface rebuilds, got %d", stats.rebuilds)
	}
	if stats.blockedEpisodes == 0 {
		t.Fatal("expected the scripted obstacle to block the level at least once")
	}
	if stats.finalStatus != sim.PathOpen {
		t.Fatalf("expected the level to re-open after obstacle removal, got %s", stats.finalStatus)
	}
	if stats.lost != 0 {
		t.Fatalf("no collisions are fed in headless runs; got %d lost", stats.lost)
	}
}
