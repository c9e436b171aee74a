// Command headless-report runs scripted arena scenarios without a window
// and prints a phase/event report from the simulation log. It exists to
// make behaviour tuning reviewable: run it before and after a change and
// diff the output.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ashkedar/gridrush/internal/sim"
)

// timedAction is one scripted obstacle edit during a run.
type timedAction struct {
	tick  int
	place bool
	cell  sim.CellCoord
}

// scenarioDef is a named fixture plus its obstacle script.
type scenarioDef struct {
	name    string
	opts    []sim.SimOption
	actions []timedAction
}

var scenarios = []scenarioDef{
	{
		name: "open-run",
		opts: []sim.SimOption{
			sim.WithCells(
				"X####",
				"#####",
				"#####",
				"#####",
				"####>",
			),
			sim.WithPopulationCap(3),
			sim.WithSpawnInterval(1.0),
			sim.WithTreasures(10),
		},
	},
	{
		name: "gate-run",
		opts: []sim.SimOption{
			sim.WithCells(
				"X##I##>",
				"#     #",
				"###O###",
			),
			sim.WithPopulationCap(3),
			sim.WithSpawnInterval(1.5),
			sim.WithTreasures(10),
		},
	},
	{
		name: "blockade",
		opts: []sim.SimOption{
			sim.WithCells(
				"X###>",
			),
			sim.WithPopulationCap(3),
			sim.WithSpawnInterval(1.0),
			sim.WithTreasures(10),
		},
		actions: []timedAction{
			{tick: 300, place: true, cell: sim.CellCoord{Col: 2, Row: 0}},
			{tick: 900, place: false, cell: sim.CellCoord{Col: 2, Row: 0}},
		},
	},
}

type runStats struct {
	scenario string
	ticks    int

	firstSpawnTick    int
	firstDeliveryTick int
	firstBlockedTick  int

	spawns          int
	delivered       int
	lost            int
	assignFailures  int
	replanFailures  int
	parkedEvents    int
	blockedEpisodes int
	rebuilds        int

	finalStatus     sim.PathStatus
	finalPopulation int
}

func main() {
	var ticks int
	var scenario string

	flag.IntVar(&ticks, "ticks", 3600, "ticks per scenario (60 per second)")
	flag.StringVar(&scenario, "scenario", "all", "scenario name, or all")
	flag.Parse()

	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		os.Exit(1)
	}
	selected := make([]scenarioDef, 0, len(scenarios))
	for _, sc := range scenarios {
		if scenario == "all" || scenario == sc.name {
			selected = append(selected, sc)
		}
	}
	if len(selected) == 0 {
		fmt.Printf("error: unknown scenario %q (supported:", scenario)
		for _, sc := range scenarios {
			fmt.Printf(" %s", sc.name)
		}
		fmt.Println(", all)")
		os.Exit(1)
	}

	fmt.Printf("=== Arena Headless Report ===\n")
	fmt.Printf("ticks=%d scenarios=%d\n\n", ticks, len(selected))

	all := make([]runStats, 0, len(selected))
	for _, sc := range selected {
		stats := runScenario(sc, ticks)
		all = append(all, stats)
		printRun(stats)
	}
	printAggregate(all)
}

func runScenario(sc scenarioDef, ticks int) runStats {
	ts := sim.NewTestSim(sc.opts...)

	next := 0
	run := 0
	for run < ticks {
		step := ticks - run
		if next < len(sc.actions) && sc.actions[next].tick-run < step {
			step = sc.actions[next].tick - run
		}
		if step > 0 {
			ts.RunTicks(step)
			run += step
		}
		for next < len(sc.actions) && sc.actions[next].tick <= run {
			a := sc.actions[next]
			var err error
			if a.place {
				err = ts.Sim.PlaceObstacle(a.cell)
			} else {
				err = ts.Sim.RemoveObstacle(a.cell)
			}
			if err != nil {
				fmt.Printf("warning: %s action at tick %d: %v\n", sc.name, a.tick, err)
			}
			next++
		}
	}

	entries := ts.SimLog.Entries()
	return runStats{
		scenario:          sc.name,
		ticks:             ticks,
		firstSpawnTick:    firstTick(entries, "spawn", "spawned"),
		firstDeliveryTick: firstTick(entries, "agent", "delivered"),
		firstBlockedTick:  firstTickValue(entries, "path", "status", "blocked"),
		spawns:            len(ts.SimLog.Filter("spawn", "spawned")),
		delivered:         ts.Sim.Delivered(),
		lost:              ts.Sim.Lost(),
		assignFailures:    len(ts.SimLog.Filter("path", "assign_failed")),
		replanFailures:    len(ts.SimLog.Filter("path", "replan_failed")),
		parkedEvents:      len(ts.SimLog.Filter("path", "parked")),
		blockedEpisodes:   countStatus(entries, "blocked"),
		rebuilds:          len(ts.SimLog.Filter("surface", "rebuilt")),
		finalStatus:       ts.Sim.Status(),
		finalPopulation:   ts.Sim.Population(),
	}
}

func firstTick(entries []sim.SimLogEntry, category, key string) int {
	for _, e := range entries {
		if e.Category == category && e.Key == key {
			return e.Tick
		}
	}
	return -1
}

func firstTickValue(entries []sim.SimLogEntry, category, key, value string) int {
	for _, e := range entries {
		if e.Category == category && e.Key == key && e.Value == value {
			return e.Tick
		}
	}
	return -1
}

func countStatus(entries []sim.SimLogEntry, value string) int {
	n := 0
	for _, e := range entries {
		if e.Category == "path" && e.Key == "status" && e.Value == value {
			n++
		}
	}
	return n
}

func printRun(rs runStats) {
	fmt.Printf("--- Scenario %s (%d ticks) ---\n", rs.scenario, rs.ticks)
	fmt.Printf("phase_markers: first_spawn=%d first_delivery=%d first_blocked=%d\n",
		rs.firstSpawnTick, rs.firstDeliveryTick, rs.firstBlockedTick)
	fmt.Printf("totals: spawns=%d delivered=%d lost=%d\n", rs.spawns, rs.delivered, rs.lost)
	fmt.Printf("planning: assign_failed=%d replan_failed=%d parked=%d blocked_episodes=%d rebuilds=%d\n",
		rs.assignFailures, rs.replanFailures, rs.parkedEvents, rs.blockedEpisodes, rs.rebuilds)
	fmt.Printf("final: status=%s population=%d\n\n", rs.finalStatus, rs.finalPopulation)
}

func printAggregate(all []runStats) {
	totalSpawns := 0
	totalDelivered := 0
	totalLost := 0
	totalParked := 0
	totalBlocked := 0
	for _, rs := range all {
		totalSpawns += rs.spawns
		totalDelivered += rs.delivered
		totalLost += rs.lost
		totalParked += rs.parkedEvents
		totalBlocked += rs.blockedEpisodes
	}
	fmt.Println("=== Aggregate ===")
	fmt.Printf("scenarios=%d spawns=%d delivered=%d lost=%d parked=%d blocked_episodes=%d\n",
		len(all), totalSpawns, totalDelivered, totalLost, totalParked, totalBlocked)
}
