// Package view is the interactive ebiten front-end for the arena
// simulation: it renders the grid, agents and path overlays, and turns
// mouse clicks into obstacle placements.
package view

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/ashkedar/gridrush/internal/sim"
)

const (
	windowW = 1280
	windowH = 720

	// pxPerUnit is the world-to-screen scale. One cell is 4 world units,
	// so 12 px/unit gives 48 px cells.
	pxPerUnit = 12.0
	cellPx    = 4 * pxPerUnit

	borderPx = 24

	tickDT = 1.0 / 60.0

	// agentRadius is the physical radius used for both drawing and the
	// circle-overlap contact test, in world units.
	agentRadius = 0.9

	flashSeconds = 2.5
)

// levelDef is one built-in level: fixture rows plus tuning.
type levelDef struct {
	name string
	rows []string
	cfg  sim.LevelConfig
}

var levels = []levelDef{
	{
		name: "meadow",
		rows: []string{
			"X######",
			"#######",
			"#######",
			"#######",
			"#######",
			"######v",
		},
		cfg: sim.LevelConfig{
			PopulationCap: 4,
			SpawnInterval: 2.0,
			Treasures:     8,
			LostBudget:    5,
			Obstacles:     6,
		},
	},
	{
		name: "gauntlet",
		rows: []string{
			"X##I##>",
			"#     #",
			"###O###",
		},
		cfg: sim.LevelConfig{
			PopulationCap: 3,
			SpawnInterval: 2.5,
			Message:       "Mind the gates: out is not in.",
			Treasures:     6,
			LostBudget:    4,
			Obstacles:     4,
		},
	},
	{
		name: "quarry",
		rows: []string{
			"X#####",
			"##  ##",
			"##  ##",
			"#####v",
		},
		cfg: sim.LevelConfig{
			PopulationCap: 5,
			SpawnInterval: 1.5,
			Treasures:     10,
			LostBudget:    6,
			Obstacles:     8,
		},
	},
}

// View is the ebiten.Game for the arena. It owns the live Sim and
// restarts it on level change.
type View struct {
	s   *sim.Sim
	log *sim.SimLog

	levelIdx int
	paused   bool

	offX, offY int // pixel offset to the grid's top-left

	flash      string
	flashTimer float64

	prevKeys   map[ebiten.Key]bool
	prevMouseL bool
	prevMouseR bool
}

// New builds the viewer on the first built-in level.
func New() *View {
	v := &View{prevKeys: make(map[ebiten.Key]bool)}
	v.loadLevel(0)
	return v
}

func (v *View) loadLevel(idx int) {
	def := levels[idx]
	cells, err := sim.CellsFromStrings(def.rows)
	if err != nil {
		panic(fmt.Sprintf("built-in level %q: %v", def.name, err))
	}
	level, err := sim.NewLevel(cells, def.cfg)
	if err != nil {
		panic(fmt.Sprintf("built-in level %q: %v", def.name, err))
	}
	v.log = sim.NewSimLog(false)
	s, err := sim.NewSim(level, v.log)
	if err != nil {
		panic(fmt.Sprintf("built-in level %q: %v", def.name, err))
	}
	v.s = s
	v.levelIdx = idx
	v.paused = false
	v.offX = (windowW - 320 - level.Cols()*cellPx) / 2
	v.offY = (windowH - level.Rows()*cellPx) / 2
	if v.offX < borderPx {
		v.offX = borderPx
	}
	if v.offY < borderPx {
		v.offY = borderPx
	}
	if msg := def.cfg.Message; msg != "" {
		v.setFlash(msg)
	}
}

func (v *View) setFlash(msg string) {
	v.flash = msg
	v.flashTimer = flashSeconds
}

// Update advances the sim one fixed tick and handles input. Ebiten calls
// this at 60 Hz, matching the sim tick rate.
func (v *View) Update() error {
	v.handleKeys()
	v.handleMouse()

	if v.flashTimer > 0 {
		v.flashTimer -= tickDT
	}

	if v.paused || v.s.Won() || v.s.Failed() {
		return nil
	}
	v.s.SubmitContacts(v.detectContacts())
	v.s.Update(tickDT)
	for _, e := range v.s.Events() {
		switch e.Kind {
		case sim.EventDelivered:
			v.setFlash("treasure delivered")
		case sim.EventAgentLost:
			v.setFlash("runner lost")
		case sim.EventAgentDestroyedByHazard:
			v.setFlash("runner destroyed")
		}
	}
	return nil
}

func (v *View) handleKeys() {
	currentKeys := make(map[ebiten.Key]bool)
	press := func(k ebiten.Key) bool {
		currentKeys[k] = ebiten.IsKeyPressed(k)
		return currentKeys[k] && !v.prevKeys[k]
	}

	if press(ebiten.KeyTab) {
		v.loadLevel((v.levelIdx + 1) % len(levels))
	}
	if press(ebiten.KeyR) {
		v.loadLevel(v.levelIdx)
	}
	if press(ebiten.KeySpace) {
		v.paused = !v.paused
	}
	if press(ebiten.KeyC) {
		if err := clipboard.WriteAll(v.report()); err != nil {
			v.setFlash("clipboard: " + err.Error())
		} else {
			v.setFlash("report copied to clipboard")
		}
	}
	v.prevKeys = currentKeys
}

func (v *View) handleMouse() {
	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	right := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	defer func() { v.prevMouseL, v.prevMouseR = left, right }()

	if (!left || v.prevMouseL) && (!right || v.prevMouseR) {
		return
	}
	cc, ok := v.cellAtCursor()
	if !ok {
		return
	}
	var err error
	if left && !v.prevMouseL {
		err = v.s.PlaceObstacle(cc)
	} else {
		err = v.s.RemoveObstacle(cc)
	}
	if err != nil {
		v.setFlash(err.Error())
	}
}

func (v *View) cellAtCursor() (sim.CellCoord, bool) {
	mx, my := ebiten.CursorPosition()
	col := (mx - v.offX) / cellPx
	row := (my - v.offY) / cellPx
	if mx < v.offX || my < v.offY || col >= v.s.Level().Cols() || row >= v.s.Level().Rows() {
		return sim.CellCoord{}, false
	}
	return sim.CellCoord{Col: col, Row: row}, true
}

// detectContacts runs the circle-overlap test over all live agent pairs.
// Verdicts are the sim's business; this just reports touches.
func (v *View) detectContacts() []sim.Contact {
	agents := v.s.Agents()
	var out []sim.Contact
	for i := 0; i < len(agents); i++ {
		for j := i + 1; j < len(agents); j++ {
			if agents[i].Pos.Dist(agents[j].Pos) < 2*agentRadius {
				out = append(out, sim.Contact{
					Agent: agents[i].ID,
					Other: agents[j].ID,
					Kind:  sim.ContactAgent,
				})
			}
		}
	}
	return out
}

// report formats the current run for the clipboard: counters plus the
// last stretch of the event log.
func (v *View) report() string {
	var b strings.Builder
	def := levels[v.levelIdx]
	fmt.Fprintf(&b, "=== Arena Report: %s ===\n", def.name)
	fmt.Fprintf(&b, "tick=%d status=%s delivered=%d lost=%d population=%d obstacles_left=%d\n",
		v.s.Tick(), v.s.Status(), v.s.Delivered(), v.s.Lost(), v.s.Population(), v.s.ObstaclesLeft())
	fmt.Fprintf(&b, "won=%v failed=%v\n\n", v.s.Won(), v.s.Failed())
	for _, e := range v.log.Tail(40) {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Layout implements ebiten.Game with a fixed logical resolution.
func (v *View) Layout(outsideWidth, outsideHeight int) (int, int) {
	return windowW, windowH
}
