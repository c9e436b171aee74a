package sim

import "fmt"

// simTickDT is the fixed tick length used by the harness (60 Hz).
const simTickDT = 1.0 / 60.0

// TestSim is a headless simulation harness used by tests and the headless
// report command. It owns a Sim built from ASCII fixture rows and advances
// it at a fixed 60 Hz tick.
type TestSim struct {
	Sim    *Sim
	SimLog *SimLog

	rows    []string
	cfg     LevelConfig
	verbose bool
}

// SimOption is a builder function applied to a TestSim during construction.
type SimOption func(*TestSim)

// WithCells sets the level layout from ASCII fixture rows (see
// CellsFromStrings for the legend).
func WithCells(rows ...string) SimOption {
	return func(ts *TestSim) { ts.rows = rows }
}

// WithPopulationCap sets the max live agent count.
func WithPopulationCap(n int) SimOption {
	return func(ts *TestSim) { ts.cfg.PopulationCap = n }
}

// WithSpawnInterval sets the seconds between spawns.
func WithSpawnInterval(sec float64) SimOption {
	return func(ts *TestSim) { ts.cfg.SpawnInterval = sec }
}

// WithMessage sets the level intro message (delays the first spawn).
func WithMessage(msg string) SimOption {
	return func(ts *TestSim) { ts.cfg.Message = msg }
}

// WithTreasures sets the delivery target for the win condition.
func WithTreasures(n int) SimOption {
	return func(ts *TestSim) { ts.cfg.Treasures = n }
}

// WithLostBudget sets the loss count that fails the level.
func WithLostBudget(n int) SimOption {
	return func(ts *TestSim) { ts.cfg.LostBudget = n }
}

// WithObstacleBudget sets the placeable obstacle count.
func WithObstacleBudget(n int) SimOption {
	return func(ts *TestSim) { ts.cfg.Obstacles = n }
}

// WithVerbose enables per-tick verbose logging.
func WithVerbose(v bool) SimOption {
	return func(ts *TestSim) { ts.verbose = v }
}

// NewTestSim constructs a harness around a fresh Sim. The default level is
// a 5x5 open floor with the spawn at the top-left and the goal at the
// bottom-right, one agent, fast spawn, unlimited obstacles. A bad fixture
// is a programming error and panics.
func NewTestSim(opts ...SimOption) *TestSim {
	ts := &TestSim{
		rows: []string{
			"X####",
			"#####",
			"#####",
			"#####",
			"####>",
		},
		cfg: LevelConfig{
			PopulationCap: 1,
			SpawnInterval: 1.0,
			Obstacles:     -1,
		},
	}
	for _, o := range opts {
		o(ts)
	}
	cells, err := CellsFromStrings(ts.rows)
	if err != nil {
		panic(fmt.Sprintf("test harness: %v", err))
	}
	level, err := NewLevel(cells, ts.cfg)
	if err != nil {
		panic(fmt.Sprintf("test harness: %v", err))
	}
	ts.SimLog = NewSimLog(ts.verbose)
	s, err := NewSim(level, ts.SimLog)
	if err != nil {
		panic(fmt.Sprintf("test harness: %v", err))
	}
	ts.Sim = s
	return ts
}

// RunTicks advances the simulation n ticks at 60 Hz.
func (ts *TestSim) RunTicks(n int) {
	for i := 0; i < n; i++ {
		ts.Sim.Update(simTickDT)
	}
}

// RunUntil advances the simulation up to maxTicks, stopping early if
// predicate returns true. Returns the tick at which the predicate was
// satisfied, or -1.
func (ts *TestSim) RunUntil(predicate func(*Sim) bool, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		ts.Sim.Update(simTickDT)
		if predicate(ts.Sim) {
			return ts.Sim.Tick()
		}
	}
	return -1
}

// CellsFromStrings builds a cell grid from ASCII fixture rows. This is a
// test/dev convenience, not a level file format. Legend:
//
//	'X' spawn   '#' floor   ' ' empty   'I' portal-in   'O' portal-out
//	'<' '^' '>' 'v' goal facing west/north/east/south
//
// Short rows are padded with empty cells to the longest row.
func CellsFromStrings(rows []string) ([][]Cell, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows")
	}
	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	cells := make([][]Cell, len(rows))
	for r, row := range rows {
		cells[r] = make([]Cell, cols)
		for c, ch := range row {
			switch ch {
			case 'X':
				cells[r][c] = Cell{Kind: CellSpawn}
			case '#':
				cells[r][c] = Cell{Kind: CellFloor}
			case '<':
				cells[r][c] = Cell{Kind: CellGoal, Facing: FacingWest}
			case '^':
				cells[r][c] = Cell{Kind: CellGoal, Facing: FacingNorth}
			case '>':
				cells[r][c] = Cell{Kind: CellGoal, Facing: FacingEast}
			case 'v':
				cells[r][c] = Cell{Kind: CellGoal, Facing: FacingSouth}
			case 'I':
				cells[r][c] = Cell{Kind: CellPortalIn}
			case 'O':
				cells[r][c] = Cell{Kind: CellPortalOut}
			case ' ':
				cells[r][c] = Cell{Kind: CellEmpty}
			default:
				return nil, fmt.Errorf("row %d: unknown cell %q", r, ch)
			}
		}
	}
	return cells, nil
}
