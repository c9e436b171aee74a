package sim

import (
	"fmt"
	"math"
)

// cellPitch is the world-unit width of one grid cell. Cell (c,r) is centred
// at (c*cellPitch, r*cellPitch); its corners sit at ±cellPitch/2 from there.
const cellPitch = 4.0

// CellKind is the tile type of one cell in the level layout.
type CellKind uint8

const (
	CellEmpty CellKind = iota // void, not traversable
	CellFloor
	CellSpawn
	CellGoal
	CellPortalIn
	CellPortalOut
)

func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "empty"
	case CellFloor:
		return "floor"
	case CellSpawn:
		return "spawn"
	case CellGoal:
		return "goal"
	case CellPortalIn:
		return "portal-in"
	case CellPortalOut:
		return "portal-out"
	default:
		return "unknown"
	}
}

// Facing is the orientation of the goal cell's prop.
type Facing uint8

const (
	FacingNorth Facing = iota
	FacingEast
	FacingSouth
	FacingWest
)

func (f Facing) String() string {
	switch f {
	case FacingNorth:
		return "north"
	case FacingEast:
		return "east"
	case FacingSouth:
		return "south"
	case FacingWest:
		return "west"
	default:
		return "unknown"
	}
}

// Cell is one tile of the level layout. Facing is meaningful only for
// CellGoal and is zero otherwise.
type Cell struct {
	Kind   CellKind
	Facing Facing
}

// CellCoord addresses a cell by column and row.
type CellCoord struct {
	Col, Row int
}

// Mask is the 9-bit occupancy summary of a cell and its 8 neighbours.
// A bit is set iff that cell is non-empty. The bit layout matches the
// corner-offset table in surface.go and never changes after level load.
type Mask uint16

const (
	MaskCenter      Mask = 1 << iota // 0b000000001
	MaskTop                          // 0b000000010
	MaskBottom                       // 0b000000100
	MaskLeft                         // 0b000001000
	MaskRight                        // 0b000010000
	MaskTopLeft                      // 0b000100000
	MaskTopRight                     // 0b001000000
	MaskBottomLeft                   // 0b010000000
	MaskBottomRight                  // 0b100000000
)

// Has reports whether all bits in m are set.
func (k Mask) Has(m Mask) bool { return k&m == m }

// LevelConfig carries the per-level tuning that is not part of the tile
// layout itself.
type LevelConfig struct {
	PopulationCap int     // max live agents
	SpawnInterval float64 // seconds between spawns once running
	Message       string  // intro message; delays the first spawn when set
	Treasures     int     // deliveries needed to win (0 = endless)
	LostBudget    int     // losses that end the level (0 = no limit)
	Obstacles     int     // placeable obstacle budget (negative = unlimited)
}

// Level is the parsed, immutable level layout plus its occupancy masks.
type Level struct {
	cells      [][]Cell
	masks      [][]Mask
	spawn      CellCoord
	goal       CellCoord
	goalFacing Facing
	cfg        LevelConfig
}

// NewLevel validates the layout, computes occupancy masks and locates the
// spawn and goal cells. The cell grid must be rectangular and contain
// exactly one spawn and one goal.
func NewLevel(cells [][]Cell, cfg LevelConfig) (*Level, error) {
	if len(cells) == 0 || len(cells[0]) == 0 {
		return nil, fmt.Errorf("level: empty cell grid")
	}
	cols := len(cells[0])
	lv := &Level{cells: cells, cfg: cfg, spawn: CellCoord{-1, -1}, goal: CellCoord{-1, -1}}
	for r, row := range cells {
		if len(row) != cols {
			return nil, fmt.Errorf("level: ragged row %d (%d cells, want %d)", r, len(row), cols)
		}
		for c, cell := range row {
			switch cell.Kind {
			case CellSpawn:
				if lv.spawn.Col >= 0 {
					return nil, fmt.Errorf("level: multiple spawn cells")
				}
				lv.spawn = CellCoord{c, r}
			case CellGoal:
				if lv.goal.Col >= 0 {
					return nil, fmt.Errorf("level: multiple goal cells")
				}
				lv.goal = CellCoord{c, r}
				lv.goalFacing = cell.Facing
			}
		}
	}
	if lv.spawn.Col < 0 {
		return nil, fmt.Errorf("level: no spawn cell")
	}
	if lv.goal.Col < 0 {
		return nil, fmt.Errorf("level: no goal cell")
	}
	lv.masks = computeMasks(cells)
	return lv, nil
}

// computeMasks builds the per-cell occupancy masks from the layout.
func computeMasks(cells [][]Cell) [][]Mask {
	rows := len(cells)
	cols := len(cells[0])
	occupied := func(c, r int) bool {
		if r < 0 || r >= rows || c < 0 || c >= cols {
			return false
		}
		return cells[r][c].Kind != CellEmpty
	}
	masks := make([][]Mask, rows)
	for r := 0; r < rows; r++ {
		masks[r] = make([]Mask, cols)
		for c := 0; c < cols; c++ {
			var m Mask
			if occupied(c, r) {
				m |= MaskCenter
			}
			if occupied(c, r-1) {
				m |= MaskTop
			}
			if occupied(c, r+1) {
				m |= MaskBottom
			}
			if occupied(c-1, r) {
				m |= MaskLeft
			}
			if occupied(c+1, r) {
				m |= MaskRight
			}
			if occupied(c-1, r-1) {
				m |= MaskTopLeft
			}
			if occupied(c+1, r-1) {
				m |= MaskTopRight
			}
			if occupied(c-1, r+1) {
				m |= MaskBottomLeft
			}
			if occupied(c+1, r+1) {
				m |= MaskBottomRight
			}
			masks[r][c] = m
		}
	}
	return masks
}

func (lv *Level) Cols() int { return len(lv.cells[0]) }
func (lv *Level) Rows() int { return len(lv.cells) }

// Cell returns the cell at (c,r). Out-of-range coordinates read as empty.
func (lv *Level) Cell(c, r int) Cell {
	if r < 0 || r >= lv.Rows() || c < 0 || c >= lv.Cols() {
		return Cell{}
	}
	return lv.cells[r][c]
}

// Mask returns the occupancy mask at (c,r). Out-of-range reads as zero.
func (lv *Level) Mask(c, r int) Mask {
	if r < 0 || r >= lv.Rows() || c < 0 || c >= lv.Cols() {
		return 0
	}
	return lv.masks[r][c]
}

func (lv *Level) Spawn() CellCoord    { return lv.spawn }
func (lv *Level) Goal() CellCoord     { return lv.goal }
func (lv *Level) GoalFacing() Facing  { return lv.goalFacing }
func (lv *Level) Config() LevelConfig { return lv.cfg }

// SpawnPoint is the world-space centre of the spawn cell.
func (lv *Level) SpawnPoint() Vec2 { return CellCenter(lv.spawn) }

// GoalPoint is the world-space centre of the goal cell.
func (lv *Level) GoalPoint() Vec2 { return CellCenter(lv.goal) }

// CellCenter converts a cell coordinate to its world-space centre.
func CellCenter(cc CellCoord) Vec2 {
	return Vec2{float64(cc.Col) * cellPitch, float64(cc.Row) * cellPitch}
}

// WorldToCell converts a world position to the cell containing it.
func WorldToCell(p Vec2) CellCoord {
	return CellCoord{
		Col: int(math.Floor((p.X + cellPitch/2) / cellPitch)),
		Row: int(math.Floor((p.Y + cellPitch/2) / cellPitch)),
	}
}
