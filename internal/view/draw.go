package view

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/ashkedar/gridrush/internal/sim"
)

var (
	bgColor       = color.RGBA{R: 16, G: 16, B: 22, A: 255}
	floorColor    = color.RGBA{R: 52, G: 54, B: 62, A: 255}
	spawnColor    = color.RGBA{R: 46, G: 96, B: 58, A: 255}
	goalColor     = color.RGBA{R: 150, G: 122, B: 40, A: 255}
	portalInCol   = color.RGBA{R: 48, G: 78, B: 130, A: 255}
	portalOutCol  = color.RGBA{R: 104, G: 56, B: 130, A: 255}
	obstacleColor = color.RGBA{R: 110, G: 40, B: 36, A: 255}
	gridLineCol   = color.RGBA{R: 30, G: 30, B: 38, A: 255}
	borderCol     = color.RGBA{R: 80, G: 84, B: 96, A: 255}

	seekingCol   = color.RGBA{R: 240, G: 214, B: 90, A: 255}
	returningCol = color.RGBA{R: 110, G: 220, B: 140, A: 255}
	pathCol      = color.RGBA{R: 200, G: 200, B: 220, A: 70}

	hudCol     = color.RGBA{R: 210, G: 214, B: 220, A: 255}
	blockedCol = color.RGBA{R: 235, G: 90, B: 80, A: 255}
	flashCol   = color.RGBA{R: 240, G: 230, B: 150, A: 255}
)

// worldToScreen maps a world point to pixels. Cell (0,0) is centred at
// world (0,0) with its top-left corner at world (-2,-2).
func (v *View) worldToScreen(p sim.Vec2) (float32, float32) {
	return float32(v.offX) + float32((p.X+2)*pxPerUnit),
		float32(v.offY) + float32((p.Y+2)*pxPerUnit)
}

// Draw implements ebiten.Game.
func (v *View) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	v.drawGrid(screen)
	v.drawPaths(screen)
	v.drawAgents(screen)
	v.drawHUD(screen)
}

func (v *View) drawGrid(screen *ebiten.Image) {
	lv := v.s.Level()
	gw := float32(lv.Cols() * cellPx)
	gh := float32(lv.Rows() * cellPx)
	ox := float32(v.offX)
	oy := float32(v.offY)

	vector.StrokeRect(screen, ox-2, oy-2, gw+4, gh+4, 2.0, borderCol, false)

	for r := 0; r < lv.Rows(); r++ {
		for c := 0; c < lv.Cols(); c++ {
			cell := lv.Cell(c, r)
			if cell.Kind == sim.CellEmpty {
				continue
			}
			x := ox + float32(c*cellPx)
			y := oy + float32(r*cellPx)
			var fill color.RGBA
			switch cell.Kind {
			case sim.CellSpawn:
				fill = spawnColor
			case sim.CellGoal:
				fill = goalColor
			case sim.CellPortalIn:
				fill = portalInCol
			case sim.CellPortalOut:
				fill = portalOutCol
			default:
				fill = floorColor
			}
			if v.s.Excluded(sim.CellCoord{Col: c, Row: r}) {
				fill = obstacleColor
			}
			vector.FillRect(screen, x, y, cellPx, cellPx, fill, false)
			vector.StrokeRect(screen, x, y, cellPx, cellPx, 1.0, gridLineCol, false)

			switch {
			case v.s.Excluded(sim.CellCoord{Col: c, Row: r}):
				vector.StrokeLine(screen, x+8, y+8, x+cellPx-8, y+cellPx-8, 2.0, bgColor, false)
				vector.StrokeLine(screen, x+cellPx-8, y+8, x+8, y+cellPx-8, 2.0, bgColor, false)
			case cell.Kind == sim.CellGoal:
				v.drawGoalNotch(screen, x, y, cell.Facing)
			case cell.Kind == sim.CellPortalIn:
				ebitenutil.DebugPrintAt(screen, "IN", int(x)+cellPx/2-6, int(y)+cellPx/2-8)
			case cell.Kind == sim.CellPortalOut:
				ebitenutil.DebugPrintAt(screen, "OUT", int(x)+cellPx/2-10, int(y)+cellPx/2-8)
			}
		}
	}
}

// drawGoalNotch marks the goal's facing edge.
func (v *View) drawGoalNotch(screen *ebiten.Image, x, y float32, f sim.Facing) {
	const t = 4.0
	switch f {
	case sim.FacingNorth:
		vector.FillRect(screen, x, y, cellPx, t, hudCol, false)
	case sim.FacingSouth:
		vector.FillRect(screen, x, y+cellPx-t, cellPx, t, hudCol, false)
	case sim.FacingWest:
		vector.FillRect(screen, x, y, t, cellPx, hudCol, false)
	case sim.FacingEast:
		vector.FillRect(screen, x+cellPx-t, y, t, cellPx, hudCol, false)
	}
}

func (v *View) drawPaths(screen *ebiten.Image) {
	for _, chain := range v.s.AgentPaths() {
		for i := 1; i < len(chain); i++ {
			x0, y0 := v.worldToScreen(chain[i-1])
			x1, y1 := v.worldToScreen(chain[i])
			vector.StrokeLine(screen, x0, y0, x1, y1, 1.5, pathCol, true)
		}
	}
}

func (v *View) drawAgents(screen *ebiten.Image) {
	r := float32(agentRadius * pxPerUnit)
	for _, a := range v.s.Agents() {
		sx, sy := v.worldToScreen(a.Pos)
		c := seekingCol
		if a.State == sim.StateReturning {
			c = returningCol
		}
		vector.FillCircle(screen, sx, sy, r, c, true)
		// Heading tick.
		hx := sx + r*1.4*float32(math.Cos(a.Heading))
		hy := sy + r*1.4*float32(math.Sin(a.Heading))
		vector.StrokeLine(screen, sx, sy, hx, hy, 2.0, bgColor, true)
	}
}

func (v *View) drawHUD(screen *ebiten.Image) {
	face := basicfont.Face7x13
	def := levels[v.levelIdx]

	title := fmt.Sprintf("gridrush — %s", def.name)
	text.Draw(screen, title, face, borderPx, borderPx, hudCol)

	statusCol := color.Color(hudCol)
	if v.s.Status() == sim.PathBlocked {
		statusCol = blockedCol
	}
	text.Draw(screen, fmt.Sprintf("status: %s", v.s.Status()), face, borderPx, borderPx+18, statusCol)

	cfg := v.s.Level().Config()
	stats := fmt.Sprintf("delivered %d/%d   lost %d/%d   runners %d/%d",
		v.s.Delivered(), cfg.Treasures, v.s.Lost(), cfg.LostBudget,
		v.s.Population(), cfg.PopulationCap)
	text.Draw(screen, stats, face, borderPx, borderPx+36, hudCol)
	text.Draw(screen, fmt.Sprintf("obstacles left: %d", v.s.ObstaclesLeft()), face, borderPx, borderPx+54, hudCol)

	switch {
	case v.s.Won():
		text.Draw(screen, "LEVEL CLEAR — R to restart, Tab for next", face, borderPx, windowH-borderPx, returningCol)
	case v.s.Failed():
		text.Draw(screen, "TOO MANY LOST — R to restart", face, borderPx, windowH-borderPx, blockedCol)
	case v.paused:
		text.Draw(screen, "PAUSED — Space to resume", face, borderPx, windowH-borderPx, hudCol)
	default:
		text.Draw(screen, "L-click: block cell  R-click: unblock  C: copy report", face, borderPx, windowH-borderPx, hudCol)
	}

	if v.flashTimer > 0 && v.flash != "" {
		text.Draw(screen, v.flash, face, borderPx, windowH-borderPx-18, flashCol)
	}

	// Event log tail on the right.
	logX := windowW - 320
	y := borderPx
	text.Draw(screen, "log", face, logX, y, hudCol)
	for _, e := range v.log.Tail(30) {
		y += 14
		ebitenutil.DebugPrintAt(screen, e.String(), logX, y)
	}
}
