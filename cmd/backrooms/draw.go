package main

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"backrooms.dev/internal/sim/world/terrain/chunk"
)

var (
	styleFloor   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(196, 180, 84))
	styleWall    = tcell.StyleDefault.Foreground(tcell.NewRGBColor(150, 130, 60))
	styleDecay   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(90, 110, 50))
	styleWater   = tcell.StyleDefault.Foreground(tcell.ColorSteelBlue)
	styleExit    = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	stylePlayer  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
	styleItem    = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleStatus  = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGray)
	styleMessage = tcell.StyleDefault.Foreground(tcell.ColorWhite)

	tierStyles = [...]tcell.Style{
		tcell.StyleDefault.Foreground(tcell.ColorGray),
		tcell.StyleDefault.Foreground(tcell.ColorOrange),
		tcell.StyleDefault.Foreground(tcell.ColorRed),
		tcell.StyleDefault.Foreground(tcell.ColorPurple).Bold(true),
	}
)

// glyph maps a base-layer tile, after the corruption overlay, to its terminal cell.
func glyph(t chunk.Tile) (rune, tcell.Style) {
	switch t {
	case chunk.Floor:
		return '.', styleFloor
	case chunk.FloorPuddle:
		return '~', styleWater
	case chunk.FloorCardboard:
		return '=', styleFloor
	case chunk.Wall:
		return '#', styleWall
	case chunk.WallCracked:
		return '%', styleWall
	case chunk.WallMouldy:
		return '#', styleDecay
	case chunk.WallHole:
		return 'O', styleWall
	case chunk.ExitStairs:
		return '>', styleExit
	default:
		return ' ', tcell.StyleDefault
	}
}

// dim darkens tiles whose ceiling light is broken or missing.
func dim(st tcell.Style, ceiling chunk.Tile, ok bool) tcell.Style {
	if ok && (ceiling == chunk.LightBroken || ceiling == chunk.CeilingHole) {
		return st.Dim(true)
	}
	return st
}

func tierStyle(tier int) tcell.Style {
	if tier < 0 || tier >= len(tierStyles) {
		return tierStyles[0]
	}
	return tierStyles[tier]
}

func (g *Game) draw() {
	g.screen.Clear()
	w, h := g.screen.Size()
	if g.loading {
		g.drawLoading(w, h)
		g.screen.Show()
		return
	}

	mapH := h - 2
	ox, oy := g.pos.X-w/2, g.pos.Y-mapH/2
	seed, corruption := g.sched.WorldSeed(), g.sched.Corruption(g.level)
	for sy := 0; sy < mapH; sy++ {
		for sx := 0; sx < w; sx++ {
			p := chunk.TilePos{X: ox + sx, Y: oy + sy}
			t, ok := g.sched.TileType(p, g.level)
			if !ok {
				continue
			}
			r, st := glyph(g.levels.Overlay(seed, g.level, p, t, corruption))
			ceil, cok := g.sched.CeilingType(p, g.level)
			if cok {
				ceil = g.levels.Overlay(seed, g.level, p, ceil, corruption)
			}
			st = dim(st, ceil, cok)
			if e := g.entityAt(p); e != nil {
				r, st = 'e', tierStyle(e.Tier)
			} else if it := g.itemAt(p); it != nil {
				r, st = '*', styleItem
			}
			g.screen.SetContent(sx, sy, r, nil, st)
		}
	}
	g.screen.SetContent(g.pos.X-ox, g.pos.Y-oy, '@', nil, stylePlayer)

	g.drawStatus(w, h)
	g.screen.Show()
}

func (g *Game) drawStatus(w, h int) {
	loaded, queued, inFlight := g.sched.Counts()
	name := fmt.Sprintf("Level %d", g.level)
	if l, ok := g.levels.Level(g.level); ok {
		name = l.Spec.Name
	}
	ck, _ := g.sched.PlayerChunk()
	line := fmt.Sprintf(" %s  turn %d  hp %d  loot %d  corruption %.2f  chunk (%d,%d)  loaded %d  queued %d  gen %d ",
		name, g.sched.Turn(), g.hp, g.loot, g.sched.Corruption(g.level), ck.X, ck.Y, loaded, queued, inFlight)
	if k, ok := g.sched.GeneratingNow(); ok {
		line += fmt.Sprintf(" gen (%d,%d)", k.X, k.Y)
	}
	if g.waiting {
		line += " ..."
	}
	putLine(g.screen, 0, h-2, w, line, styleStatus)
	if g.message != "" && time.Since(g.msgAt) < messageTTL {
		putLine(g.screen, 0, h-1, w, " "+g.message, styleMessage)
	}
}

func (g *Game) drawLoading(w, h int) {
	done, total := g.progress[0], g.progress[1]
	name := fmt.Sprintf("Level %d", g.level)
	if l, ok := g.levels.Level(g.level); ok {
		name = l.Spec.Name
	}
	title := fmt.Sprintf("Entering %s", name)
	putLine(g.screen, (w-len(title))/2, h/2-2, w, title, styleExit)

	barW := w / 2
	if barW < 10 {
		barW = 10
	}
	filled := 0
	if total > 0 {
		filled = done * barW / total
	}
	x0 := (w - barW) / 2
	for i := 0; i < barW; i++ {
		r := '-'
		if i < filled {
			r = '#'
		}
		g.screen.SetContent(x0+i, h/2, r, nil, styleFloor)
	}
	status := fmt.Sprintf("%d / %d chunks", done, total)
	putLine(g.screen, (w-len(status))/2, h/2+2, w, status, styleMessage)
}

func putLine(s tcell.Screen, x, y, w int, text string, st tcell.Style) {
	if x < 0 {
		x = 0
	}
	for _, r := range text {
		if x >= w {
			return
		}
		s.SetContent(x, y, r, nil, st)
		x++
	}
	for ; st == styleStatus && x < w; x++ {
		s.SetContent(x, y, ' ', nil, st)
	}
}
