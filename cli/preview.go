package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BertoldVdb/osdmenu-tools/osdpatch"
	"github.com/fatih/color"
	"github.com/inancgumus/screen"
)

const (
	previewColumns = 80
	previewCell    = 8
)

type PreviewCmd struct {
	Settings Settings `embed`

	Frames int `optional help:"Number of frames to draw." default:"300"`
	Hold   int `optional help:"Frames before the selection moves on." default:"30"`
	Rate   int `optional help:"Frames per second." default:"30"`
}

type previewCanvas struct {
	rows  [][]rune
	style [][]*color.Color
}

func newPreviewCanvas(height int) *previewCanvas {
	c := &previewCanvas{
		rows:  make([][]rune, height),
		style: make([][]*color.Color, height),
	}
	for i := range c.rows {
		c.rows[i] = []rune(strings.Repeat(" ", previewColumns))
		c.style[i] = make([]*color.Color, previewColumns)
	}
	return c
}

/* Alpha 0x80 is full intensity, anything dimmer is drawn faint */
func previewStyle(alpha int, selected bool) *color.Color {
	switch {
	case alpha <= 0:
		return nil
	case selected:
		return color.New(color.FgCyan, color.Bold)
	case alpha >= 0x60:
		return color.New(color.FgWhite)
	default:
		return color.New(color.Faint)
	}
}

func (c *previewCanvas) put(row, center int, text string, style *color.Color) {
	if style == nil || row < 0 || row >= len(c.rows) {
		return
	}

	r := []rune(text)
	col := center - len(r)/2
	for i, m := range r {
		if col+i < 0 || col+i >= previewColumns {
			continue
		}
		c.rows[row][col+i] = m
		c.style[row][col+i] = style
	}
}

func (c *previewCanvas) String() string {
	var b strings.Builder
	for i, row := range c.rows {
		for j, m := range row {
			if s := c.style[i][j]; s != nil {
				b.WriteString(s.Sprint(string(m)))
			} else {
				b.WriteRune(m)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (l *PreviewCmd) Run(c *Context) error {
	if l.Hold <= 0 || l.Rate <= 0 {
		return errors.New("Hold and rate must be positive")
	}

	st, err := l.Settings.load(c)
	if err != nil {
		return err
	}

	items := make([]string, len(st.Items))
	for i, m := range st.Items {
		items[i] = m.Name
	}
	if len(items) == 0 {
		items = []string{"Browser", "System Configuration"}
	}

	a := osdpatch.NewAnimator(st)
	height := 2*st.DisplayedItems + 6
	middle := height / 2

	texts := map[osdpatch.PlacementKind]string{
		osdpatch.PlaceLeftCursor:      orDefault(st.LeftCursor, ">"),
		osdpatch.PlaceRightCursor:     orDefault(st.RightCursor, "<"),
		osdpatch.PlaceDelimiterTop:    orDefault(st.DelimiterTop, "-----"),
		osdpatch.PlaceDelimiterBottom: orDefault(st.DelimiterBottom, "-----"),
	}

	c.logFunc(1, "Previewing %d items, %d rows", len(items), st.DisplayedItems)

	frame := time.Second / time.Duration(l.Rate)
	for n := 0; n < l.Frames; n++ {
		startTime := time.Now()
		current := (n / l.Hold) % len(items)

		canvas := newPreviewCanvas(height)
		for i, name := range items {
			for _, p := range a.Draw(i == current, st.MenuY+i*a.FontHeight, 0x80, i*8, current, len(items)) {
				text := name
				if p.Kind != osdpatch.PlaceItem {
					text = texts[p.Kind]
				}

				row := middle + (p.Y-st.MenuY)/previewCell
				col := previewColumns/2 + (p.X-st.MenuX)/previewCell
				canvas.put(row, col, text, previewStyle(p.Alpha, p.Selected))
			}
		}

		screen.Clear()
		screen.MoveTopLeft()
		fmt.Print(canvas)
		fmt.Printf("%d/%d  offset %d  cursor %d\n", current+1, len(items), a.Offset(), a.CursorOffset())

		if d := time.Since(startTime); d < frame {
			time.Sleep(frame - d)
		}
	}
	return nil
}
