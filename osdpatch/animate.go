package osdpatch

import (
	"github.com/BertoldVdb/osdmenu-tools/settings"
)

const (
	DefaultFontHeight = 16

	/* Horizontal distance of the cursors from the menu center */
	cursorSpan = 220
)

type PlacementKind int

const (
	PlaceItem PlacementKind = iota
	PlaceLeftCursor
	PlaceRightCursor
	PlaceDelimiterTop
	PlaceDelimiterBottom
)

func (k PlacementKind) String() string {
	switch k {
	case PlaceItem:
		return "item"
	case PlaceLeftCursor:
		return "left cursor"
	case PlaceRightCursor:
		return "right cursor"
	case PlaceDelimiterTop:
		return "top delimiter"
	case PlaceDelimiterBottom:
		return "bottom delimiter"
	}
	return "unknown"
}

// Placement is one string the menu should draw this frame.
type Placement struct {
	Kind     PlacementKind
	X, Y     int
	Alpha    int
	Selected bool
}

// Animator computes where the main menu entries go. It keeps the scroll
// offset eased toward the selection and the swinging cursor state, and has
// no knowledge of the menu itself.
type Animator struct {
	Settings   *settings.Settings
	FontHeight int

	vel   int
	acc   int
	dx    int
	offsY int
}

func NewAnimator(s *settings.Settings) *Animator {
	s.NormalizeDisplayedItems()

	return &Animator{
		Settings:   s,
		FontHeight: DefaultFontHeight,
		vel:        s.CursorMaxVelocity,
		acc:        s.CursorAcceleration,
	}
}

func (a *Animator) Offset() int {
	return a.offsY
}

func (a *Animator) CursorOffset() int {
	return a.dx >> 8
}

/* Moves the offset a quarter of the way, and at least one unit */
func (a *Animator) ease(dest int) {
	switch {
	case a.offsY < dest:
		step := (dest - a.offsY) >> 2
		if step < 1 {
			step = 1
		}
		a.offsY += step
	case a.offsY > dest:
		step := (a.offsY - dest) >> 2
		if step < 1 {
			step = 1
		}
		a.offsY -= step
	}
}

func (a *Animator) band() int {
	return (a.Settings.DisplayedItems + 1) * (a.FontHeight / 2)
}

// Draw is called for every entry of every frame. y and alpha are what the
// menu would have used, num is the entry number times eight, current the
// selected entry and count the number of custom items.
func (a *Animator) Draw(selected bool, y, alpha, num, current, count int) []Placement {
	s := a.Settings

	if selected && alpha > 0x80 {
		alpha = 0x80
	}

	if !s.Has(settings.FlagScrollMenu) {
		return []Placement{{Kind: PlaceItem, X: s.MenuX, Y: y - count*10, Alpha: alpha, Selected: selected}}
	}

	/* The first entry drives the easing once per frame */
	if num == 0 {
		a.ease(current << 4)
	}

	band := a.band()
	y = (num << 1) - a.offsY
	visible := y < band && y > -band

	var result []Placement
	if selected {
		if visible {
			a.vel -= a.acc
			if a.vel < -s.CursorMaxVelocity || a.vel > s.CursorMaxVelocity {
				a.acc = -a.acc
			}
			a.dx += a.vel

			swing := a.dx >> 8
			result = append(result,
				Placement{Kind: PlaceItem, X: s.MenuX, Y: s.MenuY + y, Alpha: alpha, Selected: true},
				Placement{Kind: PlaceLeftCursor, X: s.MenuX - cursorSpan + swing, Y: s.MenuY + y, Alpha: alpha, Selected: true},
				Placement{Kind: PlaceRightCursor, X: s.MenuX + cursorSpan - swing, Y: s.MenuY + y, Alpha: alpha, Selected: true},
			)
		}

		edge := s.DisplayedItems*(a.FontHeight/2) + a.FontHeight/2
		return append(result,
			Placement{Kind: PlaceDelimiterTop, X: s.MenuX, Y: s.MenuY - edge, Alpha: alpha, Selected: true},
			Placement{Kind: PlaceDelimiterBottom, X: s.MenuX, Y: s.MenuY + edge, Alpha: alpha, Selected: true},
		)
	}

	if !visible {
		return nil
	}

	dist := y
	if dist < 0 {
		dist = -dist
	}
	alpha = 128 - dist*(128/band)
	if alpha < 0 {
		alpha = 0
	}
	return []Placement{{Kind: PlaceItem, X: s.MenuX, Y: s.MenuY + y, Alpha: alpha}}
}
