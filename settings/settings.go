// Package settings holds the patcher configuration and reads it from
// OSDMENU.CNF.
package settings

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MaxItems       = 250
	NameLength     = 80
	cursorLength   = 20
	pathLength     = 50
	romverLength   = 14
	DefaultLaunch  = "mc0:/BOOT/launcher.elf"
	defaultCNFPath = "mc0:/SYS-CONF/OSDMENU.CNF"
)

var (
	ErrorSyntax       = errors.New("Syntax error in configuration")
	ErrorNoLauncher   = errors.New("Launcher not found on any memory card")
	ErrorBadVideoMode = errors.New("Unknown video mode")
)

type Flags uint16

const (
	FlagCustomMenu Flags = 1 << iota
	FlagSkipDisc
	FlagSkipSCELogo
	FlagBootBrowser
	FlagScrollMenu
	FlagSkipPS2Logo
	FlagDisableGameID
	FlagUseDKWDRV
	FlagBrowserLauncher
)

var flagNames = []string{"CustomMenu", "SkipDisc", "SkipSCELogo", "BootBrowser", "ScrollMenu",
	"SkipPS2Logo", "DisableGameID", "UseDKWDRV", "BrowserLauncher"}

func (f Flags) String() string {
	var parts []string
	for i, n := range flagNames {
		if f&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// VideoMode values are the GS output mode numbers, zero keeps the console's
// own choice.
type VideoMode uint16

const (
	VideoModeAuto  VideoMode = 0
	VideoModeNTSC  VideoMode = 0x02
	VideoModePAL   VideoMode = 0x03
	VideoMode480p  VideoMode = 0x50
	VideoMode1080i VideoMode = 0x51
)

var videoModeNames = map[VideoMode]string{
	VideoModeAuto:  "AUTO",
	VideoModeNTSC:  "NTSC",
	VideoModePAL:   "PAL",
	VideoMode480p:  "480p",
	VideoMode1080i: "1080i",
}

func (v VideoMode) String() string {
	if n, ok := videoModeNames[v]; ok {
		return n
	}
	return fmt.Sprintf("VideoMode(%#x)", uint16(v))
}

// IsDTV reports whether the mode needs the GS register override.
func (v VideoMode) IsDTV() bool {
	return v >= VideoMode480p
}

func ParseVideoMode(s string) (VideoMode, error) {
	for m, n := range videoModeNames {
		if n == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrorBadVideoMode, s)
}

// Color is R, G, B, A with 0x80 meaning full intensity.
type Color [4]uint32

// MenuItem is an entry shown in the main menu. Index is the number from the
// name_OSDSYS_ITEM_<n> key, which the launcher uses to find the paths.
type MenuItem struct {
	Name  string
	Index int
}

type Settings struct {
	ColorSelected   Color
	ColorUnselected Color

	/* Menu center, Y only used by the scroll menu */
	MenuX int
	MenuY int

	/* Button prompt positions, -1 keeps the native position */
	EnterX   int
	EnterY   int
	VersionX int
	VersionY int

	CursorMaxVelocity  int
	CursorAcceleration int
	DisplayedItems     int

	Items []MenuItem
	Flags Flags

	LeftCursor      string
	RightCursor     string
	DelimiterTop    string
	DelimiterBottom string

	LauncherPath string
	DKWDRVPath   string

	ROMVer    string
	MCSlot    int
	VideoMode VideoMode
}

func Default() *Settings {
	return &Settings{
		ColorSelected:      Color{0x10, 0x80, 0xe0, 0x80},
		ColorUnselected:    Color{0x33, 0x33, 0x33, 0x80},
		MenuX:              320,
		MenuY:              110,
		EnterX:             30,
		EnterY:             -1,
		VersionX:           -1,
		VersionY:           -1,
		CursorMaxVelocity:  1000,
		CursorAcceleration: 100,
		DisplayedItems:     7,
		Flags:              FlagCustomMenu | FlagScrollMenu | FlagSkipSCELogo | FlagSkipDisc | FlagBrowserLauncher,
		LauncherPath:       DefaultLaunch,
	}
}

func (s *Settings) Has(f Flags) bool {
	return s.Flags&f == f
}

func (s *Settings) Set(f Flags, on bool) {
	if on {
		s.Flags |= f
	} else {
		s.Flags &^= f
	}
}

// AddItem appends a menu entry. Empty names are ignored and so is everything
// past MaxItems.
func (s *Settings) AddItem(index int, name string) bool {
	if name == "" || len(s.Items) >= MaxItems {
		return false
	}
	s.Items = append(s.Items, MenuItem{Name: truncate(name, NameLength), Index: index})
	return true
}

// NormalizeDisplayedItems forces the scroll menu height to an odd number of
// rows between 1 and 15.
func (s *Settings) NormalizeDisplayedItems() int {
	n := s.DisplayedItems | 1
	if n < 1 {
		n = 1
	}
	if n > 15 {
		n = 15
	}
	s.DisplayedItems = n
	return n
}

// CNFPath is where the configuration lives on the memory card in slot.
func CNFPath(slot int) string {
	return withSlot(defaultCNFPath, slot)
}

// SlotFromPath returns the memory card slot in a path like "mc1:/BOOT/x.elf".
func SlotFromPath(path string) (int, bool) {
	switch {
	case strings.HasPrefix(path, "mc0"):
		return 0, true
	case strings.HasPrefix(path, "mc1"):
		return 1, true
	}
	return 0, false
}

func withSlot(path string, slot int) string {
	if len(path) < 3 || !strings.HasPrefix(path, "mc") {
		return path
	}
	return path[:2] + string(rune('0'+slot)) + path[3:]
}

// ResolveLauncher picks the memory card holding the launcher. A "mc?" path
// starts with the boot slot, every path falls back to the other slot.
func (s *Settings) ResolveLauncher(exists func(path string) bool) error {
	path := s.LauncherPath
	if len(path) > 2 && path[2] == '?' {
		path = withSlot(path, s.MCSlot)
	}

	if exists(path) {
		s.LauncherPath = path
		return nil
	}

	other := 1
	if len(path) > 2 && path[2] == '1' {
		other = 0
	}
	path = withSlot(path, other)
	if exists(path) {
		s.LauncherPath = path
		return nil
	}
	return fmt.Errorf("%w: %s", ErrorNoLauncher, s.LauncherPath)
}

func truncate(s string, size int) string {
	if len(s) > size-1 {
		return s[:size-1]
	}
	return s
}
