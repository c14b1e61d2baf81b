package settings

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/BertoldVdb/osdmenu-tools/osdmem"
)

const itemPrefix = "name_OSDSYS_ITEM_"

type Entry struct {
	Line  int
	Name  string
	Value string
}

func isSpace(c byte) bool {
	return c <= ' ' && c > 0
}

func isNameChar(c byte) bool {
	return c >= 'A' || (c >= '0' && c <= '9')
}

// parseLine splits one line. Lines whose first non blank byte sorts below
// 'A' are comments.
func parseLine(line string) (name, value string, ok bool, err error) {
	i := 0
	for i < len(line) && isSpace(line[i]) {
		i++
	}
	if i == len(line) || line[i] < 'A' {
		return "", "", false, nil
	}

	start := i
	for i < len(line) && isNameChar(line[i]) {
		i++
	}
	name = line[start:i]

	for i < len(line) && isSpace(line[i]) {
		i++
	}
	if i == len(line) || line[i] != '=' {
		return "", "", false, fmt.Errorf("%w: '=' missing after %q", ErrorSyntax, name)
	}
	i++

	/* BEL is allowed as the first value byte */
	for i < len(line) && isSpace(line[i]) && line[i] != '\a' {
		i++
	}

	return name, line[i:], true, nil
}

// ReadEntries returns the key/value pairs of a CNF file in order. Parsing
// stops at the first malformed line, the entries before it are returned
// together with the error.
func ReadEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++

		name, value, ok, err := parseLine(scanner.Text())
		if err != nil {
			return entries, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if ok {
			entries = append(entries, Entry{Line: lineNum, Name: name, Value: value})
		}
	}

	return entries, scanner.Err()
}

// atoi accepts a leading number and ignores whatever follows, malformed
// input yields zero.
func atoi(s string) int {
	s = strings.TrimLeft(s, " \t")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return v
}

// hexPrefix parses a "0xRR" style component the way strtol would.
func hexPrefix(s string) uint32 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	end := 0
	for end < len(s) && strings.IndexByte("0123456789abcdefABCDEF", s[end]) >= 0 {
		end++
	}
	v, err := strconv.ParseUint(s[:end], 16, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

// parseColor reads "0xRR,0xGG,0xBB,0xAA": four characters per component
// with a one character separator.
func parseColor(value string) Color {
	var c Color
	for i := range c {
		offs := 5 * i
		if offs >= len(value) {
			break
		}
		end := offs + 4
		if end > len(value) {
			end = len(value)
		}
		c[i] = hexPrefix(value[offs:end])
	}
	return c
}

func memoryCardPath(value string, size int) (string, bool) {
	if len(value) < 4 || !strings.HasPrefix(value, "mc") {
		return "", false
	}
	return truncate(value, size), true
}

var flagKeys = map[string]Flags{
	"hacked_OSDSYS":           FlagCustomMenu,
	"OSDSYS_scroll_menu":      FlagScrollMenu,
	"OSDSYS_Skip_Disc":        FlagSkipDisc,
	"OSDSYS_Skip_Logo":        FlagSkipSCELogo,
	"OSDSYS_Inner_Browser":    FlagBootBrowser,
	"OSDSYS_Browser_Launcher": FlagBrowserLauncher,
	"cdrom_skip_ps2logo":      FlagSkipPS2Logo,
	"cdrom_disable_gameid":    FlagDisableGameID,
	"cdrom_use_dkwdrv":        FlagUseDKWDRV,
}

// Apply sets the field named by key. Unknown keys are reported as not
// handled and otherwise ignored.
func (s *Settings) Apply(name, value string) bool {
	intFields := map[string]*int{
		"OSDSYS_menu_x":              &s.MenuX,
		"OSDSYS_menu_y":              &s.MenuY,
		"OSDSYS_enter_x":             &s.EnterX,
		"OSDSYS_enter_y":             &s.EnterY,
		"OSDSYS_version_x":           &s.VersionX,
		"OSDSYS_version_y":           &s.VersionY,
		"OSDSYS_cursor_max_velocity": &s.CursorMaxVelocity,
		"OSDSYS_cursor_acceleration": &s.CursorAcceleration,
		"OSDSYS_num_displayed_items": &s.DisplayedItems,
	}
	if p, ok := intFields[name]; ok {
		*p = atoi(value)
		return true
	}

	if f, ok := flagKeys[name]; ok {
		s.Set(f, atoi(value) != 0)
		return true
	}

	switch name {
	case "OSDSYS_left_cursor":
		s.LeftCursor = truncate(value, cursorLength)
	case "OSDSYS_right_cursor":
		s.RightCursor = truncate(value, cursorLength)
	case "OSDSYS_menu_top_delimiter":
		s.DelimiterTop = truncate(value, NameLength)
	case "OSDSYS_menu_bottom_delimiter":
		s.DelimiterBottom = truncate(value, NameLength)
	case "OSDSYS_selected_color":
		s.ColorSelected = parseColor(value)
	case "OSDSYS_unselected_color":
		s.ColorUnselected = parseColor(value)
	case "path_LAUNCHER_ELF":
		if p, ok := memoryCardPath(value, pathLength); ok {
			s.LauncherPath = p
		}
	case "path_DKWDRV_ELF":
		if p, ok := memoryCardPath(value, pathLength); ok {
			s.DKWDRVPath = p
		}
	case "OSDSYS_video_mode":
		if m, err := ParseVideoMode(value); err == nil {
			s.VideoMode = m
		}
	default:
		if strings.HasPrefix(name, itemPrefix) {
			s.AddItem(atoi(name[len(itemPrefix):]), value)
			return true
		}
		return false
	}
	return true
}

// Load reads a CNF file on top of the defaults. On a syntax error the
// settings read so far are returned along with the error.
func Load(r io.Reader, logFunc osdmem.LogFunc) (*Settings, error) {
	s := Default()

	entries, err := ReadEntries(r)
	for _, e := range entries {
		if !s.Apply(e.Name, e.Value) && logFunc != nil {
			logFunc(3, "Ignoring unknown key %s on line %d", e.Name, e.Line)
		}
	}

	if logFunc != nil {
		logFunc(1, "Loaded %d entries, %d menu items, flags %s", len(entries), len(s.Items), s.Flags)
	}
	return s, err
}

// ReadROMVer reads the version string from rom0:ROMVER.
func ReadROMVer(r io.Reader) (string, error) {
	buf := make([]byte, romverLength)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", err
	}
	return strings.TrimRight(string(buf[:n]), "\x00\r\n"), nil
}
