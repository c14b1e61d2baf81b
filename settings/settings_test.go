package settings_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/BertoldVdb/osdmenu-tools/settings"
	"github.com/BertoldVdb/osdmenu-tools/test"
)

const sampleCNF = `# OSDMENU configuration
OSDSYS_video_mode = PAL
hacked_OSDSYS = 1
OSDSYS_scroll_menu = 0
OSDSYS_menu_x = 300
OSDSYS_menu_y = abc
OSDSYS_num_displayed_items = 5
OSDSYS_selected_color = 0x10,0x20,0x30,0x40
OSDSYS_left_cursor = >>>>>>>>>>>>>>>>>>>>>>>>>
name_OSDSYS_ITEM_5 = Game A
name_OSDSYS_ITEM_12 = Game B
name_OSDSYS_ITEM_20 =
name_OSDSYS_ITEM_40 = Game C
path_LAUNCHER_ELF = hdd0:/launcher.elf
path_DKWDRV_ELF = mc1:/BOOT/DKWDRV.ELF
cdrom_use_dkwdrv = 1
some_unknown_key = 7
`

func TestDefaults(t *testing.T) {
	s := settings.Default()

	test.ExpectEquality(t, s.Has(settings.FlagCustomMenu|settings.FlagScrollMenu|settings.FlagSkipDisc), true)
	test.ExpectEquality(t, s.Has(settings.FlagBootBrowser), false)
	test.ExpectEquality(t, s.MenuX, 320)
	test.ExpectEquality(t, s.EnterY, -1)
	test.ExpectEquality(t, s.ColorSelected, settings.Color{0x10, 0x80, 0xe0, 0x80})
	test.ExpectEquality(t, s.LauncherPath, "mc0:/BOOT/launcher.elf")
	test.ExpectEquality(t, s.VideoMode, settings.VideoModeAuto)
}

func TestLoad(t *testing.T) {
	unknown := 0
	s, err := settings.Load(strings.NewReader(sampleCNF), func(level int, format string, param ...interface{}) {
		if strings.HasPrefix(format, "Ignoring") {
			unknown++
		}
	})
	test.DemandSuccess(t, err)

	test.ExpectEquality(t, s.VideoMode, settings.VideoModePAL)
	test.ExpectEquality(t, s.Has(settings.FlagCustomMenu), true)
	test.ExpectEquality(t, s.Has(settings.FlagScrollMenu), false)
	test.ExpectEquality(t, s.Has(settings.FlagUseDKWDRV), true)
	test.ExpectEquality(t, s.MenuX, 300)
	test.ExpectEquality(t, s.MenuY, 0)
	test.ExpectEquality(t, s.DisplayedItems, 5)
	test.ExpectEquality(t, s.ColorSelected, settings.Color{0x10, 0x20, 0x30, 0x40})
	test.ExpectEquality(t, len(s.LeftCursor), 19)

	test.DemandEquality(t, len(s.Items), 3)
	test.ExpectEquality(t, s.Items[0], settings.MenuItem{Name: "Game A", Index: 5})
	test.ExpectEquality(t, s.Items[1], settings.MenuItem{Name: "Game B", Index: 12})
	test.ExpectEquality(t, s.Items[2], settings.MenuItem{Name: "Game C", Index: 40})

	/* Only memory card paths are accepted */
	test.ExpectEquality(t, s.LauncherPath, "mc0:/BOOT/launcher.elf")
	test.ExpectEquality(t, s.DKWDRVPath, "mc1:/BOOT/DKWDRV.ELF")

	test.ExpectEquality(t, unknown, 1)
}

func TestSyntaxError(t *testing.T) {
	s, err := settings.Load(strings.NewReader("OSDSYS_menu_x = 12\nOSDSYS_menu_y 14\nOSDSYS_menu_x = 99\n"), nil)
	test.ExpectEquality(t, errors.Is(err, settings.ErrorSyntax), true)
	test.ExpectEquality(t, s.MenuX, 12)
}

func TestComments(t *testing.T) {
	entries, err := settings.ReadEntries(strings.NewReader("  ; comment = 1\n\n1abc=2\n\tOSDSYS_menu_x=\a5\r\n"))
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(entries), 1)
	test.ExpectEquality(t, entries[0].Name, "OSDSYS_menu_x")
	test.ExpectEquality(t, entries[0].Value, "\a5")
	test.ExpectEquality(t, entries[0].Line, 4)
}

func TestItemCapacity(t *testing.T) {
	var b strings.Builder
	for i := 0; i < settings.MaxItems+10; i++ {
		fmt.Fprintf(&b, "name_OSDSYS_ITEM_%d = Item %d\n", i, i)
	}

	s, err := settings.Load(strings.NewReader(b.String()), nil)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, len(s.Items), settings.MaxItems)
	test.ExpectEquality(t, s.Items[settings.MaxItems-1].Index, settings.MaxItems-1)
}

func TestNormalizeDisplayedItems(t *testing.T) {
	for _, c := range []struct{ in, out int }{
		{0, 1}, {1, 1}, {4, 5}, {7, 7}, {14, 15}, {16, 15}, {-6, 1},
	} {
		s := settings.Default()
		s.DisplayedItems = c.in
		test.ExpectEquality(t, s.NormalizeDisplayedItems(), c.out, c.in)
	}
}

func TestResolveLauncher(t *testing.T) {
	s := settings.Default()
	s.LauncherPath = "mc?:/BOOT/launcher.elf"
	s.MCSlot = 1

	err := s.ResolveLauncher(func(path string) bool { return path == "mc1:/BOOT/launcher.elf" })
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, s.LauncherPath, "mc1:/BOOT/launcher.elf")

	s.LauncherPath = "mc0:/BOOT/launcher.elf"
	err = s.ResolveLauncher(func(path string) bool { return path == "mc1:/BOOT/launcher.elf" })
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, s.LauncherPath, "mc1:/BOOT/launcher.elf")

	err = s.ResolveLauncher(func(string) bool { return false })
	test.ExpectEquality(t, errors.Is(err, settings.ErrorNoLauncher), true)
}

func TestReadROMVer(t *testing.T) {
	v, err := settings.ReadROMVer(strings.NewReader("0200E20040614\n"))
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, "0200E20040614")

	slot, ok := settings.SlotFromPath("mc1:/BOOT/OSDMENU.ELF")
	test.ExpectEquality(t, ok, true)
	test.ExpectEquality(t, slot, 1)
	test.ExpectEquality(t, settings.CNFPath(1), "mc1:/SYS-CONF/OSDMENU.CNF")
}
