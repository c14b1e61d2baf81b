// Package launch hands a selected item over to the launcher ELF.
package launch

import (
	"errors"
	"fmt"

	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/settings"
)

const (
	ItemOSDSYS = "OSDSYS"
	ItemCDROM  = "cdrom"
)

var ErrorExecReturned = errors.New("Launcher exec returned")

// Environment puts the console back into a state the launcher can start
// from. Launch calls the methods in a fixed order.
type Environment interface {
	DisableInterrupt(n int)
	StopThreads()
	RestoreVideoMode()
	ResetIOP() error
	FlushCache(mode int)
}

// Exec loads the ELF named by argv[0] and transfers control to it. It only
// returns when that failed.
type Exec interface {
	Exec(argv []string) error
}

type ExecFunc func(argv []string) error

func (f ExecFunc) Exec(argv []string) error {
	return f(argv)
}

type Launcher struct {
	Settings *settings.Settings
	Env      Environment
	Exec     Exec
	LogFunc  osdmem.LogFunc
}

// MenuItemPath is the argument the launcher expects for a custom menu entry.
func MenuItemPath(slot, index int) string {
	return fmt.Sprintf("fmcb%d:%d", slot, index)
}

// Argv builds the launcher command line for item.
func (l *Launcher) Argv(item string) []string {
	s := l.Settings
	if item != ItemCDROM {
		return []string{s.LauncherPath, item}
	}

	argv := []string{s.LauncherPath, item, "", "", ""}
	if s.Has(settings.FlagSkipPS2Logo) {
		argv[2] = "-nologo"
	}
	if s.Has(settings.FlagDisableGameID) {
		argv[3] = "-nogameid"
	}
	if s.Has(settings.FlagUseDKWDRV) {
		argv[4] = "-dkwdrv"
		if s.DKWDRVPath != "" {
			argv[4] = "-dkwdrv=" + s.DKWDRVPath
		}
	}
	return argv
}

// Launch runs item through the launcher. Selecting the native menu does
// nothing and returns nil.
func (l *Launcher) Launch(item string) error {
	if item == ItemOSDSYS {
		return nil
	}

	argv := l.Argv(item)
	if l.LogFunc != nil {
		l.LogFunc(1, "Launching %s: %q", item, argv)
	}

	l.Env.DisableInterrupt(3)
	l.Env.DisableInterrupt(2)
	l.Env.StopThreads()
	l.Env.RestoreVideoMode()
	if err := l.Env.ResetIOP(); err != nil {
		return fmt.Errorf("launch %s: %w", item, err)
	}
	l.Env.FlushCache(0)
	l.Env.FlushCache(2)

	if err := l.Exec.Exec(argv); err != nil {
		return fmt.Errorf("launch %s: %w", item, err)
	}
	return fmt.Errorf("launch %s: %w", item, ErrorExecReturned)
}

// LaunchDisc is the replacement for the firmware's disc handlers.
func (l *Launcher) LaunchDisc() error {
	return l.Launch(ItemCDROM)
}
