// Package osdpatch applies the menu extensions to a loaded menu image and
// runs the routines the patched menu calls back into.
package osdpatch

import (
	"fmt"

	"github.com/BertoldVdb/osdmenu-tools/hook"
	"github.com/BertoldVdb/osdmenu-tools/launch"
	"github.com/BertoldVdb/osdmenu-tools/mips"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/settings"
)

const (
	DefaultOSDBase      osdmem.Address = 0x00200000
	DefaultPatchVersion                = "dev"
)

type Config struct {
	Settings *settings.Settings
	Host     Host
	Exec     launch.Exec
	LogFunc  osdmem.LogFunc
	DryRun   bool

	/* Empty to detect, otherwise "packed" or "protokernel" */
	Variant string

	/* Entry point of the unpacked menu, searches are relative to it */
	OSDBase osdmem.Address
	GP      osdmem.Address

	PatchVersion string
}

// Routine is a replacement function called by the patched menu. Arguments
// arrive in a0-a3, t0, t1 order and the result is returned in v0.
type Routine func(args []uint32) uint32

type routineEntry struct {
	name string
	fn   Routine
}

// Session holds everything that belongs to patching one image: the memory
// view, the installed hooks and the state the replacement routines share.
// It is not safe for concurrent use.
type Session struct {
	config   Config
	settings *settings.Settings
	host     Host

	image    *osdmem.Image
	resident *osdmem.Resident
	bus      *osdmem.Bus
	exec     *hook.Executor
	launcher *launch.Launcher

	variant Variant
	osd     osdmem.Address
	gp      osdmem.Address
	applied bool
	report  Report

	routines map[osdmem.Address]routineEntry
	names    map[string]osdmem.Address

	menu   menuState
	draw   drawState
	panel  panelState
	ver    versionState
	gs     gsState
	disc   discState
	browse browserState
	deinit osdmem.Address
}

func NewSession(img *osdmem.Image, config Config) (*Session, error) {
	if config.Settings == nil {
		config.Settings = settings.Default()
	}
	if config.Host == nil {
		config.Host = &OfflineHost{}
	}
	if config.PatchVersion == "" {
		config.PatchVersion = DefaultPatchVersion
	}

	s := &Session{
		config:   config,
		settings: config.Settings,
		host:     config.Host,
		image:    img,
		resident: osdmem.NewResident(osdmem.ResidentBase, osdmem.ResidentSize, config.LogFunc),
		routines: make(map[osdmem.Address]routineEntry),
		names:    make(map[string]osdmem.Address),
		osd:      config.OSDBase,
		gp:       config.GP,
	}

	if s.osd == 0 {
		s.osd = img.GetBase()
	}
	if s.gp == 0 {
		s.gp = img.GP
	}

	var err error
	s.bus, err = osdmem.NewBus(s.resident, img)
	if err != nil {
		return nil, err
	}

	var icache hook.ICache
	if c, ok := config.Host.(hook.ICache); ok {
		icache = c
	}
	s.exec = hook.NewExecutor(s.bus, icache, config.LogFunc)
	s.exec.Resident = s.resident
	s.exec.DryRun = config.DryRun

	exec := config.Exec
	if exec == nil {
		exec = launch.ExecFunc(func(argv []string) error {
			return ErrorNoExec
		})
	}
	s.launcher = &launch.Launcher{
		Settings: s.settings,
		Env:      hostEnvironment{s},
		Exec:     exec,
		LogFunc:  config.LogFunc,
	}

	if config.Variant != "" {
		s.variant, err = VariantByName(config.Variant)
	} else {
		s.variant, err = Detect(img)
	}
	if err != nil {
		return nil, err
	}

	s.log(1, "Patching %s menu at %s (osd %s)", s.variant.Name(), img.GetBase(), s.osd)
	return s, nil
}

func (s *Session) log(level int, format string, param ...interface{}) {
	if s.config.LogFunc != nil {
		s.config.LogFunc(level, format, param...)
	}
}

func (s *Session) Bus() *osdmem.Bus {
	return s.bus
}

func (s *Session) Image() *osdmem.Image {
	return s.image
}

func (s *Session) Resident() *osdmem.Resident {
	return s.resident
}

func (s *Session) Variant() Variant {
	return s.variant
}

func (s *Session) Settings() *settings.Settings {
	return s.settings
}

func (s *Session) Records() []hook.Record {
	return s.exec.Records()
}

func (s *Session) Launcher() *launch.Launcher {
	return s.launcher
}

// Register makes fn callable from menu code and returns the address of its
// stub. Registering a name twice returns the existing stub.
func (s *Session) Register(name string, fn Routine) (osdmem.Address, error) {
	if addr, ok := s.names[name]; ok {
		return addr, nil
	}

	addr, err := s.resident.AllocWords(mips.JrRA, mips.Nop)
	if err != nil {
		return 0, fmt.Errorf("register %s: %w", name, err)
	}

	s.routines[addr] = routineEntry{name: name, fn: fn}
	s.names[name] = addr
	s.log(3, "Routine %s at %s", name, addr)
	return addr, nil
}

// RoutineAddress returns the stub address of a registered routine.
func (s *Session) RoutineAddress(name string) (osdmem.Address, bool) {
	addr, ok := s.names[name]
	return addr, ok
}

// RoutineNames lists the registered routines by stub address.
func (s *Session) RoutineNames() map[osdmem.Address]string {
	result := make(map[osdmem.Address]string)
	for addr, r := range s.routines {
		result[addr] = r.name
	}
	return result
}

// Dispatch runs the routine whose stub the menu jumped to.
func (s *Session) Dispatch(addr osdmem.Address, args []uint32) (uint32, error) {
	r, ok := s.routines[addr]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrorUnknownRoutine, addr)
	}

	var regs [6]uint32
	copy(regs[:], args)
	return r.fn(regs[:]), nil
}

func (s *Session) word(addr osdmem.Address) uint32 {
	w, err := osdmem.ReadWord(s.bus, addr)
	if err != nil {
		s.log(1, "Read at %s failed: %v", addr, err)
	}
	return w
}

/* Signed values travel through registers as their two's complement */
func reg(v int) uint32 {
	return uint32(int32(v))
}

func (s *Session) allocAligned(size, align int) (osdmem.Address, error) {
	addr, err := s.resident.Alloc(size + align - 4)
	if err != nil {
		return 0, err
	}
	return (addr + osdmem.Address(align-1)) &^ osdmem.Address(align-1), nil
}
