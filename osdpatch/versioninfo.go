package osdpatch

import (
	"fmt"

	"github.com/BertoldVdb/osdmenu-tools/hook"
	"github.com/BertoldVdb/osdmenu-tools/mips"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/settings"
	"github.com/BertoldVdb/osdmenu-tools/sigscan"
)

const (
	/* Packed rows: label, value, submenu */
	versionRowSize = 12
	maxVersionRows = 64

	/* Protokernel rows: 32 byte label, 16 byte value, submenu text */
	protoRowSize    = 0x430
	protoLabelSize  = 0x20
	protoValueSize  = 0x10
	protoSubmenuOff = 0x30

	versionValueSize = 32

	/* Colour escapes around right aligned packed values */
	valuePrefix = "\ar0.80"
	valueSuffix = "\ar0.00"
)

// VersionEntry is a row added to the version submenu. Resolve runs every
// time the submenu opens, a false result leaves the row out.
type VersionEntry struct {
	Label   string
	Resolve func() (string, bool)
}

type versionState struct {
	entries []VersionEntry

	orig        osdmem.Address
	table       osdmem.Address
	gsGetGParam osdmem.Address
	cdApplySCmd osdmem.Address

	labels []osdmem.Address
	values []osdmem.Address

	/* Filled by the first successful query, failure is permanent */
	mechacon       string
	mechaconFailed bool
}

func formatRevision(rev uint8) string {
	minor := rev & 0xf
	return fmt.Sprintf("%d.%d%d", rev>>4, minor/10, minor%10)
}

func videoModeName(mode settings.VideoMode) string {
	switch mode {
	case settings.VideoModePAL, settings.VideoModeNTSC, settings.VideoMode480p, settings.VideoMode1080i:
		return mode.String()
	}
	return "-"
}

// VideoMode is the output mode the menu currently uses.
func (s *Session) VideoMode() string {
	if g := s.ver.gsGetGParam; g != 0 {
		param := osdmem.Address(s.host.Call(g))
		if mode, err := osdmem.ReadHalf(s.bus, param.Add(2)); err == nil {
			return videoModeName(settings.VideoMode(mode))
		}
	}

	mode := s.settings.VideoMode
	if mode == settings.VideoModeAuto {
		mode = settings.VideoModeNTSC
	}
	return videoModeName(mode)
}

func (s *Session) gsRevision() string {
	rev := uint8(s.host.ReadGSRegister(GSCSR) >> 16)
	if rev == 0 {
		return "-"
	}
	return formatRevision(rev)
}

// MechaConRevision asks the drive controller for its version once.
func (s *Session) MechaConRevision() (string, bool) {
	v := &s.ver
	if v.mechacon != "" {
		return v.mechacon, true
	}
	if v.cdApplySCmd == 0 || v.mechaconFailed {
		return "", false
	}

	/* The reply is always 16 bytes: status, major, minor */
	buf, err := s.allocAligned(16, 16)
	if err != nil {
		v.mechaconFailed = true
		return "", false
	}
	osdmem.WriteWords(s.resident, buf, make([]uint32, 4))

	if s.host.Call(v.cdApplySCmd, 3, uint32(buf), 1, uint32(buf)) == 0 {
		v.mechaconFailed = true
		return "", false
	}

	major, _ := osdmem.ReadByte(s.resident, buf.Add(1))
	minor, _ := osdmem.ReadByte(s.resident, buf.Add(2))

	debug := false
	if major > 4 {
		/* The low bit is the DTL flag on newer drives */
		debug = minor&1 != 0
		minor &^= 1
	}

	v.mechacon = fmt.Sprintf("%d.%d%d", major, minor/10, minor%10)
	if debug {
		v.mechacon += " (Debug)"
	}
	return v.mechacon, true
}

func (s *Session) versionEntries(proto bool) []VersionEntry {
	wrap := func(str string) string {
		if proto {
			return str
		}
		return valuePrefix + str + valueSuffix
	}

	rom := "-"
	if r := s.settings.ROMVer; r != "" {
		if proto {
			/* No colour escapes here, and the value field is short */
			if len(r) > protoValueSize-1 {
				r = r[:protoValueSize-1]
			}
			rom = r
		} else {
			rom = wrap(r)
		}
	}
	ee := formatRevision(s.host.CPURevision())

	always := func(f func() string) func() (string, bool) {
		return func() (string, bool) { return f(), true }
	}

	return []VersionEntry{
		{"Video Mode", always(s.VideoMode)},
		{"OSDMenu Patch", always(func() string { return wrap(s.config.PatchVersion) })},
		{"ROM", always(func() string { return rom })},
		{"Emotion Engine", always(func() string { return ee })},
		{"Graphics Synthesizer", always(s.gsRevision)},
		{"MechaCon", s.MechaConRevision},
	}
}

/* Functions are found by walking back to their stack adjustment */
func (s *Session) functionStart(addr osdmem.Address) (osdmem.Address, bool) {
	for a := addr; a >= s.image.GetBase(); a -= 4 {
		w, err := osdmem.ReadWord(s.image, a)
		if err != nil {
			return 0, false
		}
		if w&0xffff0000 == 0x27bd0000 {
			return a, true
		}
	}
	return 0, false
}

// Adds the rows of VersionEntries to the version submenu, after the ones
// the menu creates itself.
func (s *Session) patchVersionInfo() ([]hook.Action, error) {
	l := s.variant.layout()

	match, err := s.find(l.versionInit, 0)
	if err != nil {
		return nil, err
	}
	site := match.Add(l.versionSite)

	v := versionState{}
	if v.orig, err = s.callTarget(site); err != nil {
		return nil, err
	}

	if !l.protokernel {
		ptr, ok := sigscan.FindIn(s.image, v.orig, 0x200, patternVersionStringTable)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSignatureNotFound, patternVersionStringTable.Name)
		}
		v.table = mips.SplitAddress(s.word(ptr), s.word(ptr.Add(8)))
		if err := mips.ValidateLoadAddress(v.table); err != nil {
			return nil, err
		}

		if gp, err := s.find(patternGsGetGParam, 0); err == nil {
			v.gsGetGParam, _ = s.callTarget(gp)
		}
	}

	if cmd, err := s.find(l.cdApplySCmd, 0); err == nil {
		v.cdApplySCmd, _ = s.functionStart(cmd)
	}

	v.entries = s.versionEntries(l.protokernel)
	if !l.protokernel {
		for _, e := range v.entries {
			label, err := s.resident.AllocString(e.Label)
			if err != nil {
				return nil, err
			}
			value, err := s.resident.Alloc(versionValueSize)
			if err != nil {
				return nil, err
			}
			v.labels = append(v.labels, label)
			v.values = append(v.values, value)
		}
	}

	handler := s.versionInitHandler
	if l.protokernel {
		handler = s.versionInitHandlerProto
	}
	stub, err := s.Register("versionInfoInit", handler)
	if err != nil {
		return nil, err
	}

	s.ver = v
	s.log(2, "Version info init at %s, table at %s", v.orig, v.table)
	return []hook.Action{
		hook.Hook{Name: "version info", Site: site, Replacement: stub},
	}, nil
}

/* Rows labelled below the load window are ours from an earlier opening */
func (s *Session) versionInitHandler(args []uint32) uint32 {
	v := &s.ver
	s.host.Call(v.orig)

	row := v.table
	for i := 0; i < maxVersionRows; i++ {
		w, err := osdmem.ReadWords(s.bus, row, 3)
		if err != nil {
			s.log(1, "Version table at %s unreadable: %v", row, err)
			return 0
		}
		if osdmem.Address(w[0]) < osdmem.MinLoadAddress || (w[0] == 0 && w[1] == 0 && w[2] == 0) {
			break
		}
		row = row.Add(versionRowSize)
	}
	if row == v.table {
		return 0
	}

	for i, e := range v.entries {
		value, ok := e.Resolve()
		if !ok {
			continue
		}
		osdmem.WriteString(s.resident, v.values[i], value, versionValueSize)
		if err := osdmem.WriteWords(s.bus, row, []uint32{uint32(v.labels[i]), uint32(v.values[i]), 0}); err != nil {
			s.log(1, "Version row at %s: %v", row, err)
			return 0
		}
		row = row.Add(versionRowSize)
	}
	return 0
}

func (s *Session) versionInitHandlerProto(args []uint32) uint32 {
	v := &s.ver
	res := s.host.Call(v.orig, args[0], args[1], args[2])

	row := osdmem.Address(args[0])
	for i := 0; i < maxVersionRows; i++ {
		b, err := osdmem.ReadByte(s.bus, row)
		if err != nil {
			s.log(1, "Version table at %s unreadable: %v", row, err)
			return res
		}
		if b == 0 {
			break
		}
		row = row.Add(protoRowSize)
	}

	for _, e := range v.entries {
		value, ok := e.Resolve()
		if !ok {
			continue
		}
		err := osdmem.WriteString(s.bus, row, e.Label, protoLabelSize)
		if err == nil {
			err = osdmem.WriteString(s.bus, row.Add(protoLabelSize), value, protoValueSize)
		}
		if err == nil {
			err = osdmem.WriteWord(s.bus, row.Add(protoSubmenuOff), 0)
		}
		if err != nil {
			s.log(1, "Version row at %s: %v", row, err)
			return res
		}
		row = row.Add(protoRowSize)
	}
	return res
}

// VersionEntries returns the rows added to the version submenu.
func (s *Session) VersionEntries() []VersionEntry {
	return s.ver.entries
}
