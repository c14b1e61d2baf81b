package osdpatch

import (
	"fmt"
	"strings"

	"github.com/BertoldVdb/osdmenu-tools/hook"
	"github.com/BertoldVdb/osdmenu-tools/mips"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/sigscan"
)

// OpResult is the outcome of one patch operation. A failed operation leaves
// the image as it was before it ran.
type OpResult struct {
	Name    string
	Records []hook.Record
	Skipped string
	Err     error
}

type Report struct {
	Variant string
	Results []OpResult
}

func (r Report) Applied() int {
	n := 0
	for _, m := range r.Results {
		if m.Err == nil && m.Skipped == "" {
			n++
		}
	}
	return n
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s menu, %d operations applied\n", r.Variant, r.Applied())
	for _, m := range r.Results {
		switch {
		case m.Err != nil:
			fmt.Fprintf(&b, "  %-16s failed: %v\n", m.Name, m.Err)
		case m.Skipped != "":
			fmt.Fprintf(&b, "  %-16s skipped: %s\n", m.Name, m.Skipped)
		default:
			fmt.Fprintf(&b, "  %-16s ok (%d hooks)\n", m.Name, len(m.Records))
		}
	}
	return b.String()
}

/* Searches a 1MB window starting offset bytes above the menu entry point */
func (s *Session) find(p sigscan.Pattern, offset int) (osdmem.Address, error) {
	addr, ok := sigscan.FindIn(s.image, s.osd.Add(offset), searchWindow, p)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrSignatureNotFound, p.Name)
	}
	return addr, nil
}

/* Destination of the call at site */
func (s *Session) callTarget(site osdmem.Address) (osdmem.Address, error) {
	w, err := osdmem.ReadWord(s.bus, site)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnsafeRegion, err)
	}
	return mips.DecodeJump(w, site)
}

func (s *Session) findString(str string) (osdmem.Address, bool) {
	return sigscan.FindString(osdmem.Window(s.image, s.osd, searchWindow), s.osd, str)
}

// Install places the entry hook through which the patcher gets control once
// the menu has been loaded: the unpacker's final ExecPS2 on packed menus, the
// end of the init routine on protokernel menus.
func (s *Session) Install() ([]hook.Record, error) {
	actions, err := s.variant.entry(s)
	if err != nil {
		return nil, fmt.Errorf("install: %w", err)
	}
	return s.exec.Apply(actions...)
}

// ApplyAll runs every patch operation of the variant in order. Operations are
// independent: one that fails is logged and skipped and the others still run.
// A session patches its image only once.
func (s *Session) ApplyAll() (Report, error) {
	if s.applied {
		return s.report, ErrAlreadyPatched
	}
	s.applied = true

	report := Report{Variant: s.variant.Name()}
	for _, o := range s.variant.ops(s) {
		res := OpResult{Name: o.name}

		actions, err := o.run(s)
		if err == nil {
			if len(actions) == 1 {
				if n, ok := actions[0].(hook.NoOp); ok {
					res.Skipped = n.Reason
				}
			}
			res.Records, err = s.exec.Apply(actions...)
		}

		if err != nil {
			res.Err = err
			s.log(1, "Patch %s skipped: %v", o.name, err)
		} else if res.Skipped == "" {
			s.log(2, "Patch %s applied", o.name)
		}
		report.Results = append(report.Results, res)
	}

	s.log(1, "%d of %d patches applied, %d words written, %d resident bytes used",
		report.Applied(), len(report.Results), s.exec.Writes(), s.resident.Used())
	s.report = report
	return report, nil
}

// BootArgs is the argument list the patched menu is started with.
func (s *Session) BootArgs() []string {
	return s.variant.BootArgs(s)
}
