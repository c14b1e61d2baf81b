package hook_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/BertoldVdb/osdmenu-tools/hook"
	"github.com/BertoldVdb/osdmenu-tools/mips"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/test"
)

const base = osdmem.Address(0x00100000)

type cacheLog struct {
	ranges []osdmem.Address
}

func (c *cacheLog) Invalidate(addr osdmem.Address, length int) {
	c.ranges = append(c.ranges, addr)
}

func newBus(t *testing.T) (*osdmem.Bus, *osdmem.Image, *osdmem.Resident) {
	t.Helper()

	img := osdmem.NewImage(base, make([]byte, 0x1000))
	res := osdmem.NewResident(osdmem.ResidentBase, 0x1000, nil)
	bus, err := osdmem.NewBus(img, res)
	test.DemandSuccess(t, err)
	return bus, img, res
}

func TestInstall(t *testing.T) {
	bus, img, _ := newBus(t)

	site := base.Add(0x100)
	orig, _ := mips.EncodeJAL(0x00104000, site)
	osdmem.WriteWord(img, site, orig)

	cache := &cacheLog{}
	r, err := hook.Install(bus, cache, site, 0x000c0010)
	test.DemandSuccess(t, err)

	test.ExpectEquality(t, r.Original, osdmem.Address(0x00104000))
	test.ExpectEquality(t, r.OriginalWord, orig)

	w, _ := osdmem.ReadWord(img, site)
	test.ExpectEquality(t, w, uint32(0x0c030004))
	test.ExpectEquality(t, mips.DecodeTarget(w, site), osdmem.Address(0x000c0010))

	test.DemandEquality(t, len(cache.ranges), 1)
	test.ExpectEquality(t, cache.ranges[0], site)
}

func TestInstallIdempotentWord(t *testing.T) {
	bus, img, _ := newBus(t)

	site := base.Add(0x40)
	orig, _ := mips.EncodeJAL(0x00108000, site)
	osdmem.WriteWord(img, site, orig)

	_, err := hook.Install(bus, nil, site, 0x000c0020)
	test.DemandSuccess(t, err)
	first, _ := osdmem.ReadWord(img, site)

	/* Installing the same hook again produces the same word, only the
	 * recorded original changes */
	r, err := hook.Install(bus, nil, site, 0x000c0020)
	test.DemandSuccess(t, err)
	second, _ := osdmem.ReadWord(img, site)

	test.ExpectEquality(t, first, second)
	test.ExpectEquality(t, r.Original, osdmem.Address(0x000c0020))
}

func TestExecutor(t *testing.T) {
	bus, img, _ := newBus(t)

	site := base.Add(0x200)
	orig, _ := mips.EncodeJAL(0x00100800, site)
	osdmem.WriteWord(img, site, orig)

	var logged int
	cache := &cacheLog{}
	e := hook.NewExecutor(bus, cache, func(level int, format string, param ...interface{}) {
		logged++
	})

	records, err := e.Apply(
		hook.Hook{Name: "draw", Site: site, Replacement: 0x000c0040},
		hook.Overwrite{Name: "index", Site: base.Add(0x1e0), Words: []uint32{0x001048c0, 0x01231021}},
		hook.NoOp{Reason: "nothing to do"},
	)
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(records), 1)
	test.ExpectEquality(t, records[0].Original, osdmem.Address(0x00100800))
	test.ExpectEquality(t, e.Writes(), 3)
	test.ExpectEquality(t, len(cache.ranges), 2)
	test.ExpectEquality(t, logged, 3)

	w, _ := osdmem.ReadWord(img, base.Add(0x1e4))
	test.ExpectEquality(t, w, uint32(0x01231021))

	r, ok := e.Hooked(site)
	test.ExpectEquality(t, ok, true)
	test.ExpectEquality(t, r.Replacement, osdmem.Address(0x000c0040))

	/* Second hook on the same site is refused */
	_, err = e.Apply(hook.Hook{Name: "again", Site: site, Replacement: 0x000c0080})
	test.ExpectEquality(t, errors.Is(err, hook.ErrorAlreadyHooked), true)

	_, err = e.Apply(hook.Overwrite{Name: "clobber", Site: site, Words: []uint32{0}})
	test.ExpectEquality(t, errors.Is(err, hook.ErrorAlreadyHooked), true)
}

func TestExecutorBatchIsAtomic(t *testing.T) {
	bus, img, _ := newBus(t)
	e := hook.NewExecutor(bus, nil, nil)

	_, err := e.Apply(
		hook.Overwrite{Name: "ok", Site: base, Words: []uint32{0x11111111}},
		hook.Overwrite{Name: "unmapped", Site: 0x01000000, Words: []uint32{0}},
	)
	test.ExpectEquality(t, errors.Is(err, hook.ErrorUnsafeRegion), true)

	w, _ := osdmem.ReadWord(img, base)
	test.ExpectEquality(t, w, uint32(0))
	test.ExpectEquality(t, e.Writes(), 0)
}

func TestExecutorDryRun(t *testing.T) {
	bus, img, _ := newBus(t)

	site := base.Add(0x10)
	orig, _ := mips.EncodeJAL(0x00100400, site)
	osdmem.WriteWord(img, site, orig)

	e := hook.NewExecutor(bus, nil, nil)
	e.DryRun = true

	records, err := e.Apply(hook.Hook{Name: "dry", Site: site, Replacement: 0x000c0000, Jump: true})
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(records), 1)
	test.ExpectEquality(t, mips.IsJ(records[0].NewWord), true)

	w, _ := osdmem.ReadWord(img, site)
	test.ExpectEquality(t, w, orig)
	test.ExpectEquality(t, e.Writes(), 1)
}

func TestDetourCall(t *testing.T) {
	bus, img, res := newBus(t)

	site := base.Add(0x300)
	orig, _ := mips.EncodeJAL(0x00100900, site)
	osdmem.WriteWord(img, site, orig)

	e := hook.NewExecutor(bus, nil, nil)
	_, err := e.DetourCall("noresident", site, 0x000c0800)
	test.ExpectEquality(t, errors.Is(err, hook.ErrorNoResident), true)

	e.Resident = res
	r, err := e.DetourCall("panel", site, 0x000c0800)
	test.DemandSuccess(t, err)

	test.ExpectEquality(t, r.Original, osdmem.Address(0x00100900))
	test.ExpectEquality(t, r.Replacement, osdmem.ResidentBase)

	code, err := osdmem.ReadWords(res, r.Replacement, 15)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, mips.DecodeTarget(code[6], r.Replacement.Add(24)), osdmem.Address(0x000c0800))
	test.ExpectEquality(t, mips.IsJ(code[13]), true)
	test.ExpectEquality(t, mips.DecodeTarget(code[13], r.Replacement.Add(52)), osdmem.Address(0x00100900))

	_, err = e.DetourCall("nojal", base.Add(0x304), 0x000c0800)
	test.ExpectEquality(t, errors.Is(err, mips.ErrorNotJump), true)

	_, err = e.DetourCall("twice", site, 0x000c0800)
	test.ExpectEquality(t, errors.Is(err, hook.ErrorAlreadyHooked), true)
}

func TestDeferred(t *testing.T) {
	bus, _, _ := newBus(t)
	e := hook.NewExecutor(bus, nil, nil)

	var order []string
	actions := []hook.Action{
		hook.Overwrite{Name: "first", Site: base, Words: []uint32{1}},
		hook.Deferred{Name: "syscall", Run: func() error {
			w, _ := osdmem.ReadWord(bus, base)
			order = append(order, fmt.Sprintf("deferred saw %d", w))
			return nil
		}},
	}

	_, err := e.Apply(actions...)
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(order), 1)
	test.ExpectEquality(t, order[0], "deferred saw 1")

	e.DryRun = true
	_, err = e.Apply(hook.Deferred{Name: "skipped", Run: func() error {
		order = append(order, "ran")
		return nil
	}})
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, len(order), 1)
}
