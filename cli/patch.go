package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/osdpatch"
	"github.com/BertoldVdb/osdmenu-tools/settings"
)

type Settings struct {
	Config string `optional help:"OSDMENU.CNF to apply, defaults are used when omitted." type:"existingfile"`
	ROMVer string `optional name:"romver" help:"ROMVER file for the version submenu." type:"existingfile"`
	Video  string `optional help:"Force a video mode: AUTO, NTSC, PAL, 480p or 1080i."`
}

func (l Settings) load(c *Context) (*settings.Settings, error) {
	st := settings.Default()
	if l.Config != "" {
		f, err := os.Open(l.Config)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		st, err = settings.Load(f, c.logFunc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", l.Config, err)
		}
	}

	if l.ROMVer != "" {
		f, err := os.Open(l.ROMVer)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		st.ROMVer, err = settings.ReadROMVer(f)
		if err != nil {
			return nil, err
		}
	}

	if l.Video != "" {
		mode, err := settings.ParseVideoMode(l.Video)
		if err != nil {
			return nil, err
		}
		st.VideoMode = mode
	}
	return st, nil
}

type Target struct {
	Variant string         `optional help:"auto, packed or protokernel." default:"auto"`
	OSD     osdmem.Address `optional name:"osd" help:"Entry point of the unpacked menu, defaults to the image base." type:"int"`
	Version string         `optional help:"Version shown in the version submenu." default:"dev"`
}

func (l Target) session(c *Context, img *osdmem.Image, st *settings.Settings, dryRun bool) (*osdpatch.Session, error) {
	variant := l.Variant
	if variant == "auto" {
		variant = ""
	}

	return osdpatch.NewSession(img, osdpatch.Config{
		Settings:     st,
		LogFunc:      c.logFunc,
		DryRun:       dryRun,
		Variant:      variant,
		OSDBase:      l.OSD,
		GP:           img.GP,
		PatchVersion: l.Version,
	})
}

type PatchCmd struct {
	Image    Image    `embed`
	Settings Settings `embed`
	Target   Target   `embed`

	Output   string `optional short:"o" help:"File to write the patched memory to."`
	Resident string `optional help:"File to write the resident area to."`
	DryRun   bool   `optional help:"Locate everything but do not write."`
	Diff     bool   `optional help:"Dump the changed memory."`
}

func (l *PatchCmd) Run(c *Context) error {
	img, err := l.Image.load(c)
	if err != nil {
		return err
	}
	st, err := l.Settings.load(c)
	if err != nil {
		return err
	}

	before := append([]byte(nil), img.Bytes()...)

	s, err := l.Target.session(c, img, st, l.DryRun)
	if err != nil {
		return err
	}

	records, err := s.Install()
	if err != nil {
		return err
	}
	for _, m := range records {
		fmt.Printf("Entry hook %s at %s -> %s\n", m.Name, m.Site, m.Replacement)
	}

	report, err := s.ApplyAll()
	if err != nil {
		return err
	}
	fmt.Print(report)
	fmt.Printf("Boot arguments: %s\n", strings.Join(s.BootArgs(), " "))

	crcBefore, err := osdmem.Fingerprint(osdmem.NewRegion(osdmem.RegionImage, img.GetBase(), before))
	if err != nil {
		return err
	}
	crcAfter, err := osdmem.Fingerprint(img)
	if err != nil {
		return err
	}
	fmt.Printf("Fingerprint %04x -> %04x, %d resident bytes\n", crcBefore, crcAfter, s.Resident().Used())

	if l.Diff {
		fmt.Print(hexdiff(img.GetBase(), before, img.Bytes(), 1))
	}

	if l.DryRun {
		return nil
	}
	if l.Output != "" {
		if err := ioutil.WriteFile(l.Output, img.Bytes(), 0644); err != nil {
			return err
		}
	}
	if l.Resident != "" {
		if err := ioutil.WriteFile(l.Resident, s.Resident().Bytes(), 0644); err != nil {
			return err
		}
	}
	return nil
}

type InfoCmd struct {
	Image    Image    `embed`
	Settings Settings `embed`
	Target   Target   `embed`
}

func (l *InfoCmd) Run(c *Context) error {
	img, err := l.Image.load(c)
	if err != nil {
		return err
	}
	st, err := l.Settings.load(c)
	if err != nil {
		return err
	}

	crc, err := osdmem.Fingerprint(img)
	if err != nil {
		return err
	}
	fmt.Printf("Image   %s-%s, entry %s, gp %s\n", img.GetBase(), osdmem.RegionEnd(img), img.Entry, img.GP)
	fmt.Printf("CRC16   %04x\n", crc)

	s, err := l.Target.session(c, img, st, true)
	if err != nil {
		return err
	}
	fmt.Printf("Variant %s\n", s.Variant().Name())

	if _, err := s.Install(); err != nil {
		fmt.Printf("Entry   %v\n", err)
	}
	report, err := s.ApplyAll()
	if err != nil {
		return err
	}
	fmt.Print(report)
	fmt.Printf("Boot arguments: %s\n", strings.Join(s.BootArgs(), " "))
	return nil
}

type ConfigCmd struct {
	Settings Settings `embed`
}

func (l *ConfigCmd) Run(c *Context) error {
	st, err := l.Settings.load(c)
	if err != nil {
		return err
	}

	fmt.Printf("Flags      %s\n", st.Flags)
	fmt.Printf("Video      %s\n", st.VideoMode)
	fmt.Printf("Launcher   %s\n", st.LauncherPath)
	fmt.Printf("Menu       %d,%d, %d rows\n", st.MenuX, st.MenuY, st.NormalizeDisplayedItems())
	fmt.Printf("Prompts    enter %d,%d version %d,%d\n", st.EnterX, st.EnterY, st.VersionX, st.VersionY)
	fmt.Printf("Cursors    %q %q %q %q\n", st.LeftCursor, st.RightCursor, st.DelimiterTop, st.DelimiterBottom)
	if st.ROMVer != "" {
		fmt.Printf("ROMVER     %s\n", st.ROMVer)
	}
	for _, m := range st.Items {
		fmt.Printf("Item %3d   %s\n", m.Index, m.Name)
	}
	return nil
}
