package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/sigscan"
	"github.com/inancgumus/screen"
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

type Image struct {
	Image string         `arg name:"image" help:"Menu ELF or raw memory dump." type:"existingfile"`
	Base  osdmem.Address `optional help:"Load address of a raw dump." type:"int" default:"0x100000"`
	GP    osdmem.Address `optional name:"gp" help:"Global pointer, taken from the ELF when omitted." type:"int"`
}

func (i Image) load(c *Context) (*osdmem.Image, error) {
	data, err := ioutil.ReadFile(i.Image)
	if err != nil {
		return nil, err
	}

	var img *osdmem.Image
	if bytes.HasPrefix(data, elfMagic) {
		img, err = osdmem.LoadELF(bytes.NewReader(data))
	} else {
		img, err = osdmem.LoadRaw(bytes.NewReader(data), i.Base)
	}
	if err != nil {
		return nil, err
	}

	if i.GP != 0 {
		img.GP = i.GP
	}
	c.logFunc(2, "Loaded %s: %s-%s, entry %s, gp %s", i.Image, img.GetBase(), osdmem.RegionEnd(img), img.Entry, img.GP)
	return img, nil
}

type ReadCmd struct {
	Loop     bool   `optional help:"Keep reloading the file and mark what changed."`
	Filename string `optional help:"File to write dump to."`

	Image  Image          `embed`
	Addr   osdmem.Address `arg name:"addr" help:"Address to read." type:"int"`
	Amount int            `arg name:"amount" help:"Number of bytes to read, omit for the rest of the image." optional default:"0"`
}

func (l *ReadCmd) Run(c *Context) error {
	var oldBuf []byte
	for {
		startTime := time.Now()

		img, err := l.Image.load(c)
		if err != nil {
			return err
		}

		amount := l.Amount
		if amount == 0 {
			amount = int(osdmem.RegionEnd(img) - l.Addr)
		}
		if amount <= 0 || !osdmem.RegionContains(img, l.Addr, amount) {
			return errors.New("Range outside of image")
		}

		buf := make([]byte, amount)
		if _, err := img.Access(false, l.Addr, buf); err != nil {
			return fmt.Errorf("Read error: %s", err.Error())
		}

		if l.Filename != "" {
			return ioutil.WriteFile(l.Filename, buf, 0644)
		}

		var mark []bool
		if l.Loop {
			screen.Clear()
			screen.MoveTopLeft()
			if oldBuf != nil {
				mark = make([]bool, len(buf))
				for i, m := range oldBuf {
					if i < len(buf) && m != buf[i] {
						mark[i] = true
					}
				}
			}
		}
		fmt.Println(hexdump(l.Addr, buf, mark))

		oldBuf = buf
		if !l.Loop {
			return nil
		}

		d := time.Since(startTime)
		td := 500 * time.Millisecond
		if d < td {
			time.Sleep(td - d)
		}
	}
}

type ScanCmd struct {
	Image   Image          `embed`
	Pattern string         `arg name:"pattern" help:"Words in hex, optionally word/mask, ?? matches anything."`
	Start   osdmem.Address `optional help:"Address to start searching at, defaults to the image base." type:"int"`
	Context int            `optional help:"Number of bytes to dump after every match." default:"32"`
}

func (l *ScanCmd) Run(c *Context) error {
	p, err := sigscan.ParsePattern("cli", l.Pattern)
	if err != nil {
		return err
	}

	img, err := l.Image.load(c)
	if err != nil {
		return err
	}

	start := l.Start
	if start == 0 {
		start = img.GetBase()
	}

	c.logFunc(2, "Searching for %s from %s", p, start)
	matches := sigscan.NewScanner(img, start, p).All()
	if len(matches) == 0 {
		fmt.Fprintln(os.Stderr, "No matches")
		return nil
	}

	for _, addr := range matches {
		fmt.Printf("Match at %s\n", addr)
		if l.Context <= 0 {
			continue
		}

		n := l.Context
		if end := int(osdmem.RegionEnd(img) - addr); n > end {
			n = end
		}
		buf := make([]byte, n)
		if _, err := img.Access(false, addr, buf); err != nil {
			return err
		}
		mark := make([]bool, n)
		for i := 0; i < p.Size() && i < n; i++ {
			mark[i] = true
		}
		fmt.Println(hexdump(addr, buf, mark))
	}
	return nil
}
