package main

import (
	"fmt"
	"os"

	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/alecthomas/kong"
)

type Context struct {
	log     *logger.Logger
	logFunc osdmem.LogFunc
}

var CLI struct {
	LogLevel int `optional help:"Higher values give more output."`

	Info    InfoCmd    `cmd help:"Identify a menu image and show which patches would apply."`
	Patch   PatchCmd   `cmd help:"Apply the patch set to a menu image."`
	Scan    ScanCmd    `cmd help:"Search an image for a masked word pattern."`
	Read    ReadCmd    `cmd help:"Read and dump image memory."`
	Config  ConfigCmd  `cmd help:"Parse a configuration file and show the result."`
	Preview PreviewCmd `cmd help:"Animate the scrolling menu in the terminal."`
}

func newContext() *Context {
	c := &Context{
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "osdmenu")),
	}

	c.logFunc = func(level int, format string, param ...interface{}) {
		if level > CLI.LogLevel {
			return
		}
		str := fmt.Sprintf(format, param...)
		if level <= 1 {
			c.log.Infoln(str)
		} else {
			c.log.Debugln(str)
		}
	}
	return c
}

func main() {
	k, err := kong.New(&CLI,
		kong.NamedMapper("int", intMapper{}),
		kong.NamedMapper("hex", intMapper{base: 16}))
	if err != nil {
		fmt.Println(err)
		return
	}

	ctx, err := k.Parse(os.Args[1:])
	if err != nil {
		fmt.Println(err)
		return
	}

	err = ctx.Run(newContext())
	ctx.FatalIfErrorf(err)
}
