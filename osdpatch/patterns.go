package osdpatch

import "github.com/BertoldVdb/osdmenu-tools/sigscan"

const (
	/* Size of every "search the menu" window */
	searchWindow = 0x100000

	/* Protokernel menu code sits this far above the entry point */
	protoMenuOffset = 0x400000
)

var (
	patternExecPS2 = sigscan.Exact("ExecPS2",
		0x24030007, /* li v1, 7 */
		0x0000000c, /* syscall */
		0x03e00008, /* jr ra */
		0x00000000,
	)

	patternProtokernelInit = sigscan.MustPattern("ProtokernelInit",
		[]uint32{0x26940414, 0x26d60414, 0x2aa2000c, 0x14400000, 0x26520414},
		[]uint32{0xffffffff, 0xffffffff, 0xffffffff, 0xffff0000, 0xffffffff})

	patternDeinit = sigscan.MustPattern("Deinit",
		[]uint32{0x27bdffe0, 0xffb00000, 0x0080802d, 0xffbf0010, 0x0c000000, 0x24040003, 0x0c000000, 0x24040002},
		[]uint32{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff, 0xfc000000, 0xffffffff, 0xfc000000, 0xffffffff})

	/* unknown, menu pointer, entry count, unknown, current selection */
	patternMenuInfo = sigscan.MustPattern("MenuInfo",
		[]uint32{0x00000001, 0x00000000, 0x00000002, 0x00000003, 0x00000000},
		[]uint32{0xffffffff, 0xff800000, 0xffffffff, 0xffffffff, 0xffffffff})

	/* Starts at the menu pointer, the leading unknown word differs */
	patternMenuInfoProto = sigscan.MustPattern("MenuInfoProto",
		[]uint32{0x00000000, 0x00000002, 0x00000003, 0x00000000},
		[]uint32{0xff800000, 0xffffffff, 0xffffffff, 0xffffffff})

	patternOSDString = sigscan.MustPattern("OSDString",
		[]uint32{0x10000005, 0x8c620000, 0x00101880, 0x8c440000, 0x00641821, 0x8c620000, 0xdfbf0010},
		[]uint32{0xffffffff, 0xffff0000, 0xffffffff, 0xffff0000, 0xffffffff, 0xffffffff, 0xffffffff})

	patternUserInputHandler = sigscan.MustPattern("UserInputHandler",
		[]uint32{0x1000000e, 0xdfbf0010, 0x24040001, 0x8c430000, 0x1464000a, 0xdfbf0010, 0x0c000000, 0x00000000, 0x10000006, 0xdfbf0010},
		[]uint32{0xffffffff, 0xffffffff, 0xffffffff, 0xffff0000, 0xffffffff, 0xffffffff, 0xfc000000, 0xffffffff, 0xffffffff, 0xffffffff})

	patternDrawMenuItem = sigscan.MustPattern("DrawMenuItem",
		[]uint32{0x001010c0, 0x00431021, 0x0c000000, 0x8c440000, 0x0040402d, 0x240401ae, 0x0220282d, 0x26000000, 0x0c000000, 0x0260382d},
		[]uint32{0xffffffff, 0xffffffff, 0xfc000000, 0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff, 0xff000000, 0xfc000000, 0xffffffff})

	/* lui v0; addiu a2, v0; daddu a0, s1; daddu a3, s2; jal DrawMenuItem; daddu t0, s3 */
	patternDrawMenuItemProto = sigscan.MustPattern("DrawMenuItemProto",
		[]uint32{0x3c020000, 0x24460000, 0x0220202d, 0x0240382d, 0x0c000000, 0x0260402d},
		[]uint32{0xffff0000, 0xffff0000, 0xffffffff, 0xffffffff, 0xfc000000, 0xffffffff})

	patternDrawButtonPanel1 = sigscan.MustPattern("DrawButtonPanel1",
		[]uint32{0x00c0002d, 0xff000000, 0x0080802d, 0xff000000, 0xff000000, 0xffb70000, 0xffb60000, 0xff000000, 0x0c000000, 0xff000000},
		[]uint32{0xffff00ff, 0xff00ff00, 0xffffffff, 0xff00ff00, 0xff00ff00, 0xffffff00, 0xffffff00, 0xff00ff00, 0xfc000000, 0xff00ff00})

	patternDrawButtonPanel2 = sigscan.MustPattern("DrawButtonPanel2",
		[]uint32{0x3c020000, 0x0200302d, 0x24420000, 0x00b12823, 0x8c44000c, 0x02a0382d, 0x0c000000, 0x24a5ffe4},
		[]uint32{0xffffff00, 0xff00ffff, 0xffff0000, 0xffffffff, 0xffffffff, 0xffffffff, 0xfc000000, 0xffffffff})

	patternDrawButtonPanel3 = sigscan.MustPattern("DrawButtonPanel3",
		[]uint32{0x0040402d, 0x0200202d, 0x3c020000, 0x0200282d, 0x24460000, 0x0c000000, 0x02a0382d},
		[]uint32{0xffffffff, 0xffffffff, 0xffffff00, 0xff00ffff, 0xffff0000, 0xfc000000, 0xffffffff})

	patternExecuteDisc = sigscan.MustPattern("ExecuteDisc",
		[]uint32{0x27bdfff0, 0x3c03001f, 0xffbf0000, 0x0080302d, 0x8c620014, 0x2c420007,
			0x10400000, 0x00000000, 0x3c02001f, 0x8c420014, 0x3c030000, 0x24630000},
		[]uint32{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff,
			0xffffff00, 0x00000000, 0xffffffff, 0xffffffff, 0xffffff00, 0xffff0000})

	patternExecuteDiscProto = sigscan.MustPattern("ExecuteDiscProto",
		[]uint32{0x27bdfff0, 0x8c430000, 0xffbf0000, 0x8c640000, 0x24830002, 0x2c620006, 0x10400000, 0x3c020000, 0x00031880, 0x24420000},
		[]uint32{0xffffffff, 0xffff0000, 0xffffffff, 0xffff0000, 0xffffffff, 0xffffffff, 0xffff0000, 0xffff0000, 0xffffffff, 0xffff0000})

	patternDetectDisc1 = sigscan.MustPattern("DetectDisc1",
		[]uint32{0xac220cec, 0x0c000000, 0x00000000, 0x0c000000, 0x00000000, 0x3c02001f,
			0x26440000, 0x8c430c44, 0x0c000000, 0xac830008, 0x10000000, 0x26420000},
		[]uint32{0xffffffff, 0xfc000000, 0xffffffff, 0xfc000000, 0xffffffff, 0xffffffff,
			0xffff0000, 0xffffffff, 0xfc000000, 0xffffffff, 0xffff0000, 0xffff0000})

	patternDetectDisc2 = sigscan.MustPattern("DetectDisc2",
		[]uint32{0x3c02001f, 0x24030003, 0xac4305e8, 0x24040002, 0xac4405ec, 0x3c10001f, 0x24020001, 0xae0205e4, 0x0c000000},
		[]uint32{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff, 0xfc000000})

	patternMenuLoop = sigscan.Exact("MenuLoop",
		0x30621000, 0x10400007, 0x2604ffe8, 0x8c830010, 0x2462ffff, 0x0441000e, 0xac820010)

	/* Same loop, the pad state lives one word further away */
	patternMenuLoopProto = sigscan.Exact("MenuLoopProto",
		0x30621000, 0x10400007, 0x2604ffe4, 0x8c830010, 0x2462ffff, 0x0441000e, 0xac820010)

	patternVideoMode = sigscan.MustPattern("VideoMode",
		[]uint32{0xffbf0000, 0x0c000000, 0x00000000, 0x38420002, 0xdfbf0000, 0x2c420001},
		[]uint32{0xffffffff, 0xfc000000, 0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff})

	patternHDDLoad = sigscan.MustPattern("HDDLoad",
		[]uint32{0x0c000000, 0x0220282d, 0x3c04002a, 0x0000282d, 0x24840000, 0x0c000000, 0x0000302d, 0x04400000},
		[]uint32{0xfc000000, 0xffffffff, 0xffffffff, 0xffffffff, 0xffff0000, 0xfc000000, 0xffffffff, 0xffff0000})

	patternVersionInit = sigscan.MustPattern("VersionInit",
		[]uint32{0x00000000, 0x0c000000, 0x3c10001f, 0x1000ffad, 0x00000000},
		[]uint32{0xffffffff, 0xfc000000, 0xffffffff, 0xffffffff, 0xffffffff})

	/* lui v1, hi; mult; ori v1, v1, lo */
	patternVersionStringTable = sigscan.MustPattern("VersionStringTable",
		[]uint32{0x3c030000, 0x00000018, 0x34630000},
		[]uint32{0xffff0000, 0x00000018, 0xffff0000})

	patternGsGetGParam = sigscan.MustPattern("GsGetGParam",
		[]uint32{0x0c000000, 0x00000000, 0x3c031200, 0x24040200, 0x34631000},
		[]uint32{0xfc000000, 0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff})

	patternGsPutDispEnv = sigscan.MustPattern("GsPutDispEnv",
		[]uint32{0x0c000000, 0x00512021, 0x12000005, 0x00000000, 0x0c000000, 0x26240140, 0x10000004, 0xdfbf0020},
		[]uint32{0xfc000000, 0xffffffff, 0xffffffff, 0xffffffff, 0xfc000000, 0xffffffff, 0xffffffff, 0xffffffff})

	patternCdApplySCmd = sigscan.MustPattern("CdApplySCmd",
		[]uint32{0x0c000000, 0x00000000, 0x3c000000, 0x24000019, 0x00000000, 0x0c000000},
		[]uint32{0xfc000000, 0x00000000, 0xfc000000, 0xfc00ffff, 0x00000000, 0xfc000000})

	patternBrowserFileMenuInit = sigscan.Exact("BrowserFileMenuInit",
		0x27bdffe0, /* addiu sp, sp, -0x20 */
		0x30a500ff, /* andi a1, a1, 0xff */
	)

	/* lw v0, offset(gp) */
	patternBrowserSelectedMC = sigscan.MustPattern("BrowserSelectedMC",
		[]uint32{0x8f820000, 0x2442fffe, 0x2c420000},
		[]uint32{0xffff0000, 0xffffffff, 0xfffffff0})

	patternVersionInitProto = sigscan.MustPattern("VersionInitProto",
		[]uint32{0x24a615c8, 0x24a41598, 0x0c000000},
		[]uint32{0xffffffff, 0xffffffff, 0xfc000000})

	patternCdApplySCmdProto = sigscan.MustPattern("CdApplySCmdProto",
		[]uint32{0x26500000, 0x3c058000, 0x0200202d, 0x34a50593, 0x0c000000, 0x0000302d},
		[]uint32{0xffff0000, 0xffffffff, 0xffffffff, 0xffffffff, 0xfc000000, 0xffffffff})
)
