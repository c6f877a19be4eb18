// Command romscriptdump reads a text archive entry from a ROM image and
// prints its decoded scripts, one element per line. It exists to
// exercise Driver end to end, the same role the teacher's cmd/dtest
// plays for macho.File: a short, direct smoke test rather than a full
// command-line tool.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/zedseven/romscript"
	"github.com/zedseven/romscript/types"
)

func main() {
	romPath := flag.String("rom", "", "path to the ROM or file image")
	offset := flag.Int64("offset", 0, "offset of the entry to dump")
	size := flag.Int64("size", 0, "entry size in bytes")
	compressed := flag.Bool("compressed", false, "entry is LZ77-compressed")
	sizeHeader := flag.Bool("size-header", false, "entry's (decompressed) data begins with a 4-byte size header")
	flag.Parse()

	if *romPath == "" {
		fmt.Fprintln(os.Stderr, "romscriptdump: -rom is required")
		os.Exit(2)
	}

	data, err := os.ReadFile(*romPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "romscriptdump:", err)
		os.Exit(1)
	}

	db := romscript.NewCommandDatabase("generic")
	driver := romscript.NewDriver(db, nil, nil)

	entry := &types.Entry{Offset: *offset, Size: *size, Compressed: *compressed, SizeHeader: *sizeHeader}
	archive, err := driver.ReadArchive(data, entry, fmt.Sprintf("%#x", *offset))
	if err != nil {
		fmt.Fprintln(os.Stderr, "romscriptdump:", err)
		os.Exit(1)
	}

	for si, script := range archive.Scripts {
		fmt.Printf("script %d:\n", si)
		for _, el := range script.Elements {
			switch v := el.(type) {
			case *romscript.TextElement:
				fmt.Printf("  text %q\n", v.Text)
			case *romscript.ByteElement:
				fmt.Printf("  byte %s\n", hex.EncodeToString([]byte{v.Byte}))
			case *romscript.Command:
				fmt.Printf("  command %s\n", v.Def.Name)
			default:
				fmt.Printf("  element %T\n", v)
			}
		}
	}
}
