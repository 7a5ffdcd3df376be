// lldump prints the headers and chunk table of a serialized list file.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/pflag"

	"github.com/systemsomicslab/largelist/chunk"
	"github.com/systemsomicslab/largelist/format"
	"github.com/systemsomicslab/largelist/index"
)

// previewBytes bounds the hex preview of binary elements.
const previewBytes = 64

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type report struct {
	File        string        `json:"file"`
	Size        int64         `json:"size"`
	Version     uint16        `json:"version"`
	Codec       string        `json:"codec"`
	Compression string        `json:"compression"`
	Elements    uint64        `json:"elements"`
	Ceiling     uint64        `json:"chunk_size_ceiling"`
	Chunks      []chunkReport `json:"chunks"`
	Verified    *bool         `json:"verified,omitempty"`
	VerifyError string        `json:"verify_error,omitempty"`
	Element     *elementDump  `json:"element,omitempty"`
}

type chunkReport struct {
	Offset       int64  `json:"offset"`
	FirstElement uint64 `json:"first_element"`
	Elements     uint32 `json:"elements"`
	Compression  string `json:"compression"`
	Stored       uint64 `json:"stored_bytes"`
	Raw          uint64 `json:"raw_bytes"`
	Checksum     string `json:"crc32"`
}

type elementDump struct {
	Index  int64             `json:"index"`
	Length int               `json:"length"`
	JSON   gojson.RawMessage `json:"json,omitempty"`
	Hex    string            `json:"hex,omitempty"`
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("lldump", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	asJSON := flags.Bool("json", false, "Print the report as JSON")
	verify := flags.Bool("verify", false, "Read every element and verify chunk checksums")
	element := flags.Int64("element", -1, "Print the raw encoding of the element at this index")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "Usage: lldump [flags] FILE")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return 2
	}

	rep, err := inspect(flags.Arg(0), *verify, *element)
	if err != nil {
		fmt.Fprintf(stderr, "lldump: %v\n", err)
		return 1
	}

	if *asJSON {
		b, err := gojson.MarshalIndent(rep, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "lldump: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(b))
	} else {
		printText(stdout, rep)
	}
	if rep.Verified != nil && !*rep.Verified {
		return 1
	}
	return 0
}

func inspect(path string, verify bool, element int64) (*report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	x, err := index.Scan(f)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	rep := &report{
		File:        path,
		Size:        info.Size(),
		Version:     format.Version,
		Codec:       x.Header.Codec,
		Compression: x.Header.Compression.String(),
		Elements:    x.Header.ElementCount,
		Ceiling:     x.Header.ChunkSizeCeiling,
		Chunks:      make([]chunkReport, len(x.Chunks)),
	}
	for k, c := range x.Chunks {
		rep.Chunks[k] = chunkReport{
			Offset:       c.Offset,
			FirstElement: c.FirstElement,
			Elements:     c.Header.ElementCount,
			Compression:  c.Header.Compression.String(),
			Stored:       c.Header.ByteLength,
			Raw:          c.Header.RawLength,
			Checksum:     fmt.Sprintf("%08x", c.Header.Checksum),
		}
	}

	if element >= 0 {
		b, err := readElement(f, x, element)
		if err != nil {
			return nil, err
		}
		d := &elementDump{Index: element, Length: len(b)}
		if (x.Header.Codec == "json" || x.Header.Codec == "go-json") && gojson.Valid(b) {
			d.JSON = b
		} else {
			d.Hex = hex.EncodeToString(b[:min(len(b), previewBytes)])
		}
		rep.Element = d
	}

	if verify {
		err := verifyAll(f)
		ok := err == nil
		rep.Verified = &ok
		if err != nil {
			rep.VerifyError = err.Error()
		}
	}
	return rep, nil
}

// readElement returns the encoded bytes of element i without decoding them.
func readElement(f *os.File, x *index.Index, i int64) ([]byte, error) {
	k, within, err := x.Locate(i)
	if err != nil {
		return nil, err
	}
	entry := x.Chunks[k]
	cr := chunk.NewReader(io.NewSectionReader(f, entry.Offset, entry.End()-entry.Offset), chunk.ReaderOptions{})
	cr.ResumeAt(&x.Header, uint64(k), entry.FirstElement, 0)
	if _, err := cr.ReadChunkHeader(); err != nil {
		return nil, err
	}
	for range within {
		if err := cr.SkipElement(); err != nil {
			return nil, err
		}
	}
	return cr.ReadElement()
}

func verifyAll(f *os.File) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	cr := chunk.NewReader(f, chunk.ReaderOptions{VerifyChecksums: true})
	if _, err := cr.ReadGlobalHeader(); err != nil {
		return err
	}
	for {
		h, err := cr.ReadChunkHeader()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		for range h.ElementCount {
			if _, err := cr.ReadElement(); err != nil {
				return err
			}
		}
	}
}

func printText(w io.Writer, rep *report) {
	fmt.Fprintf(w, "file:        %s\n", rep.File)
	fmt.Fprintf(w, "size:        %d\n", rep.Size)
	fmt.Fprintf(w, "version:     %d\n", rep.Version)
	fmt.Fprintf(w, "codec:       %s\n", rep.Codec)
	fmt.Fprintf(w, "compression: %s\n", rep.Compression)
	fmt.Fprintf(w, "elements:    %d\n", rep.Elements)
	fmt.Fprintf(w, "chunks:      %d\n", len(rep.Chunks))
	fmt.Fprintf(w, "ceiling:     %d\n", rep.Ceiling)

	if len(rep.Chunks) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "chunk\toffset\tfirst\telements\tstored\traw\tcompression\tcrc32\t")
		for k, c := range rep.Chunks {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%s\t%s\t\n",
				k, c.Offset, c.FirstElement, c.Elements, c.Stored, c.Raw, c.Compression, c.Checksum)
		}
		_ = tw.Flush()
	}

	if d := rep.Element; d != nil {
		fmt.Fprintf(w, "\nelement %d (%d bytes):\n", d.Index, d.Length)
		if d.JSON != nil {
			fmt.Fprintln(w, string(d.JSON))
		} else {
			fmt.Fprintln(w, d.Hex)
		}
	}
	if rep.Verified != nil {
		if *rep.Verified {
			fmt.Fprintln(w, "\nchecksums:   ok")
		} else {
			fmt.Fprintf(w, "\nchecksums:   FAILED (%s)\n", rep.VerifyError)
		}
	}
}
