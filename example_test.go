package largelist_test

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"

	"github.com/systemsomicslab/largelist"
	"github.com/systemsomicslab/largelist/codec"
	"github.com/systemsomicslab/largelist/format"
)

type Record struct {
	Name string  `json:"name"`
	Mz   float64 `json:"mz"`
}

func records(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{Name: fmt.Sprintf("PC %d:0", 30+i%10), Mz: 700 + float64(i)}
	}
	return out
}

// Example_serialize writes a list to a buffer and reads it back.
func Example_serialize() {
	var buf bytes.Buffer
	idx, err := largelist.SerializeSlice(&buf, records(1000), largelist.WithChunkSizeCeiling(4096))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("elements:", idx.Len(), "chunks:", len(idx.Chunks))

	got, err := largelist.Deserialize[Record](&buf)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(got[999].Name, got[999].Mz)
	// Output:
	// elements: 1000 chunks: 9
	// PC 39:0 1699
}

// Example_randomAccess decodes one element without decoding the others.
func Example_randomAccess() {
	var buf bytes.Buffer
	if _, err := largelist.SerializeSlice(&buf, records(100)); err != nil {
		log.Fatal(err)
	}

	r := bytes.NewReader(buf.Bytes())
	rec, err := largelist.DeserializeAt[Record](r, 64)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(rec.Name, rec.Mz)

	_, err = largelist.DeserializeAt[Record](r, 100)
	fmt.Println(err)
	// Output:
	// PC 34:0 764
	// element index 100 out of range [0, 100)
}

// Example_file saves raw blobs with zstd-compressed chunks.
func Example_file() {
	dir, err := os.MkdirTemp("", "largelist")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "blobs.lls")

	blobs := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}
	_, err = largelist.SaveFile(path, slices.Values(blobs),
		largelist.WithCodec(codec.Bytes{}),
		largelist.WithCompression(format.CompressionZSTD),
	)
	if err != nil {
		log.Fatal(err)
	}

	b, err := largelist.LoadFileAt[[]byte](path, 2)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(b))
	// Output: gamma
}
