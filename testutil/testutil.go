package testutil

import (
	"fmt"
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// FillBytes fills dst with random bytes.
func (r *RNG) FillBytes(dst []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Read(dst)
}

// Blobs generates num random elements of size bytes each.
// Uses a single backing array for efficiency.
func (r *RNG) Blobs(num, size int) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]byte, num*size)
	r.rand.Read(data)

	blobs := make([][]byte, num)
	for i := range num {
		blobs[i] = data[i*size : (i+1)*size : (i+1)*size]
	}
	return blobs
}

// VariableBlobs generates num random elements with sizes in [minSize, maxSize].
func (r *RNG) VariableBlobs(num, minSize, maxSize int) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	blobs := make([][]byte, num)
	for i := range num {
		b := make([]byte, minSize+r.rand.Intn(maxSize-minSize+1))
		r.rand.Read(b)
		blobs[i] = b
	}
	return blobs
}

// Peak is one centroid of a mass spectrum.
type Peak struct {
	Mz        float64 `json:"mz"`
	Intensity float64 `json:"intensity"`
}

// Spectrum is a reference record as stored in spectral libraries.
type Spectrum struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Adduct      string  `json:"adduct"`
	PrecursorMz float64 `json:"precursor_mz"`
	Peaks       []Peak  `json:"peaks"`
}

var adducts = []string{"[M+H]+", "[M+Na]+", "[M+NH4]+", "[M-H]-", "[M+HCOO]-"}

// Spectra generates num spectra with peaks centroids each.
func (r *RNG) Spectra(num, peaks int) []Spectrum {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Spectrum, num)
	for i := range num {
		s := Spectrum{
			ID:          int64(i),
			Name:        fmt.Sprintf("PC %d:%d", 30+r.rand.Intn(12), r.rand.Intn(7)),
			Adduct:      adducts[r.rand.Intn(len(adducts))],
			PrecursorMz: 400 + r.rand.Float64()*600,
			Peaks:       make([]Peak, peaks),
		}
		for j := range s.Peaks {
			s.Peaks[j] = Peak{
				Mz:        50 + r.rand.Float64()*s.PrecursorMz,
				Intensity: r.rand.Float64() * 1e6,
			}
		}
		out[i] = s
	}
	return out
}
