package source

import (
	"encoding/hex"
	"fmt"

	"github.com/minio/sha256-simd"
)

// Fingerprint content-addresses a loaded source buffer (plain SHA-256 of
// its bytes). The loader records it on every Buffer; it does not
// deduplicate buffers by it.
// Grounded on utils/Fingerprint.go's digest approach, trimmed to the
// serialization this driver actually needs (no Archive/build-graph
// round-trip, just hex text and equality).
type Fingerprint [sha256.Size]byte

func FingerprintOf(data []byte) Fingerprint {
	return Fingerprint(sha256.Sum256(data))
}

func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

func (f Fingerprint) Valid() bool {
	for _, b := range f {
		if b != 0 {
			return true
		}
	}
	return false
}

func (f *Fingerprint) Set(s string) error {
	data, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(data) != sha256.Size {
		return fmt.Errorf("fingerprint: unexpected string length %q", s)
	}
	copy(f[:], data)
	return nil
}
