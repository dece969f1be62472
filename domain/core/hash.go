package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// PanelFingerprint is the content hash of a panel's values and labels,
// recorded on preprocess runs for audit purposes.
type PanelFingerprint Hash

// String returns the string representation
func (f PanelFingerprint) String() string { return Hash(f).String() }

// ComputePanelFingerprint hashes the raw float64 block together with the
// participant and variable labels. NaN values hash to a single canonical
// bit pattern so that equal panels always fingerprint equally.
func ComputePanelFingerprint(values []float64, participants, variables []string) PanelFingerprint {
	buf := make([]byte, 0, len(values)*8)
	word := make([]byte, 8)
	for _, v := range values {
		bits := math.Float64bits(v)
		if math.IsNaN(v) {
			bits = math.Float64bits(math.NaN())
		}
		binary.LittleEndian.PutUint64(word, bits)
		buf = append(buf, word...)
	}

	// Labels are hashed in panel order: the value block is ordered by
	// participant then timestep then variable, so reordering labels is a
	// different panel.
	var labels strings.Builder
	for _, p := range participants {
		labels.WriteString(p)
		labels.WriteByte(0)
	}
	for _, v := range variables {
		labels.WriteString(v)
		labels.WriteByte(0)
	}

	return PanelFingerprint(NewHash(append(buf, []byte(labels.String())...)))
}
