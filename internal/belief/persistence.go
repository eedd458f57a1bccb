package belief

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Snapshot is the serialisable form of a Grid.
type Snapshot struct {
	Rows       int
	Cols       int
	NumSources float64
	Rates      []float64 // row-major
}

// Snapshot captures the current grid state.
func (g *Grid) Snapshot() Snapshot {
	return Snapshot{
		Rows:       g.rows,
		Cols:       g.cols,
		NumSources: g.k,
		Rates:      g.Rates(),
	}
}

// Restore rebuilds a Grid from a snapshot, checking its shape and the
// non-negative, finite rate invariant.
func Restore(s Snapshot) (*Grid, error) {
	g, err := NewGrid(s.Rows, s.Cols, s.NumSources)
	if err != nil {
		return nil, err
	}
	if len(s.Rates) != s.Rows*s.Cols {
		return nil, fmt.Errorf("snapshot has %d rates, want %d", len(s.Rates), s.Rows*s.Cols)
	}
	rates := make([]float64, len(s.Rates))
	copy(rates, s.Rates)
	g.belief = mat.NewDense(s.Rows, s.Cols, rates)
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	return g, nil
}

// EncodeSnapshot compresses a snapshot using gob encoding and gzip compression.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(s); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot decompresses and decodes a snapshot from a gob+gzip blob.
func DecodeSnapshot(blob []byte) (Snapshot, error) {
	if len(blob) == 0 {
		return Snapshot{}, fmt.Errorf("empty belief blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var s Snapshot
	if err := gob.NewDecoder(gz).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode belief snapshot: %w", err)
	}
	return s, nil
}
