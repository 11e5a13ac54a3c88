// Package weights persists model parameters as msgpack files keyed by
// parameter name. Loading is all-or-nothing: every parameter of the target
// model must be present with a matching shape before anything is mutated.
package weights

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/segnetgo/internal/tensor"
)

// entry is the serialized form of a single parameter.
type entry struct {
	Shape []int     `msgpack:"shape"`
	Data  []float32 `msgpack:"data"`
}

type file struct {
	Params map[string]entry `msgpack:"params"`
}

// Save writes every parameter of the model. Parameters whose data was never
// materialized are written as zeros of their declared shape.
func Save(m *tensor.Model, path string) error {
	f := file{Params: make(map[string]entry)}
	for _, p := range m.Parameters() {
		data := p.Data
		if data == nil {
			data = make([]float32, p.Elements())
		}
		f.Params[p.Name] = entry{Shape: append([]int(nil), p.Shape...), Data: data}
	}

	raw, err := msgpack.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encoding weights: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing weights file: %w", err)
	}
	return nil
}

// Load reads a weights file into the model. The file must contain an entry
// of the exact declared shape for every model parameter; on any mismatch the
// model is left untouched.
func Load(m *tensor.Model, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading weights file: %w", err)
	}
	var f file
	if err := msgpack.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("decoding weights file %q: %w", path, err)
	}

	params := m.Parameters()

	// Validate the whole file against the model first, then commit.
	staged := make([][]float32, len(params))
	for i, p := range params {
		e, ok := f.Params[p.Name]
		if !ok {
			return fmt.Errorf("weights file %q has no entry for parameter %q", path, p.Name)
		}
		if !shapeEqual(e.Shape, p.Shape) {
			return fmt.Errorf("parameter %q: file shape %v does not match model shape %v", p.Name, e.Shape, p.Shape)
		}
		if len(e.Data) != p.Elements() {
			return fmt.Errorf("parameter %q: %d values for shape %v", p.Name, len(e.Data), e.Shape)
		}
		staged[i] = e.Data
	}
	for i, p := range params {
		p.Data = staged[i]
	}
	return nil
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
