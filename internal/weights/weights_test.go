package weights

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/segnetgo/internal/tensor"
)

// tinyModel builds input -> conv(name, filters) and packages it. The conv
// contributes a kernel and a bias parameter.
func tinyModel(t *testing.T, convName string, filters int) *tensor.Model {
	t.Helper()
	g := tensor.NewGraph(tensor.ChannelsLast)
	in, err := g.Input("in", tensor.Shape{8, 8, 3})
	require.NoError(t, err)
	out, err := g.Conv2D(convName, in, filters, 3, 1, true, "glorot_uniform", "relu")
	require.NoError(t, err)
	m, err := tensor.NewModel(in, out)
	require.NoError(t, err)
	return m
}

func fillSequential(m *tensor.Model) {
	v := float32(0)
	for _, p := range m.Parameters() {
		data := make([]float32, p.Elements())
		for i := range data {
			data[i] = v
			v++
		}
		p.Data = data
	}
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.msgpack")

	src := tinyModel(t, "c1", 4)
	fillSequential(src)
	require.NoError(t, Save(src, path))

	dst := tinyModel(t, "c1", 4)
	require.NoError(t, Load(dst, path))

	srcParams, dstParams := src.Parameters(), dst.Parameters()
	require.Len(t, dstParams, len(srcParams))
	for i := range srcParams {
		assert.Equal(t, srcParams[i].Data, dstParams[i].Data, srcParams[i].Name)
	}
}

func TestSave_UnmaterializedParamsWrittenAsZeros(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.msgpack")

	src := tinyModel(t, "c1", 2)
	require.NoError(t, Save(src, path))

	dst := tinyModel(t, "c1", 2)
	require.NoError(t, Load(dst, path))
	for _, p := range dst.Parameters() {
		require.Len(t, p.Data, p.Elements())
		for _, v := range p.Data {
			assert.Zero(t, v)
		}
	}
}

func TestLoad_MissingEntryLeavesModelUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.msgpack")
	require.NoError(t, Save(tinyModel(t, "c1", 4), path))

	dst := tinyModel(t, "c2", 4)
	err := Load(dst, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entry")

	for _, p := range dst.Parameters() {
		assert.Nil(t, p.Data, p.Name)
	}
}

func TestLoad_ShapeMismatchLeavesModelUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.msgpack")
	require.NoError(t, Save(tinyModel(t, "c1", 4), path))

	dst := tinyModel(t, "c1", 8)
	err := Load(dst, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match model shape")

	for _, p := range dst.Parameters() {
		assert.Nil(t, p.Data, p.Name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	err := Load(tinyModel(t, "c1", 4), filepath.Join(t.TempDir(), "absent.msgpack"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading weights file")
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.msgpack")
	require.NoError(t, os.WriteFile(path, []byte("not msgpack"), 0o644))

	err := Load(tinyModel(t, "c1", 4), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding weights file")
}
