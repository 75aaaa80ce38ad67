package classconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc() *Map {
	inner := NewMap()
	inner.Set("level", "info")
	inner.Set("rotate", true)

	doc := NewMap()
	doc.Set("zebra", "first")
	doc.Set("alpha", int64(2))
	doc.Set("hosts", []any{"a", "b"})
	doc.Set("log", inner)
	return doc
}

func TestDetectFormat(t *testing.T) {
	assert.IsType(t, &JSONFormat{}, DetectFormat("/etc/app.json"))
	assert.IsType(t, &YAMLFormat{}, DetectFormat("/etc/app.yaml"))
	assert.IsType(t, &YAMLFormat{}, DetectFormat("/etc/app.yml"))
	assert.IsType(t, &TOMLFormat{}, DetectFormat("/etc/app.toml"))
	assert.IsType(t, &TOMLFormat{}, DetectFormat("/etc/app"))
}

func TestFormatAbsentFile(t *testing.T) {
	for _, f := range []Format{NewTOMLFormat(), NewJSONFormat(), NewYAMLFormat()} {
		doc, err := f.Read(filepath.Join(t.TempDir(), "missing"+f.Ext()))
		require.NoError(t, err)
		assert.Nil(t, doc)
	}
}

func TestTOMLFormat(t *testing.T) {
	t.Run("ReadPreservesSourceOrder", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.toml")
		content := `zebra = "first"
alpha = 2

[log]
level = "info"
rotate = true
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		doc, err := NewTOMLFormat().Read(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"zebra", "alpha", "log"}, doc.Keys())

		raw, _ := doc.Get("log")
		inner := raw.(*Map)
		assert.Equal(t, []string{"level", "rotate"}, inner.Keys())
	})

	t.Run("WriteReadRoundTrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.toml")
		f := NewTOMLFormat()
		require.NoError(t, f.Write(path, sampleDoc()))

		got, err := f.Read(path)
		require.NoError(t, err)
		v, _ := got.Get("zebra")
		assert.Equal(t, "first", v)
		raw, _ := got.Get("log")
		level, _ := raw.(*Map).Get("level")
		assert.Equal(t, "info", level)
	})

	t.Run("NullSentinel", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.toml")
		doc := NewMap()
		doc.Set("optional", nil)
		doc.Set("present", "yes")

		f := NewTOMLFormat()
		require.NoError(t, f.Write(path, doc))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `optional = "null"`)

		got, err := f.Read(path)
		require.NoError(t, err)
		v, ok := got.Get("optional")
		require.True(t, ok)
		assert.Nil(t, v)
	})

	t.Run("CustomSentinel", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.toml")
		doc := NewMap()
		doc.Set("optional", nil)

		f := NewTOMLFormat(TOMLNullAs("~none~"))
		require.NoError(t, f.Write(path, doc))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `optional = "~none~"`)

		got, err := f.Read(path)
		require.NoError(t, err)
		v, _ := got.Get("optional")
		assert.Nil(t, v)
	})

	t.Run("OmitNull", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.toml")
		doc := NewMap()
		doc.Set("optional", nil)
		doc.Set("present", "yes")

		f := NewTOMLFormat(TOMLOmitNull())
		require.NoError(t, f.Write(path, doc))

		got, err := f.Read(path)
		require.NoError(t, err)
		assert.False(t, got.Has("optional"))
		assert.True(t, got.Has("present"))
	})

	t.Run("MalformedFails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.toml")
		require.NoError(t, os.WriteFile(path, []byte("key = [[[ nope"), 0644))

		_, err := NewTOMLFormat().Read(path)
		assert.ErrorIs(t, err, ErrParse)
	})
}

func TestJSONFormat(t *testing.T) {
	f := NewJSONFormat()

	t.Run("WriteReadRoundTrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.json")
		require.NoError(t, f.Write(path, sampleDoc()))

		got, err := f.Read(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"zebra", "alpha", "hosts", "log"}, got.Keys())

		v, _ := got.Get("alpha")
		assert.Equal(t, int64(2), v)
		hosts, _ := got.Get("hosts")
		assert.Equal(t, []any{"a", "b"}, hosts)
	})

	t.Run("NullValue", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.json")
		doc := NewMap()
		doc.Set("optional", nil)
		require.NoError(t, f.Write(path, doc))

		got, err := f.Read(path)
		require.NoError(t, err)
		v, ok := got.Get("optional")
		require.True(t, ok)
		assert.Nil(t, v)
	})

	t.Run("FloatsSurvive", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"ratio": 0.5}`), 0644))

		got, err := f.Read(path)
		require.NoError(t, err)
		v, _ := got.Get("ratio")
		assert.Equal(t, 0.5, v)
	})

	t.Run("NonObjectRootFails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.json")
		require.NoError(t, os.WriteFile(path, []byte(`[1, 2]`), 0644))

		_, err := f.Read(path)
		assert.ErrorIs(t, err, ErrParse)
	})

	t.Run("TrailingDataFails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.json")
		require.NoError(t, os.WriteFile(path, []byte(`{} garbage`), 0644))

		_, err := f.Read(path)
		assert.ErrorIs(t, err, ErrParse)
	})
}

func TestYAMLFormat(t *testing.T) {
	f := NewYAMLFormat()

	t.Run("WriteReadRoundTrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.yaml")
		require.NoError(t, f.Write(path, sampleDoc()))

		got, err := f.Read(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"zebra", "alpha", "hosts", "log"}, got.Keys())

		v, _ := got.Get("alpha")
		assert.Equal(t, int64(2), v)
	})

	t.Run("NullValue", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.yaml")
		require.NoError(t, os.WriteFile(path, []byte("optional: null\npresent: true\n"), 0644))

		got, err := f.Read(path)
		require.NoError(t, err)
		v, ok := got.Get("optional")
		require.True(t, ok)
		assert.Nil(t, v)
		p, _ := got.Get("present")
		assert.Equal(t, true, p)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.yaml")
		require.NoError(t, os.WriteFile(path, nil, 0644))

		got, err := f.Read(path)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Zero(t, got.Len())
	})

	t.Run("NonMappingRootFails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.yaml")
		require.NoError(t, os.WriteFile(path, []byte("- 1\n- 2\n"), 0644))

		_, err := f.Read(path)
		assert.ErrorIs(t, err, ErrParse)
	})
}

func TestAtomicWrite(t *testing.T) {
	t.Run("CreatesParentDirectories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "deep", "nested", "app.toml")
		doc := NewMap()
		doc.Set("key", "value")

		require.NoError(t, NewTOMLFormat().Write(path, doc))
		_, err := os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("LeavesNoTempFiles", func(t *testing.T) {
		dir := t.TempDir()
		doc := NewMap()
		doc.Set("key", "value")
		require.NoError(t, NewTOMLFormat().Write(filepath.Join(dir, "app.toml"), doc))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "app.toml", entries[0].Name())
	})
}
