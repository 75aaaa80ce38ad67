package classconf

import (
	"fmt"
	"net"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeWith[T any](t *testing.T, specs []*Spec, spec *Spec, node *Map) (*T, error) {
	t.Helper()
	sch, err := buildSchema(specs)
	require.NoError(t, err)
	out := reflect.New(spec.typ)
	if err := sch.decodeRecord(spec, node, nil, out.Elem()); err != nil {
		return nil, err
	}
	return out.Interface().(*T), nil
}

func TestDecodeRecord(t *testing.T) {
	type limits struct {
		MaxConns int           `classconf:"max_conns"`
		Timeout  time.Duration `classconf:"timeout"`
	}
	type service struct {
		Name   string `classconf:"name"`
		Port   int    `classconf:"port"`
		Bind   net.IP `classconf:"bind"`
		Limits limits `classconf:"limits"`
	}

	limitsSpec := MustSpec[limits]()
	serviceSpec := MustSpec[service](WithName("service"))
	specs := []*Spec{serviceSpec, limitsSpec}

	node := func() *Map {
		m := NewMap()
		m.Set("name", "api")
		m.Set("port", int64(9000))
		m.Set("bind", "10.0.0.1")
		inner := NewMap()
		inner.Set("max_conns", "64")
		inner.Set("timeout", "5s")
		m.Set("limits", inner)
		return m
	}

	t.Run("FullDecode", func(t *testing.T) {
		got, err := decodeWith[service](t, specs, serviceSpec, node())
		require.NoError(t, err)
		assert.Equal(t, "api", got.Name)
		assert.Equal(t, 9000, got.Port)
		assert.True(t, got.Bind.Equal(net.ParseIP("10.0.0.1")))
		assert.Equal(t, 64, got.Limits.MaxConns)
		assert.Equal(t, 5*time.Second, got.Limits.Timeout)
	})

	t.Run("MissingKey", func(t *testing.T) {
		m := node()
		incomplete := NewMap()
		for _, k := range m.Keys() {
			if k == "port" {
				continue
			}
			v, _ := m.Get(k)
			incomplete.Set(k, v)
		}

		_, err := decodeWith[service](t, specs, serviceSpec, incomplete)
		require.ErrorIs(t, err, ErrMissingKey)
		assert.Contains(t, err.Error(), `"port"`)
		assert.Contains(t, err.Error(), `"service"`)
	})

	t.Run("UnknownKeysIgnored", func(t *testing.T) {
		m := node()
		m.Set("extra", "whatever")

		got, err := decodeWith[service](t, specs, serviceSpec, m)
		require.NoError(t, err)
		assert.Equal(t, "api", got.Name)
	})

	t.Run("WeakCoercion", func(t *testing.T) {
		m := node()
		m.Set("port", "9000")

		got, err := decodeWith[service](t, specs, serviceSpec, m)
		require.NoError(t, err)
		assert.Equal(t, 9000, got.Port)
	})

	t.Run("CoercionFailure", func(t *testing.T) {
		m := node()
		m.Set("port", "not-a-number")

		_, err := decodeWith[service](t, specs, serviceSpec, m)
		assert.ErrorIs(t, err, ErrTypeCoercion)
	})

	t.Run("NullNestedLeavesZero", func(t *testing.T) {
		m := node()
		m.Set("limits", nil)

		got, err := decodeWith[service](t, specs, serviceSpec, m)
		require.NoError(t, err)
		assert.Zero(t, got.Limits)
	})

	t.Run("NestedScalarFails", func(t *testing.T) {
		m := node()
		m.Set("limits", 42)

		_, err := decodeWith[service](t, specs, serviceSpec, m)
		assert.ErrorIs(t, err, ErrParse)
	})
}

func TestDecodePointerNested(t *testing.T) {
	type tls struct {
		Cert string `classconf:"cert"`
	}
	type listener struct {
		Addr string `classconf:"addr"`
		TLS  *tls   `classconf:"tls"`
	}

	tlsSpec := MustSpec[tls]()
	listenerSpec := MustSpec[listener](WithName("listener"))
	specs := []*Spec{listenerSpec, tlsSpec}

	t.Run("Present", func(t *testing.T) {
		m := NewMap()
		m.Set("addr", ":443")
		inner := NewMap()
		inner.Set("cert", "/etc/cert.pem")
		m.Set("tls", inner)

		got, err := decodeWith[listener](t, specs, listenerSpec, m)
		require.NoError(t, err)
		require.NotNil(t, got.TLS)
		assert.Equal(t, "/etc/cert.pem", got.TLS.Cert)
	})

	t.Run("NullStaysNil", func(t *testing.T) {
		m := NewMap()
		m.Set("addr", ":80")
		m.Set("tls", nil)

		got, err := decodeWith[listener](t, specs, listenerSpec, m)
		require.NoError(t, err)
		assert.Nil(t, got.TLS)
	})
}

func TestDecodeCustomDeserializer(t *testing.T) {
	type scaled struct {
		Factor int `classconf:"factor"`
	}

	t.Run("StatelessShape", func(t *testing.T) {
		spec := MustSpec[scaled](
			WithFieldDeserializer("Factor", func(raw any) (any, error) {
				s, ok := raw.(string)
				if !ok {
					return nil, fmt.Errorf("expected string, got %T", raw)
				}
				return strconv.Atoi(strings.TrimSuffix(s, "x"))
			}),
		)

		m := NewMap()
		m.Set("factor", "8x")
		got, err := decodeWith[scaled](t, []*Spec{spec}, spec, m)
		require.NoError(t, err)
		assert.Equal(t, 8, got.Factor)
	})

	t.Run("DeserializerErrorPropagates", func(t *testing.T) {
		spec := MustSpec[scaled](
			WithFieldDeserializer("Factor", func(raw any) (any, error) {
				return nil, fmt.Errorf("bad factor")
			}),
		)

		m := NewMap()
		m.Set("factor", "8x")
		_, err := decodeWith[scaled](t, []*Spec{spec}, spec, m)
		assert.ErrorContains(t, err, "bad factor")
	})

	t.Run("NullReachesDeserializer", func(t *testing.T) {
		spec := MustSpec[scaled](
			WithFieldDeserializer("Factor", func(raw any) (any, error) {
				if raw == nil {
					return 99, nil
				}
				return raw, nil
			}),
		)

		m := NewMap()
		m.Set("factor", nil)
		got, err := decodeWith[scaled](t, []*Spec{spec}, spec, m)
		require.NoError(t, err)
		assert.Equal(t, 99, got.Factor)
	})

	t.Run("MismatchedResultFails", func(t *testing.T) {
		spec := MustSpec[scaled](
			WithFieldDeserializer("Factor", func(raw any) (any, error) {
				return []string{"nope"}, nil
			}),
		)

		m := NewMap()
		m.Set("factor", "8x")
		_, err := decodeWith[scaled](t, []*Spec{spec}, spec, m)
		assert.ErrorIs(t, err, ErrTypeCoercion)
	})
}

func TestDecodeRenamedKey(t *testing.T) {
	type counted struct {
		Count int `classconf:"count"`
	}
	spec := MustSpec[counted](WithFieldKey("Count", "count_value"))

	m := NewMap()
	m.Set("count_value", 5)
	got, err := decodeWith[counted](t, []*Spec{spec}, spec, m)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Count)

	// The original key alone no longer satisfies the field.
	m2 := NewMap()
	m2.Set("count", 5)
	_, err = decodeWith[counted](t, []*Spec{spec}, spec, m2)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	type backend struct {
		DSN     string        `classconf:"dsn"`
		Retries int           `classconf:"retries"`
		Wait    time.Duration `classconf:"wait"`
	}
	type app struct {
		Name    string   `classconf:"name"`
		Hosts   []string `classconf:"hosts"`
		Backend backend  `classconf:"backend"`
	}

	backendSpec := MustSpec[backend]()
	appSpec := MustSpec[app](WithName("app"))
	specs := []*Spec{appSpec, backendSpec}

	original := app{
		Name:  "roundtrip",
		Hosts: []string{"a.example", "b.example"},
		Backend: backend{
			DSN:     "postgres://localhost/db",
			Retries: 2,
			Wait:    1500 * time.Millisecond,
		},
	}

	sch, err := buildSchema(specs)
	require.NoError(t, err)
	doc, err := sch.encodeRecord(appSpec, reflect.ValueOf(original))
	require.NoError(t, err)

	got, err := decodeWith[app](t, specs, appSpec, doc)
	require.NoError(t, err)
	assert.Equal(t, original, *got)
}
