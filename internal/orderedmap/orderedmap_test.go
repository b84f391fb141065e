package orderedmap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetKeepsFirstPosition(t *testing.T) {
	m := New[int]()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, m.Keys())
	v, ok := m.Get("b")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, m.Len())
}

func TestAllStopsEarly(t *testing.T) {
	m := New[string]()
	m.Set("x", "1")
	m.Set("y", "2")
	m.Set("z", "3")

	var seen []string
	for k := range m.All() {
		seen = append(seen, k)
		if k == "y" {
			break
		}
	}
	assert.Equal(t, []string{"x", "y"}, seen)
}

func TestJSONPreservesOrder(t *testing.T) {
	m := New[string]()
	m.Set("zeta", "z")
	m.Set("alpha", "a")
	m.Set("Žmolíková", "ž")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"z","alpha":"a","Žmolíková":"ž"}`, string(data))

	decoded := New[string]()
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, []string{"zeta", "alpha", "Žmolíková"}, decoded.Keys())
}

func TestUnmarshalRejectsArray(t *testing.T) {
	m := New[int]()
	err := json.Unmarshal([]byte(`[1,2]`), m)
	assert.Error(t, err)
}

func TestNilMapIsEmpty(t *testing.T) {
	var m *Map[int]
	assert.Equal(t, 0, m.Len())
	for range m.All() {
		t.Fatal("nil map must not yield")
	}
}
