package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRoundsFloats(t *testing.T) {
	out := SanitizeKpiResults(map[string]interface{}{
		"mean":  3.14159,
		"exact": 2.0,
		"f32":   float32(1.005),
	})
	assert.Equal(t, 3.14, out["mean"])
	assert.Equal(t, 2.0, out["exact"])
	assert.InDelta(t, 1.0, out["f32"].(float64), 0.02)
}

func TestSanitizeRecursesIntoMapsAndSlices(t *testing.T) {
	out := SanitizeKpiResults(map[string]interface{}{
		"by_region": map[string]float64{"west": 10.556, "east": 20.0},
		"top":       []interface{}{1.999, "a", map[string]interface{}{"деep": 0.123}},
		"floats":    []float64{1.111, 2.222},
		"names":     []string{"x", "y"},
		"counts":    map[string]int{"a": 3},
	})

	byRegion := out["by_region"].(map[string]interface{})
	assert.Equal(t, 10.56, byRegion["west"])
	assert.Equal(t, 20.0, byRegion["east"])

	top := out["top"].([]interface{})
	assert.Equal(t, 2.0, top[0])
	assert.Equal(t, "a", top[1])
	assert.Equal(t, 0.12, top[2].(map[string]interface{})["деep"])

	assert.Equal(t, []interface{}{1.11, 2.22}, out["floats"])
	assert.Equal(t, []interface{}{"x", "y"}, out["names"])
	assert.Equal(t, int64(3), out["counts"].(map[string]interface{})["a"])
}

func TestSanitizeScalars(t *testing.T) {
	out := SanitizeKpiResults(map[string]interface{}{
		"int":  42,
		"bool": true,
		"str":  "hello",
		"nil":  nil,
	})
	assert.Equal(t, int64(42), out["int"])
	assert.Equal(t, true, out["bool"])
	assert.Equal(t, "hello", out["str"])
	assert.Nil(t, out["nil"])
}

func TestSanitizeStringifiesUnknownTypes(t *testing.T) {
	type odd struct{ X int }
	out := SanitizeKpiResults(map[string]interface{}{
		"odd": odd{X: 7},
		"ch":  make(chan int),
	})
	assert.Equal(t, "{7}", out["odd"])
	require.IsType(t, "", out["ch"])
}

func TestSanitizeNonFiniteFloats(t *testing.T) {
	out := SanitizeKpiResults(map[string]interface{}{
		"nan": math.NaN(),
		"inf": math.Inf(1),
	})
	assert.Equal(t, "NaN", out["nan"])
	assert.Equal(t, "+Inf", out["inf"])
}

func TestSanitizeNil(t *testing.T) {
	assert.Nil(t, SanitizeKpiResults(nil))
}
