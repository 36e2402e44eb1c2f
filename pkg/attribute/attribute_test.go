package attribute_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dpsimgo/corepsim/pkg/attribute"
)

func TestRealHandleRoundTrip(t *testing.T) {
	v := 0.0
	h := attribute.NewReal(func() float64 { return v }, func(n float64) { v = n })

	assert.Equal(t, attribute.Real, h.Type)
	assert.True(t, h.Flags&attribute.Readable != 0)
	assert.True(t, h.Flags&attribute.Writable != 0)

	require := assert.New(t)
	require.NoError(h.SetReal(3.5))
	got, err := h.GetReal()
	require.NoError(err)
	require.Equal(3.5, got)
	require.Equal(3.5, v)
}

func TestReadOnlyRealHandleRejectsSet(t *testing.T) {
	h := attribute.NewReal(func() float64 { return 1 }, nil)
	assert.False(t, h.Flags&attribute.Writable != 0)
	assert.Error(t, h.SetReal(2))
}

func TestWriteOnlyRealHandleRejectsGet(t *testing.T) {
	h := attribute.NewReal(nil, func(float64) {})
	assert.False(t, h.Flags&attribute.Readable != 0)
	_, err := h.GetReal()
	assert.Error(t, err)
}

func TestComplexHandleRoundTrip(t *testing.T) {
	var v complex128
	h := attribute.NewComplex(func() complex128 { return v }, func(n complex128) { v = n })
	assert.NoError(t, h.SetComplex(complex(1, 2)))
	got, err := h.GetComplex()
	assert.NoError(t, err)
	assert.Equal(t, complex(1, 2), got)
}

func TestMatrixRealHandleRoundTrip(t *testing.T) {
	var v []float64
	h := attribute.NewMatrixReal(func() []float64 { return v }, func(n []float64) { v = n })
	assert.NoError(t, h.SetMatrixReal([]float64{1, 2, 3}))
	got, err := h.GetMatrixReal()
	assert.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestMatrixComplexHandleRoundTrip(t *testing.T) {
	var v []complex128
	h := attribute.NewMatrixComplex(func() []complex128 { return v }, func(n []complex128) { v = n })
	assert.NoError(t, h.SetMatrixComplex([]complex128{complex(1, 1)}))
	got, err := h.GetMatrixComplex()
	assert.NoError(t, err)
	assert.Equal(t, []complex128{complex(1, 1)}, got)
}

func TestTypeMismatchIsRejected(t *testing.T) {
	h := attribute.NewReal(func() float64 { return 1 }, nil)
	_, err := h.GetComplex()
	assert.Error(t, err)
	_, err = h.GetMatrixReal()
	assert.Error(t, err)
}

func TestTableNamesListsEveryEntry(t *testing.T) {
	tbl := attribute.New()
	tbl["V"] = attribute.NewReal(func() float64 { return 1 }, nil)
	tbl["I"] = attribute.NewReal(func() float64 { return 2 }, nil)

	names := tbl.Names()
	assert.ElementsMatch(t, []string{"V", "I"}, names)
}
