package aggregation

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemory_CursorWalk(t *testing.T) {
	d := NewInMemory(2, 3, []string{"EUR"}, []string{"USD-LIBOR-3M"})

	// same write pattern the sim market produces: dates inner, samples outer
	for k := 0; k < 3; k++ {
		for i := 0; i < 2; i++ {
			require.NoError(t, d.Set(Numeraire, "", float64(100*k+i)))
			require.NoError(t, d.Set(FXSpot, "EUR", 1.08))
			require.NoError(t, d.Set(IndexFixing, "USD-LIBOR-3M", 0.02))
			d.Next()
		}
	}

	v, err := d.Get(1, 2, Numeraire, "")
	require.NoError(t, err)
	assert.Equal(t, 201.0, v)

	v, err = d.Get(0, 0, FXSpot, "EUR")
	require.NoError(t, err)
	assert.Equal(t, 1.08, v)
}

func TestInMemory_RejectsUnconfiguredQualifier(t *testing.T) {
	d := NewInMemory(1, 1, []string{"EUR"}, nil)

	err := d.Set(FXSpot, "JPY", 150.0)
	assert.ErrorContains(t, err, `fx currency "JPY" not configured`)

	err = d.Set(IndexFixing, "EUR-EURIBOR-6M", 0.03)
	assert.ErrorContains(t, err, "not configured")

	_, err = d.Get(0, 0, FXSpot, "JPY")
	assert.Error(t, err)
}

func TestInMemory_IndexBounds(t *testing.T) {
	d := NewInMemory(2, 2, nil, nil)

	_, err := d.Get(2, 0, Numeraire, "")
	assert.ErrorContains(t, err, "date index 2 out of range")

	_, err = d.Get(0, 5, Numeraire, "")
	assert.ErrorContains(t, err, "sample 5 out of range")
}

func TestSampleSlice(t *testing.T) {
	d := NewInMemory(2, 4, nil, nil)

	// worker owning samples [2,4)
	v := d.SampleSlice(2)
	require.NoError(t, v.Set(Numeraire, "", 7.0))
	v.Next()
	require.NoError(t, v.Set(Numeraire, "", 8.0))
	v.Next()
	// wrapped to sample 3
	require.NoError(t, v.Set(Numeraire, "", 9.0))

	got, err := d.Get(0, 2, Numeraire, "")
	require.NoError(t, err)
	assert.Equal(t, 7.0, got)
	got, err = d.Get(1, 2, Numeraire, "")
	require.NoError(t, err)
	assert.Equal(t, 8.0, got)
	got, err = d.Get(0, 3, Numeraire, "")
	require.NoError(t, err)
	assert.Equal(t, 9.0, got)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sd.dat")

	d := NewInMemory(2, 2, []string{"EUR", "JPY"}, []string{"USD-LIBOR-3M"})
	require.NoError(t, d.SetAt(0, 0, Numeraire, "", 1.0))
	require.NoError(t, d.SetAt(1, 1, Numeraire, "", 1.0625))
	require.NoError(t, d.SetAt(1, 0, FXSpot, "EUR", 1.0812))
	require.NoError(t, d.SetAt(0, 1, FXSpot, "JPY", 149.35))
	require.NoError(t, d.SetAt(1, 1, IndexFixing, "USD-LIBOR-3M", 0.0234))

	require.NoError(t, d.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, loaded.DimDates())
	assert.Equal(t, 2, loaded.DimSamples())
	assert.Equal(t, []string{"EUR", "JPY"}, loaded.Currencies())
	assert.Equal(t, []string{"USD-LIBOR-3M"}, loaded.Indices())

	for i := 0; i < 2; i++ {
		for k := 0; k < 2; k++ {
			for _, q := range []struct {
				t DataType
				s string
			}{{Numeraire, ""}, {FXSpot, "EUR"}, {FXSpot, "JPY"}, {IndexFixing, "USD-LIBOR-3M"}} {
				want, err := d.Get(i, k, q.t, q.s)
				require.NoError(t, err)
				got, err := loaded.Get(i, k, q.t, q.s)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
		}
	}
}
