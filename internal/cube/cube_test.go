package cube

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAsof  = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	testIDs   = []string{"swap-1", "swap-2", "fxfwd-1"}
	testDates = []time.Time{
		time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC),
	}
)

func TestInMemory_SetGet(t *testing.T) {
	c := NewInMemory(testAsof, testIDs, testDates, 4)

	assert.Equal(t, 1, c.Depth())
	assert.Equal(t, 4, c.Samples())

	require.NoError(t, c.Set(2, 1, 3, 0, 123.5))
	v, err := c.Get(2, 1, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 123.5, v)

	// untouched cells stay at the 0 sentinel
	v, err = c.Get(0, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	require.NoError(t, c.SetT0(1, 0, -7.25))
	v, err = c.GetT0(1, 0)
	require.NoError(t, err)
	assert.Equal(t, -7.25, v)
}

func TestInMemory_RejectsDepthBeyondZero(t *testing.T) {
	c := NewInMemory(testAsof, testIDs, testDates, 2)

	err := c.Set(0, 0, 0, 1, 1.0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = c.Get(0, 0, 0, 1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	err = c.SetT0(0, 1, 1.0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestInMemory_BoundsChecks(t *testing.T) {
	c := NewInMemory(testAsof, testIDs, testDates, 2)

	tests := []struct {
		name                   string
		id, date, sample, dpth int
	}{
		{"id too large", 3, 0, 0, 0},
		{"negative id", -1, 0, 0, 0},
		{"date too large", 0, 2, 0, 0},
		{"sample too large", 0, 0, 2, 0},
		{"negative depth", 0, 0, 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Set(tt.id, tt.date, tt.sample, tt.dpth, 1.0)
			assert.ErrorIs(t, err, ErrIndexOutOfRange)
		})
	}
}

func TestInMemoryN_SetGet(t *testing.T) {
	c := NewInMemoryN(testAsof, testIDs, testDates, 3, 2)

	assert.Equal(t, 2, c.Depth())

	require.NoError(t, c.Set(1, 0, 2, 0, 10.0))
	require.NoError(t, c.Set(1, 0, 2, 1, 0.5))

	npv, err := c.Get(1, 0, 2, 0)
	require.NoError(t, err)
	flow, err := c.Get(1, 0, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 10.0, npv)
	assert.Equal(t, 0.5, flow)

	// depth bounds still enforced
	err = c.Set(1, 0, 2, 2, 1.0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.dat")

	c := NewInMemoryN(testAsof, testIDs, testDates, 3, 2)
	// a value that is not exactly representable, to pin down the float32
	// bit-level round trip
	require.NoError(t, c.Set(0, 0, 0, 0, 0.1))
	require.NoError(t, c.Set(2, 1, 2, 1, -42.75))
	require.NoError(t, c.SetT0(1, 1, 3.14159))

	require.NoError(t, Save(c, path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, c.AsOf(), loaded.AsOf())
	assert.Equal(t, c.IDs(), loaded.IDs())
	assert.Equal(t, c.Dates(), loaded.Dates())
	assert.Equal(t, c.Samples(), loaded.Samples())
	assert.Equal(t, c.Depth(), loaded.Depth())

	for i := range testIDs {
		for d := 0; d < c.Depth(); d++ {
			want, err := c.GetT0(i, d)
			require.NoError(t, err)
			got, err := loaded.GetT0(i, d)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		for j := range testDates {
			for k := 0; k < c.Samples(); k++ {
				for d := 0; d < c.Depth(); d++ {
					want, err := c.Get(i, j, k, d)
					require.NoError(t, err)
					got, err := loaded.Get(i, j, k, d)
					require.NoError(t, err)
					assert.Equal(t, want, got, "cell (%d,%d,%d,%d)", i, j, k, d)
				}
			}
		}
	}
}

func TestSaveLoad_NeverWrittenCube(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dat")

	c := NewInMemory(testAsof, testIDs, testDates, 2)
	require.NoError(t, Save(c, path))

	loaded, err := Load(path)
	require.NoError(t, err)

	// depth-1 files come back as the compact variant
	_, ok := loaded.(*InMemory)
	assert.True(t, ok)

	for i := range testIDs {
		for j := range testDates {
			for k := 0; k < 2; k++ {
				v, err := loaded.Get(i, j, k, 0)
				require.NoError(t, err)
				assert.Equal(t, 0.0, v)
			}
		}
	}
}

func TestLoad_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.dat")
	require.NoError(t, os.WriteFile(path, []byte("not a cube at all"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "bad magic")
}
