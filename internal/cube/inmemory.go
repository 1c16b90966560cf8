package cube

import "time"

// Values are stored in single precision. Computation upstream is double
// precision; the cube is the storage format, and the file round trip
// preserves the stored float32 bits exactly.

// InMemory is the compact cube with depth fixed to 1 (NPV only).
// Writes to any depth other than 0 are rejected.
type InMemory struct {
	dims
	t0   []float32
	data []float32
}

// NewInMemory allocates a depth-1 cube with all cells at the 0 sentinel.
func NewInMemory(asof time.Time, ids []string, dates []time.Time, samples int) *InMemory {
	c := &InMemory{
		dims: dims{asof: asof, ids: ids, dates: dates, samples: samples, depth: 1},
	}
	c.t0 = make([]float32, len(ids))
	c.data = make([]float32, len(ids)*len(dates)*samples)
	return c
}

func (c *InMemory) GetT0(id, depth int) (float64, error) {
	if err := c.checkT0(id, depth); err != nil {
		return 0, err
	}
	return float64(c.t0[id]), nil
}

func (c *InMemory) SetT0(id, depth int, value float64) error {
	if err := c.checkT0(id, depth); err != nil {
		return err
	}
	c.t0[id] = float32(value)
	return nil
}

func (c *InMemory) Get(id, date, sample, depth int) (float64, error) {
	if err := c.check(id, date, sample, depth); err != nil {
		return 0, err
	}
	return float64(c.data[c.pos(id, date, sample, 0)]), nil
}

func (c *InMemory) Set(id, date, sample, depth int, value float64) error {
	if err := c.check(id, date, sample, depth); err != nil {
		return err
	}
	c.data[c.pos(id, date, sample, 0)] = float32(value)
	return nil
}

// InMemoryN is the general cube with configurable depth (e.g. 2 for
// NPV + cashflow). Same external contract as InMemory, more capacity.
type InMemoryN struct {
	dims
	t0   []float32
	data []float32
}

// NewInMemoryN allocates a cube with the given depth.
func NewInMemoryN(asof time.Time, ids []string, dates []time.Time, samples, depth int) *InMemoryN {
	c := &InMemoryN{
		dims: dims{asof: asof, ids: ids, dates: dates, samples: samples, depth: depth},
	}
	c.t0 = make([]float32, len(ids)*depth)
	c.data = make([]float32, len(ids)*len(dates)*samples*depth)
	return c
}

func (c *InMemoryN) GetT0(id, depth int) (float64, error) {
	if err := c.checkT0(id, depth); err != nil {
		return 0, err
	}
	return float64(c.t0[id*c.depth+depth]), nil
}

func (c *InMemoryN) SetT0(id, depth int, value float64) error {
	if err := c.checkT0(id, depth); err != nil {
		return err
	}
	c.t0[id*c.depth+depth] = float32(value)
	return nil
}

func (c *InMemoryN) Get(id, date, sample, depth int) (float64, error) {
	if err := c.check(id, date, sample, depth); err != nil {
		return 0, err
	}
	return float64(c.data[c.pos(id, date, sample, depth)]), nil
}

func (c *InMemoryN) Set(id, date, sample, depth int, value float64) error {
	if err := c.check(id, date, sample, depth); err != nil {
		return err
	}
	c.data[c.pos(id, date, sample, depth)] = float32(value)
	return nil
}
