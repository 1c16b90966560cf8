package cube

import (
	"errors"
	"fmt"
	"time"
)

// NPVCube is the dense 4D result store of a simulation run, indexed by
// (trade, date, sample, depth). Dimensions are fixed at construction.
// The valuation engine is the sole writer; consumers treat a filled cube
// as read-only.
type NPVCube interface {
	AsOf() time.Time
	IDs() []string
	Dates() []time.Time
	Samples() int
	Depth() int

	// T0 values sit outside the date grid (today's valuation).
	GetT0(id, depth int) (float64, error)
	SetT0(id, depth int, value float64) error

	Get(id, date, sample, depth int) (float64, error)
	Set(id, date, sample, depth int, value float64) error
}

// ErrIndexOutOfRange is returned for any index outside the cube dimensions,
// including writes to depth > 0 on a single-depth cube.
var ErrIndexOutOfRange = errors.New("cube index out of range")

// dims carries the shared dimension bookkeeping of the in-memory cubes.
type dims struct {
	asof    time.Time
	ids     []string
	dates   []time.Time
	samples int
	depth   int
}

func (d *dims) AsOf() time.Time    { return d.asof }
func (d *dims) IDs() []string      { return d.ids }
func (d *dims) Dates() []time.Time { return d.dates }
func (d *dims) Samples() int       { return d.samples }
func (d *dims) Depth() int         { return d.depth }

func (d *dims) check(id, date, sample, depth int) error {
	if id < 0 || id >= len(d.ids) {
		return fmt.Errorf("%w: id %d (numIds %d)", ErrIndexOutOfRange, id, len(d.ids))
	}
	if date < 0 || date >= len(d.dates) {
		return fmt.Errorf("%w: date %d (numDates %d)", ErrIndexOutOfRange, date, len(d.dates))
	}
	if sample < 0 || sample >= d.samples {
		return fmt.Errorf("%w: sample %d (samples %d)", ErrIndexOutOfRange, sample, d.samples)
	}
	if depth < 0 || depth >= d.depth {
		return fmt.Errorf("%w: depth %d (depth %d)", ErrIndexOutOfRange, depth, d.depth)
	}
	return nil
}

func (d *dims) checkT0(id, depth int) error {
	if id < 0 || id >= len(d.ids) {
		return fmt.Errorf("%w: id %d (numIds %d)", ErrIndexOutOfRange, id, len(d.ids))
	}
	if depth < 0 || depth >= d.depth {
		return fmt.Errorf("%w: depth %d (depth %d)", ErrIndexOutOfRange, depth, d.depth)
	}
	return nil
}

// pos maps the index quadruple to the flat offset in (id, date, sample,
// depth) iteration order. This order is also the file layout.
func (d *dims) pos(id, date, sample, depth int) int {
	return ((id*len(d.dates)+date)*d.samples+sample)*d.depth + depth
}
