package aggregation

import (
	"fmt"
)

// DataType enumerates the auxiliary path-level series collected next to the
// NPV cube. The aggregation stage needs these to deflate and convert
// exposures; they are written by the same loop that fills the cube.
type DataType int

const (
	Numeraire DataType = iota
	FXSpot
	IndexFixing
)

func (t DataType) String() string {
	switch t {
	case Numeraire:
		return "Numeraire"
	case FXSpot:
		return "FXSpot"
	case IndexFixing:
		return "IndexFixing"
	default:
		return "?"
	}
}

// ScenarioData stores one record per (date, sample) with the numeraire and
// the configured FX spots and index fixings. Dimensions match the cube's
// date/sample axes.
type ScenarioData interface {
	DimDates() int
	DimSamples() int

	// Get reads the value at explicit (date, sample) indices. The
	// qualifier is empty for Numeraire, a currency for FXSpot and an
	// index name for IndexFixing.
	Get(dateIdx, sample int, t DataType, qualifier string) (float64, error)

	// Set writes at the internal cursor (see Next). The simulation market
	// calls Set for each series and then Next once per (date, sample).
	Set(t DataType, qualifier string, value float64) error

	// SetAt writes at explicit indices. Used by parallel cube builds where
	// each worker owns a disjoint sample range.
	SetAt(dateIdx, sample int, t DataType, qualifier string, value float64) error

	// Next advances the cursor: dates first, then the next sample.
	Next()
}

// InMemory is the dense in-memory ScenarioData. The qualifier sets
// (currencies, index names) are fixed at construction; writing an
// unconfigured qualifier is an error, consistent with the fail-fast
// treatment of scenario/sim-data mismatches.
type InMemory struct {
	dates   int
	samples int
	ccys    []string
	indices []string

	numeraire []float64            // dates*samples
	fx        map[string][]float64 // per ccy, dates*samples
	fixings   map[string][]float64 // per index, dates*samples

	dateCursor   int
	sampleCursor int
}

// NewInMemory allocates the store for the given dimensions and qualifier
// sets.
func NewInMemory(dates, samples int, ccys, indices []string) *InMemory {
	d := &InMemory{
		dates:     dates,
		samples:   samples,
		ccys:      append([]string(nil), ccys...),
		indices:   append([]string(nil), indices...),
		numeraire: make([]float64, dates*samples),
		fx:        make(map[string][]float64, len(ccys)),
		fixings:   make(map[string][]float64, len(indices)),
	}
	for _, c := range ccys {
		d.fx[c] = make([]float64, dates*samples)
	}
	for _, ix := range indices {
		d.fixings[ix] = make([]float64, dates*samples)
	}
	return d
}

func (d *InMemory) DimDates() int   { return d.dates }
func (d *InMemory) DimSamples() int { return d.samples }

// Currencies returns the configured FX qualifier set in file order.
func (d *InMemory) Currencies() []string { return d.ccys }

// Indices returns the configured index qualifier set in file order.
func (d *InMemory) Indices() []string { return d.indices }

func (d *InMemory) idx(dateIdx, sample int) (int, error) {
	if dateIdx < 0 || dateIdx >= d.dates {
		return 0, fmt.Errorf("scenario data: date index %d out of range (dates %d)", dateIdx, d.dates)
	}
	if sample < 0 || sample >= d.samples {
		return 0, fmt.Errorf("scenario data: sample %d out of range (samples %d)", sample, d.samples)
	}
	return dateIdx*d.samples + sample, nil
}

func (d *InMemory) series(t DataType, qualifier string) ([]float64, error) {
	switch t {
	case Numeraire:
		return d.numeraire, nil
	case FXSpot:
		s, ok := d.fx[qualifier]
		if !ok {
			return nil, fmt.Errorf("scenario data: fx currency %q not configured", qualifier)
		}
		return s, nil
	case IndexFixing:
		s, ok := d.fixings[qualifier]
		if !ok {
			return nil, fmt.Errorf("scenario data: index %q not configured", qualifier)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("scenario data: unknown data type %d", t)
	}
}

func (d *InMemory) Get(dateIdx, sample int, t DataType, qualifier string) (float64, error) {
	i, err := d.idx(dateIdx, sample)
	if err != nil {
		return 0, err
	}
	s, err := d.series(t, qualifier)
	if err != nil {
		return 0, err
	}
	return s[i], nil
}

func (d *InMemory) Set(t DataType, qualifier string, value float64) error {
	return d.SetAt(d.dateCursor, d.sampleCursor, t, qualifier, value)
}

func (d *InMemory) SetAt(dateIdx, sample int, t DataType, qualifier string, value float64) error {
	i, err := d.idx(dateIdx, sample)
	if err != nil {
		return err
	}
	s, err := d.series(t, qualifier)
	if err != nil {
		return err
	}
	s[i] = value
	return nil
}

func (d *InMemory) Next() {
	d.dateCursor++
	if d.dateCursor == d.dates {
		d.dateCursor = 0
		d.sampleCursor++
		if d.sampleCursor == d.samples {
			d.sampleCursor = 0
		}
	}
}

// SampleSlice returns a view with the cursor pinned to a fixed sample
// offset, so parallel workers can attach their own view to their own sim
// market and still write into the shared store.
func (d *InMemory) SampleSlice(sampleBase int) *SliceView {
	return &SliceView{store: d, sample: sampleBase}
}

// SliceView is a cursor-bearing view over a shared InMemory store for one
// worker's sample range.
type SliceView struct {
	store      *InMemory
	sample     int
	dateCursor int
}

func (v *SliceView) DimDates() int   { return v.store.dates }
func (v *SliceView) DimSamples() int { return v.store.samples }

func (v *SliceView) Get(dateIdx, sample int, t DataType, qualifier string) (float64, error) {
	return v.store.Get(dateIdx, sample, t, qualifier)
}

func (v *SliceView) Set(t DataType, qualifier string, value float64) error {
	return v.store.SetAt(v.dateCursor, v.sample, t, qualifier, value)
}

func (v *SliceView) SetAt(dateIdx, sample int, t DataType, qualifier string, value float64) error {
	return v.store.SetAt(dateIdx, sample, t, qualifier, value)
}

func (v *SliceView) Next() {
	v.dateCursor++
	if v.dateCursor == v.store.dates {
		v.dateCursor = 0
		v.sample++
	}
}
