package aggregation

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Binary scenario data file format, little endian:
//
//	magic   [4]byte "RASD"
//	version uint32
//	dates   uint32
//	samples uint32
//	numCcys uint32, then per ccy: uint16 length + bytes
//	numIndices uint32, then per index: uint16 length + bytes
//	records: per (date, sample), date-major:
//	         numeraire float64, fx values in ccy order, fixings in
//	         index order
//
// The qualifier order in the header defines the record layout, so a file
// written with one configuration reads back identically.

var sdMagic = [4]byte{'R', 'A', 'S', 'D'}

const sdVersion uint32 = 1

// Save writes the store to path.
func (d *InMemory) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create scenario data file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := d.write(w); err != nil {
		return fmt.Errorf("write scenario data file %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush scenario data file %s: %w", path, err)
	}
	return nil
}

// Load reads a store from path.
func Load(path string) (*InMemory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario data file: %w", err)
	}
	defer f.Close()

	d, err := read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read scenario data file %s: %w", path, err)
	}
	return d, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (d *InMemory) write(w io.Writer) error {
	if _, err := w.Write(sdMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, sdVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(d.dates)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(d.samples)); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(d.ccys))); err != nil {
		return err
	}
	for _, c := range d.ccys {
		if err := writeString(w, c); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(d.indices))); err != nil {
		return err
	}
	for _, ix := range d.indices {
		if err := writeString(w, ix); err != nil {
			return err
		}
	}

	for i := 0; i < d.dates; i++ {
		for k := 0; k < d.samples; k++ {
			pos := i*d.samples + k
			if err := binary.Write(w, binary.LittleEndian, d.numeraire[pos]); err != nil {
				return err
			}
			for _, c := range d.ccys {
				if err := binary.Write(w, binary.LittleEndian, d.fx[c][pos]); err != nil {
					return err
				}
			}
			for _, ix := range d.indices {
				if err := binary.Write(w, binary.LittleEndian, d.fixings[ix][pos]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func read(r io.Reader) (*InMemory, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != sdMagic {
		return nil, fmt.Errorf("bad magic %q, not a scenario data file", magic)
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != sdVersion {
		return nil, fmt.Errorf("unsupported scenario data file version %d", version)
	}

	var dates, samples uint32
	if err := binary.Read(r, binary.LittleEndian, &dates); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &samples); err != nil {
		return nil, err
	}

	var numCcys uint32
	if err := binary.Read(r, binary.LittleEndian, &numCcys); err != nil {
		return nil, err
	}
	ccys := make([]string, numCcys)
	for i := range ccys {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		ccys[i] = s
	}

	var numIndices uint32
	if err := binary.Read(r, binary.LittleEndian, &numIndices); err != nil {
		return nil, err
	}
	indices := make([]string, numIndices)
	for i := range indices {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		indices[i] = s
	}

	d := NewInMemory(int(dates), int(samples), ccys, indices)

	for i := 0; i < d.dates; i++ {
		for k := 0; k < d.samples; k++ {
			pos := i*d.samples + k
			if err := binary.Read(r, binary.LittleEndian, &d.numeraire[pos]); err != nil {
				return nil, err
			}
			for _, c := range d.ccys {
				if err := binary.Read(r, binary.LittleEndian, &d.fx[c][pos]); err != nil {
					return nil, err
				}
			}
			for _, ix := range d.indices {
				if err := binary.Read(r, binary.LittleEndian, &d.fixings[ix][pos]); err != nil {
					return nil, err
				}
			}
		}
	}

	return d, nil
}
