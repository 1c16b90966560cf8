package cube

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

// Binary cube file format, little endian:
//
//	magic   [4]byte "RCUB"
//	version uint32
//	asof    int64 (unix seconds, UTC)
//	numIds  uint32, then per id: uint16 length + bytes
//	numDates uint32, then per date: int64 unix seconds
//	samples uint32
//	depth   uint32
//	t0 block:    numIds*depth float32
//	value block: numIds*numDates*samples*depth float32
//	             in (id, date, sample, depth) order
//
// Values are stored as float32 bit patterns, so save/load round trips are
// bit-reproducible. Loading performs structural checks only; whether the
// cube matches a given portfolio is the consumer's business.

var fileMagic = [4]byte{'R', 'C', 'U', 'B'}

const fileVersion uint32 = 1

// Save writes the cube to path.
func Save(c NPVCube, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cube file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := write(c, w); err != nil {
		return fmt.Errorf("write cube file %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush cube file %s: %w", path, err)
	}
	return nil
}

// Load reads a cube from path. Depth 1 loads into the compact InMemory
// cube, anything deeper into InMemoryN.
func Load(path string) (NPVCube, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cube file: %w", err)
	}
	defer f.Close()

	c, err := read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read cube file %s: %w", path, err)
	}
	return c, nil
}

func write(c NPVCube, w io.Writer) error {
	if _, err := w.Write(fileMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, fileVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, c.AsOf().Unix()); err != nil {
		return err
	}

	ids := c.IDs()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		if err := binary.Write(w, binary.LittleEndian, uint16(len(id))); err != nil {
			return err
		}
		if _, err := w.Write([]byte(id)); err != nil {
			return err
		}
	}

	dates := c.Dates()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(dates))); err != nil {
		return err
	}
	for _, d := range dates {
		if err := binary.Write(w, binary.LittleEndian, d.Unix()); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(c.Samples())); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(c.Depth())); err != nil {
		return err
	}

	for i := range ids {
		for d := 0; d < c.Depth(); d++ {
			v, err := c.GetT0(i, d)
			if err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, float32(v)); err != nil {
				return err
			}
		}
	}

	for i := range ids {
		for j := range dates {
			for k := 0; k < c.Samples(); k++ {
				for d := 0; d < c.Depth(); d++ {
					v, err := c.Get(i, j, k, d)
					if err != nil {
						return err
					}
					if err := binary.Write(w, binary.LittleEndian, float32(v)); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func read(r io.Reader) (NPVCube, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != fileMagic {
		return nil, fmt.Errorf("bad magic %q, not a cube file", magic)
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != fileVersion {
		return nil, fmt.Errorf("unsupported cube file version %d", version)
	}

	var asofUnix int64
	if err := binary.Read(r, binary.LittleEndian, &asofUnix); err != nil {
		return nil, err
	}
	asof := time.Unix(asofUnix, 0).UTC()

	var numIds uint32
	if err := binary.Read(r, binary.LittleEndian, &numIds); err != nil {
		return nil, err
	}
	ids := make([]string, numIds)
	for i := range ids {
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		ids[i] = string(buf)
	}

	var numDates uint32
	if err := binary.Read(r, binary.LittleEndian, &numDates); err != nil {
		return nil, err
	}
	dates := make([]time.Time, numDates)
	for i := range dates {
		var u int64
		if err := binary.Read(r, binary.LittleEndian, &u); err != nil {
			return nil, err
		}
		dates[i] = time.Unix(u, 0).UTC()
	}

	var samples, depth uint32
	if err := binary.Read(r, binary.LittleEndian, &samples); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &depth); err != nil {
		return nil, err
	}
	if depth == 0 {
		return nil, fmt.Errorf("cube file carries depth 0")
	}

	var c NPVCube
	if depth == 1 {
		c = NewInMemory(asof, ids, dates, int(samples))
	} else {
		c = NewInMemoryN(asof, ids, dates, int(samples), int(depth))
	}

	for i := 0; i < int(numIds); i++ {
		for d := 0; d < int(depth); d++ {
			var v float32
			if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
				return nil, err
			}
			if err := c.SetT0(i, d, float64(v)); err != nil {
				return nil, err
			}
		}
	}

	for i := 0; i < int(numIds); i++ {
		for j := 0; j < int(numDates); j++ {
			for k := 0; k < int(samples); k++ {
				for d := 0; d < int(depth); d++ {
					var v float32
					if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
						return nil, err
					}
					if err := c.Set(i, j, k, d, float64(v)); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	return c, nil
}
