package runner

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/oskarlind/riskcube/internal/postprocess"
)

// Report file names inside the output directory.
const (
	xvaReportFile        = "xva.csv"
	exposureReportFile   = "exposure.csv"
	allocationReportFile = "allocations.csv"
)

func writeReports(dir string, res *postprocess.Results) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := writeXVAReport(filepath.Join(dir, xvaReportFile), res); err != nil {
		return err
	}
	if err := writeExposureReport(filepath.Join(dir, exposureReportFile), res); err != nil {
		return err
	}
	return writeAllocationReport(filepath.Join(dir, allocationReportFile), res)
}

func writeCSV(path string, write func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := write(w); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return f.Close()
}

func writeXVAReport(path string, res *postprocess.Results) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{
			"nettingSet", "cva", "dva", "fba", "fca",
			"colva", "collateralFloor", "kva", "mva",
		}); err != nil {
			return err
		}
		for _, ns := range res.NettingSetList {
			x := res.NettingSetXVA[ns]
			row := []string{
				ns,
				num(x.CVA), num(x.DVA), num(x.FBA), num(x.FCA),
				num(x.COLVA), num(x.CollateralFloor), num(x.KVA), num(x.MVA),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeExposureReport(path string, res *postprocess.Results) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"nettingSet", "date", "epe", "ene", "pfe", "expectedDim"}); err != nil {
			return err
		}
		for _, ns := range res.NettingSetList {
			epe := res.NettingSetEPE[ns]
			ene := res.NettingSetENE[ns]
			pfe := res.NettingSetPFE[ns]
			dim := res.ExpectedDIM[ns]
			for i, d := range res.Dates {
				row := []string{
					ns, d.Format("2006-01-02"),
					num(epe[i]), num(ene[i]), num(pfe[i]), num(dim[i]),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func writeAllocationReport(path string, res *postprocess.Results) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"trade", "allocatedCva", "allocatedDva"}); err != nil {
			return err
		}
		trades := make([]string, 0, len(res.AllocatedCVA))
		for trade := range res.AllocatedCVA {
			trades = append(trades, trade)
		}
		sort.Strings(trades)
		for _, trade := range trades {
			row := []string{trade, num(res.AllocatedCVA[trade]), num(res.AllocatedDVA[trade])}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
