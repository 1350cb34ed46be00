package reporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/five82/scv/internal/speed"
	"github.com/five82/scv/internal/tune"
	"github.com/five82/scv/internal/util"
)

// CSVReporter appends one row per completed trial to a CSV file. All other
// events are ignored.
type CSVReporter struct {
	NullReporter

	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
	mode tune.ControlMode
	err  error
}

// csvHeader returns the column names for mode. The control column is named
// after the rate control in use.
func csvHeader(mode tune.ControlMode) []string {
	control := "Bitrate"
	if mode == tune.Quantizer {
		control = "Qfac"
	}
	return []string{
		"Test#", control, "vmaf", "Pass1CTime", "Pass2CTime", "NetCTime",
		"NetRT", "Speed", "Tune", "FwdKF", "RTDeadline", "Size",
	}
}

// NewCSVReporter creates path and writes the header. An existing file is
// only replaced when force is set.
func NewCSVReporter(path string, mode tune.ControlMode, force bool) (*CSVReporter, error) {
	if util.FileExists(path) && !force {
		return nil, fmt.Errorf("csv file %s already exists (use --force to overwrite)", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create csv file: %w", err)
	}

	r := &CSVReporter{file: f, w: csv.NewWriter(f), mode: mode}
	if err := r.w.Write(csvHeader(mode)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	r.w.Flush()
	return r, nil
}

func boolColumn(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (r *CSVReporter) TrialComplete(rec tune.Record) {
	control := strconv.FormatFloat(rec.Control, 'f', -1, 64)
	if r.mode == tune.Quantizer {
		control = strconv.Itoa(int(rec.Control))
	}

	row := []string{
		strconv.Itoa(int(rec.Phase)),
		control,
		strconv.FormatFloat(rec.Quality, 'f', -1, 64),
		strconv.FormatFloat(rec.CPUTimePass1, 'f', -1, 64),
		strconv.FormatFloat(rec.CPUTimePass2, 'f', -1, 64),
		strconv.FormatFloat(rec.NetCPUTime(), 'f', -1, 64),
		strconv.FormatFloat(rec.WallTime, 'f', -1, 64),
		strconv.Itoa(rec.Speed.CPULevel),
		rec.Speed.Tuning.String(),
		boolColumn(rec.Speed.ForwardKeyframes),
		boolColumn(rec.Speed.Deadline == speed.Realtime),
		strconv.FormatUint(rec.OutputSize, 10),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	if err := r.w.Write(row); err != nil {
		r.err = err
		return
	}
	// Rows are flushed per trial so a cancelled run keeps what it measured.
	r.w.Flush()
	r.err = r.w.Error()
}

// Err returns the first write error, if any.
func (r *CSVReporter) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close flushes and closes the file.
func (r *CSVReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	r.w.Flush()
	err := r.file.Close()
	r.file = nil
	if r.err != nil {
		return r.err
	}
	return err
}
