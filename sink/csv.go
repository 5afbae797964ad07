package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"github.com/use-agent/channelscout/models"
)

// CSVStore is the append-only tabular output file: UTF-8, one header row,
// one row per record. Rows are flushed as they are written so a crash can
// lose at most the record being extracted, never leave a partial row.
type CSVStore struct {
	path string
}

// NewCSVStore ensures the file exists with its header row. An existing file
// is left untouched so reruns keep appending.
func NewCSVStore(path string) (*CSVStore, error) {
	_, err := os.Stat(path)
	if err == nil {
		return &CSVStore{path: path}, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, models.NewSweepError(models.ErrCodeSink,
			fmt.Sprintf("failed to stat %s", path), err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, models.NewSweepError(models.ErrCodeSink,
			fmt.Sprintf("failed to create %s", path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.CSVHeader); err != nil {
		return nil, models.NewSweepError(models.ErrCodeSink, "failed to write header", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, models.NewSweepError(models.ErrCodeSink, "failed to flush header", err)
	}
	return &CSVStore{path: path}, nil
}

// Append writes one record and flushes it to disk.
func (s *CSVStore) Append(rec models.ResultRecord) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return models.NewSweepError(models.ErrCodeSink,
			fmt.Sprintf("failed to open %s for append", s.path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(rec.Row()); err != nil {
		return models.NewSweepError(models.ErrCodeSink, "failed to write record", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return models.NewSweepError(models.ErrCodeSink, "failed to flush record", err)
	}
	return nil
}

// ReadAll returns the full file contents as a grid, header row included.
func (s *CSVStore) ReadAll() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, models.NewSweepError(models.ErrCodeSink,
			fmt.Sprintf("failed to open %s", s.path), err)
	}
	defer f.Close()

	grid, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, models.NewSweepError(models.ErrCodeSink,
			fmt.Sprintf("failed to parse %s", s.path), err)
	}
	return grid, nil
}
