package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// tuneLog writes one CSV row per evaluation: eval, fitness, then one column
// per parameter.
type tuneLog struct {
	f *os.File
	w *csv.Writer
}

func newTuneLog(path string, names []string) (*tuneLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating tune log: %w", err)
	}
	l := &tuneLog{f: f, w: csv.NewWriter(f)}
	if err := l.write(append([]string{"eval", "fitness"}, names...)); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// Record appends and flushes one evaluation row.
func (l *tuneLog) Record(eval int, fitness float64, params []float64) error {
	row := make([]string, 0, len(params)+2)
	row = append(row, strconv.Itoa(eval), fmt.Sprintf("%.6f", fitness))
	for _, v := range params {
		row = append(row, fmt.Sprintf("%.6f", v))
	}
	return l.write(row)
}

func (l *tuneLog) write(row []string) error {
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("writing tune log: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("flushing tune log: %w", err)
	}
	return nil
}

func (l *tuneLog) Close() error {
	l.w.Flush()
	return errors.Join(l.w.Error(), l.f.Close())
}
