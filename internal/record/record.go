// Package record writes one parquet row per agent turn for offline
// analysis.
package record

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// TurnRow summarises one planned turn.
type TurnRow struct {
	Session   string `parquet:"session,dict" json:"session"`
	Match     int32  `parquet:"match" json:"match"`
	Step      int32  `parquet:"step" json:"step"`
	MatchStep int32  `parquet:"match_step" json:"match_step"`

	Points int32 `parquet:"points" json:"points"`
	Reward int32 `parquet:"reward" json:"reward"`
	Units  int32 `parquet:"units" json:"units"`

	UnitX      []int32 `parquet:"unit_x" json:"unit_x"`
	UnitY      []int32 `parquet:"unit_y" json:"unit_y"`
	UnitEnergy []int32 `parquet:"unit_energy" json:"unit_energy"`

	Harvesters int32 `parquet:"harvesters" json:"harvesters"`
	Explorers  int32 `parquet:"explorers" json:"explorers"`
	Healers    int32 `parquet:"healers" json:"healers"`

	RelicCells   int32 `parquet:"relic_cells" json:"relic_cells"`
	RewardCells  int32 `parquet:"reward_cells" json:"reward_cells"`
	RelicsFound  bool  `parquet:"relics_found" json:"relics_found"`
	RewardsFound bool  `parquet:"rewards_found" json:"rewards_found"`

	Shifted    bool  `parquet:"shifted" json:"shifted"`
	Period     int32 `parquet:"period" json:"period"`
	DirectionX int32 `parquet:"direction_x" json:"direction_x"`
	DirectionY int32 `parquet:"direction_y" json:"direction_y"`

	// ActionTypes holds the chosen action type of every unit slot.
	ActionTypes []int32 `parquet:"action_types" json:"action_types"`
	PlanMicros  int64   `parquet:"plan_micros" json:"plan_micros"`
}

// Writer appends turn rows to a parquet file. The file appears at its final
// path only after Close.
type Writer struct {
	session string
	path    string
	tmpPath string

	file   *os.File
	writer *parquet.GenericWriter[TurnRow]
	rows   int
}

// NewWriter creates a writer for path. Every row is stamped with session.
func NewWriter(path, session string) (*Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("record path is required")
	}
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}
	w := parquet.NewGenericWriter[TurnRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", "turn_row_v1")
	w.SetKeyValueMetadata("session", session)

	return &Writer{session: session, path: path, tmpPath: tmpPath, file: f, writer: w}, nil
}

func (w *Writer) Path() string { return w.path }
func (w *Writer) Rows() int    { return w.rows }

// Write appends one row.
func (w *Writer) Write(row TurnRow) error {
	if w.writer == nil {
		return fmt.Errorf("record writer is closed")
	}
	row.Session = w.session
	if _, err := w.writer.Write([]TurnRow{row}); err != nil {
		return fmt.Errorf("write turn row: %w", err)
	}
	w.rows++
	return nil
}

// Close flushes the file and moves it into place. A writer that never got
// a row leaves no file behind.
func (w *Writer) Close() error {
	if w.writer == nil {
		return nil
	}
	closeErr := w.writer.Close()
	w.writer = nil
	_ = w.file.Sync()
	fileErr := w.file.Close()
	w.file = nil

	if closeErr != nil {
		return fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return fmt.Errorf("close parquet file: %w", fileErr)
	}
	if w.rows == 0 {
		_ = os.Remove(w.tmpPath)
		return nil
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

// ReadFile loads every row of a file written by Writer.
func ReadFile(path string) ([]TurnRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	reader := parquet.NewGenericReader[TurnRow](pf)
	defer reader.Close()

	rows := make([]TurnRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows[:n], nil
}
