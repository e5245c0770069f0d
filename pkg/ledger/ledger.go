// Package ledger records attendance, at most once per identity per calendar
// day. It is the sole writer of the attendance table.
package ledger

import (
	"fmt"
	"strconv"
	"time"

	"github.com/MrCodeEU/faceattend/pkg/logging"
	"github.com/MrCodeEU/faceattend/pkg/metrics"
	"github.com/MrCodeEU/faceattend/pkg/roster"
	"github.com/MrCodeEU/faceattend/pkg/table"
)

// Header is the attendance table schema.
var Header = []string{"ID", "Name", "Date", "Period", "Time"}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Result is the outcome of Record. Neither value is an error.
type Result int

const (
	Recorded Result = iota + 1
	AlreadyRecordedToday
)

func (r Result) String() string {
	switch r {
	case Recorded:
		return "recorded"
	case AlreadyRecordedToday:
		return "already_recorded_today"
	default:
		return "unknown"
	}
}

// Record is one attendance row.
type Record struct {
	IdentityID int
	Name       string
	Date       string
	Period     string
	Time       string
}

// PeriodLabel names the hour slot of the day: hour 9 is "10th Period".
func PeriodLabel(hour int) string {
	return fmt.Sprintf("%dth Period", hour+1)
}

// NewRecord derives date, period and time from ts.
func NewRecord(id int, name string, ts time.Time) Record {
	return Record{
		IdentityID: id,
		Name:       name,
		Date:       ts.Format(DateLayout),
		Period:     PeriodLabel(ts.Hour()),
		Time:       ts.Format(TimeLayout),
	}
}

func (r Record) row() []string {
	return []string{strconv.Itoa(r.IdentityID), r.Name, r.Date, r.Period, r.Time}
}

// Ledger appends attendance records to a table store.
type Ledger struct {
	store table.Store
}

// New returns a ledger over store.
func New(store table.Store) *Ledger {
	return &Ledger{store: store}
}

// Record appends a row for id unless one already exists for the calendar date
// of ts, in which case nothing is written.
func (l *Ledger) Record(id int, name string, ts time.Time) (Result, error) {
	t, err := table.LoadOrCreate(l.store, Header)
	if err != nil {
		return 0, fmt.Errorf("failed to load attendance: %w", err)
	}

	rec := NewRecord(id, name, ts)
	for _, row := range t.Rows {
		rid, ok := roster.ParseID(table.Cell(row, 0))
		if ok && rid == id && table.Cell(row, 2) == rec.Date {
			logging.Infof("Attendance for %d already recorded on %s", id, rec.Date)
			metrics.AttendanceRecorded(AlreadyRecordedToday.String())
			return AlreadyRecordedToday, nil
		}
	}

	t.Append(rec.row())
	if err := l.store.Save(t); err != nil {
		return 0, fmt.Errorf("failed to save attendance: %w", err)
	}

	logging.WithFields(logging.Fields{
		"identity_id": id,
		"date":        rec.Date,
		"period":      rec.Period,
	}).Info("Attendance recorded")
	metrics.AttendanceRecorded(Recorded.String())
	return Recorded, nil
}

// List returns every record in table order. A missing table yields none.
func (l *Ledger) List() ([]Record, error) {
	t, err := table.LoadOrCreate(l.store, Header)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}

	records := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		id, _ := roster.ParseID(table.Cell(row, 0))
		records = append(records, Record{
			IdentityID: id,
			Name:       table.Cell(row, 1),
			Date:       table.Cell(row, 2),
			Period:     table.Cell(row, 3),
			Time:       table.Cell(row, 4),
		})
	}
	return records, nil
}
