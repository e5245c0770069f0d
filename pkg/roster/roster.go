// Package roster manages the student roster table: a read-only id to name
// directory for the attendance core, and a repository for enrollment CRUD.
package roster

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/MrCodeEU/faceattend/pkg/logging"
	"github.com/MrCodeEU/faceattend/pkg/table"
)

// Header is the roster table schema.
var Header = []string{"ID", "Name", "Division", "Gender", "DOB", "Email", "Phone No", "Address", "Teacher", "PhotoSample"}

const (
	colID = iota
	colName
	colDivision
	colGender
	colDOB
	colEmail
	colPhone
	colAddress
	colTeacher
	colPhotoSample
)

// ErrRosterNotFound is returned when the roster table has never been created.
var ErrRosterNotFound = errors.New("roster not found")

// ErrStudentNotFound is returned when an id is not in the roster.
var ErrStudentNotFound = errors.New("student not found")

// ErrStudentExists is returned when adding an id that is already present.
var ErrStudentExists = errors.New("student id already exists")

// ErrInvalidID is returned for non-positive ids.
var ErrInvalidID = errors.New("student id must be a positive integer")

// Student is one roster row.
type Student struct {
	ID          int
	Name        string
	Division    string
	Gender      string
	DOB         string
	Email       string
	Phone       string
	Address     string
	Teacher     string
	PhotoSample bool
}

func (s Student) row() []string {
	photo := "No"
	if s.PhotoSample {
		photo = "Yes"
	}
	return []string{
		strconv.Itoa(s.ID), s.Name, s.Division, s.Gender, s.DOB,
		s.Email, s.Phone, s.Address, s.Teacher, photo,
	}
}

func fromRow(id int, row []string) Student {
	return Student{
		ID:          id,
		Name:        table.Cell(row, colName),
		Division:    table.Cell(row, colDivision),
		Gender:      table.Cell(row, colGender),
		DOB:         table.Cell(row, colDOB),
		Email:       table.Cell(row, colEmail),
		Phone:       table.Cell(row, colPhone),
		Address:     table.Cell(row, colAddress),
		Teacher:     table.Cell(row, colTeacher),
		PhotoSample: strings.EqualFold(table.Cell(row, colPhotoSample), "yes"),
	}
}

// ParseID parses a roster id cell. Spreadsheet applications may store ids as
// floats ("3.0"); integral floats are accepted.
func ParseID(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, false
		}
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f <= 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// Directory is the read-only id to name view of the roster.
type Directory struct {
	store table.Store
}

// NewDirectory returns a directory over store.
func NewDirectory(store table.Store) *Directory {
	return &Directory{store: store}
}

// Load returns the id to name mapping. Rows with a missing or non-integer id
// are skipped; for duplicate ids the last row wins.
func (d *Directory) Load() (map[int]string, error) {
	t, err := d.store.Load()
	if errors.Is(err, table.ErrNotExist) {
		return nil, ErrRosterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	names := make(map[int]string, len(t.Rows))
	skipped := 0
	for _, row := range t.Rows {
		id, ok := ParseID(table.Cell(row, colID))
		if !ok {
			skipped++
			continue
		}
		names[id] = table.Cell(row, colName)
	}

	if skipped > 0 {
		logging.Debugf("Skipped %d roster row(s) without a valid id", skipped)
	}
	return names, nil
}

// IDs returns the keys of names in ascending order.
func IDs(names map[int]string) []int {
	ids := make([]int, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
