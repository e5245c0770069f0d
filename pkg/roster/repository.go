package roster

import (
	"fmt"

	"github.com/MrCodeEU/faceattend/pkg/logging"
	"github.com/MrCodeEU/faceattend/pkg/table"
)

// Repository edits the roster table. Every mutation loads and rewrites the
// whole table.
type Repository struct {
	store table.Store
}

// NewRepository returns a repository over store.
func NewRepository(store table.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) load() (*table.Table, error) {
	t, err := table.LoadOrCreate(r.store, Header)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	return t, nil
}

func find(t *table.Table, id int) int {
	for i, row := range t.Rows {
		if n, ok := ParseID(table.Cell(row, colID)); ok && n == id {
			return i
		}
	}
	return -1
}

// Init creates the roster table with its header if it does not exist.
func (r *Repository) Init() error {
	if _, err := r.store.Load(); err == nil {
		return nil
	}
	t, err := r.load()
	if err != nil {
		return err
	}
	return r.store.Save(t)
}

// List returns every student with a valid id, in table order.
func (r *Repository) List() ([]Student, error) {
	t, err := r.load()
	if err != nil {
		return nil, err
	}

	var students []Student
	for _, row := range t.Rows {
		if id, ok := ParseID(table.Cell(row, colID)); ok {
			students = append(students, fromRow(id, row))
		}
	}
	return students, nil
}

// Get returns the student with id.
func (r *Repository) Get(id int) (Student, error) {
	t, err := r.load()
	if err != nil {
		return Student{}, err
	}
	i := find(t, id)
	if i < 0 {
		return Student{}, fmt.Errorf("%w: %d", ErrStudentNotFound, id)
	}
	return fromRow(id, t.Rows[i]), nil
}

// Add appends s. The id must be positive and not yet present.
func (r *Repository) Add(s Student) error {
	if s.ID <= 0 {
		return ErrInvalidID
	}
	t, err := r.load()
	if err != nil {
		return err
	}
	if find(t, s.ID) >= 0 {
		return fmt.Errorf("%w: %d", ErrStudentExists, s.ID)
	}

	t.Append(s.row())
	if err := r.store.Save(t); err != nil {
		return fmt.Errorf("failed to save roster: %w", err)
	}
	logging.Infof("Added student %d (%s)", s.ID, s.Name)
	return nil
}

// Update replaces the row of s.ID. The photo sample flag is kept as stored.
func (r *Repository) Update(s Student) error {
	t, err := r.load()
	if err != nil {
		return err
	}
	i := find(t, s.ID)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrStudentNotFound, s.ID)
	}

	s.PhotoSample = fromRow(s.ID, t.Rows[i]).PhotoSample
	t.Rows[i] = s.row()
	if err := r.store.Save(t); err != nil {
		return fmt.Errorf("failed to save roster: %w", err)
	}
	logging.Infof("Updated student %d", s.ID)
	return nil
}

// Remove deletes the row of id.
func (r *Repository) Remove(id int) error {
	t, err := r.load()
	if err != nil {
		return err
	}
	i := find(t, id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrStudentNotFound, id)
	}

	t.Rows = append(t.Rows[:i], t.Rows[i+1:]...)
	if err := r.store.Save(t); err != nil {
		return fmt.Errorf("failed to save roster: %w", err)
	}
	logging.Infof("Removed student %d", id)
	return nil
}

// MarkPhotoSample sets the PhotoSample column of id to Yes.
func (r *Repository) MarkPhotoSample(id int) error {
	t, err := r.load()
	if err != nil {
		return err
	}
	i := find(t, id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrStudentNotFound, id)
	}

	s := fromRow(id, t.Rows[i])
	s.PhotoSample = true
	t.Rows[i] = s.row()
	return r.store.Save(t)
}
