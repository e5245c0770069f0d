package roster

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/MrCodeEU/faceattend/pkg/table"
)

func seeded(rows ...[]string) *table.Memory {
	t := table.New(Header)
	for _, r := range rows {
		t.Append(r)
	}
	return table.NewMemory(t)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1", 1, true},
		{" 42 ", 42, true},
		{"3.0", 3, true},
		{"3.5", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"0", 0, false},
		{"-4", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseID(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseID(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDirectory_Load(t *testing.T) {
	store := seeded(
		[]string{"1", "Ann"},
		[]string{"", "No Id"},
		[]string{"x7", "Bad Id"},
		[]string{"2", "Bob"},
		[]string{"2", "Bobby"},
		[]string{"3"},
	)

	names, err := NewDirectory(store).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := map[int]string{1: "Ann", 2: "Bobby", 3: ""}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Load() = %v, want %v", names, want)
	}
}

func TestDirectory_LoadMissing(t *testing.T) {
	_, err := NewDirectory(table.NewMemory(nil)).Load()
	if !errors.Is(err, ErrRosterNotFound) {
		t.Errorf("expected ErrRosterNotFound, got %v", err)
	}
}

func TestDirectory_NoSideEffects(t *testing.T) {
	store := seeded([]string{"1", "Ann"})

	if _, err := NewDirectory(store).Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if store.Saves() != 0 {
		t.Errorf("Load must not write, got %d saves", store.Saves())
	}
}

func TestIDs(t *testing.T) {
	got := IDs(map[int]string{3: "c", 1: "a", 2: "b"})
	if !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("IDs() = %v", got)
	}
}

func TestRepository_AddGetList(t *testing.T) {
	repo := NewRepository(table.NewMemory(nil))

	ann := Student{ID: 1, Name: "Ann", Division: "A", Gender: "Female", Email: "ann@example.com", Phone: "0123"}
	if err := repo.Add(ann); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := repo.Add(Student{ID: 2, Name: "Bob"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := repo.Get(1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !reflect.DeepEqual(got, ann) {
		t.Errorf("Get(1) = %+v, want %+v", got, ann)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[1].Name != "Bob" {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestRepository_AddErrors(t *testing.T) {
	repo := NewRepository(seeded([]string{"5", "Eve"}))

	tests := []struct {
		name    string
		student Student
		wantErr error
	}{
		{"duplicate id", Student{ID: 5, Name: "Other"}, ErrStudentExists},
		{"zero id", Student{ID: 0, Name: "Zero"}, ErrInvalidID},
		{"negative id", Student{ID: -1, Name: "Neg"}, ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Add(tt.student); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRepository_Update(t *testing.T) {
	store := seeded([]string{"1", "Ann", "A", "", "", "", "", "", "", "Yes"})
	repo := NewRepository(store)

	if err := repo.Update(Student{ID: 1, Name: "Ann Lee", Division: "B"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.Get(1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Ann Lee" || got.Division != "B" {
		t.Errorf("update not applied: %+v", got)
	}
	if !got.PhotoSample {
		t.Error("update must keep the photo sample flag")
	}

	if err := repo.Update(Student{ID: 9}); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestRepository_Remove(t *testing.T) {
	repo := NewRepository(seeded([]string{"1", "Ann"}, []string{"2", "Bob"}))

	if err := repo.Remove(1); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := repo.Get(1); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("expected removed student to be gone, got %v", err)
	}
	if err := repo.Remove(1); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("expected ErrStudentNotFound, got %v", err)
	}

	list, _ := repo.List()
	if len(list) != 1 || list[0].ID != 2 {
		t.Errorf("unexpected remaining students %+v", list)
	}
}

func TestRepository_MarkPhotoSample(t *testing.T) {
	repo := NewRepository(seeded([]string{"4", "Dan"}))

	if err := repo.MarkPhotoSample(4); err != nil {
		t.Fatalf("MarkPhotoSample failed: %v", err)
	}
	got, _ := repo.Get(4)
	if !got.PhotoSample {
		t.Error("expected PhotoSample to be set")
	}
	if got.Name != "Dan" {
		t.Errorf("name lost: %q", got.Name)
	}

	if err := repo.MarkPhotoSample(99); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestRepository_Init(t *testing.T) {
	store := table.NewMemory(nil)
	repo := NewRepository(store)

	if err := repo.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	tbl, err := store.Load()
	if err != nil {
		t.Fatalf("expected table after Init: %v", err)
	}
	if !reflect.DeepEqual(tbl.Header, Header) {
		t.Errorf("unexpected header %v", tbl.Header)
	}

	if err := repo.Init(); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	if store.Saves() != 1 {
		t.Errorf("Init on an existing table must not rewrite it, got %d saves", store.Saves())
	}
}

func TestRepository_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "student_data.xlsx")
	repo := NewRepository(table.NewXLSX(path, ""))

	if err := repo.Add(Student{ID: 10, Name: "Ann", Phone: "0123"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	names, err := NewDirectory(table.NewXLSX(path, "")).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if names[10] != "Ann" {
		t.Errorf("expected Ann for id 10, got %v", names)
	}

	got, err := repo.Get(10)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Phone != "0123" {
		t.Errorf("expected phone 0123, got %q", got.Phone)
	}
}
