package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestStore_Write(t *testing.T) {
	tests := []struct {
		name         string
		artifact     string
		data         []byte
		expectError  error
		expectedUsed int
	}{
		{
			name:         "Valid write",
			artifact:     "tokens.txt",
			data:         []byte("1:1\tKEYWORD\tint\n"),
			expectedUsed: 16,
		},
		{
			name:         "Long stage name",
			artifact:     "symbol_table.json",
			data:         []byte("{}"),
			expectedUsed: 2,
		},
		{
			name:        "Invalid name path traversal",
			artifact:    "../quads.txt",
			data:        []byte{1},
			expectError: ErrInvalidName,
		},
		{
			name:        "Invalid name with slash",
			artifact:    "out/quads.txt",
			data:        []byte{1},
			expectError: ErrInvalidName,
		},
		{
			name:        "Quota exceeded",
			artifact:    "object_code.asm",
			data:        make([]byte, MaxStoreBytes+1),
			expectError: ErrQuotaExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			err := s.Write(tt.artifact, tt.data)
			if !errors.Is(err, tt.expectError) {
				t.Fatalf("Write() error = %v, expected %v", err, tt.expectError)
			}
			if tt.expectError != nil {
				return
			}
			if s.Used() != tt.expectedUsed {
				t.Errorf("Used() = %d, expected %d", s.Used(), tt.expectedUsed)
			}
			got, err := s.Read(tt.artifact)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.data) {
				t.Errorf("Read() = %q, want %q", got, tt.data)
			}
		})
	}
}

func TestStore_WriteCopiesData(t *testing.T) {
	s := NewStore()
	data := []byte("abc")
	if err := s.Write("quads.txt", data); err != nil {
		t.Fatal(err)
	}
	data[0] = 'x'
	got, _ := s.Read("quads.txt")
	if string(got) != "abc" {
		t.Errorf("stored data changed with caller's slice: %q", got)
	}
}

func TestStore_Overwrite(t *testing.T) {
	s := NewStore()
	s.Write("quads.txt", []byte("12345"))
	s.Write("quads.txt", []byte("12"))
	if s.Used() != 2 {
		t.Errorf("Used() after overwrite = %d, want 2", s.Used())
	}
	size, err := s.Size("quads.txt")
	if err != nil || size != 2 {
		t.Errorf("Size() = %d, %v; want 2, nil", size, err)
	}
}

func TestStore_ReadMissing(t *testing.T) {
	s := NewStore()
	if _, err := s.Read("missing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Read("../x"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Read() error = %v, want ErrInvalidName", err)
	}
}

func TestStore_DeleteAndList(t *testing.T) {
	s := NewStore()
	s.Write("tokens.txt", []byte("a"))
	s.Write("quads.txt", []byte("bb"))
	s.Write("lex_errors.txt", []byte(""))

	want := []string{"lex_errors.txt", "quads.txt", "tokens.txt"}
	if got := s.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	if err := s.Delete("quads.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete("quads.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if s.Used() != 1 {
		t.Errorf("Used() = %d, want 1", s.Used())
	}
}

func TestStore_PersistAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	s := NewStore()
	s.Write("tokens.txt", []byte("1:1\tKEYWORD\tint\n"))
	s.Write("quads.txt", []byte("100: (sys, _, _, _)\n"))
	if err := s.PersistTo(dir); err != nil {
		t.Fatalf("PersistTo() error = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "quads.txt"))
	if err != nil || string(raw) != "100: (sys, _, _, _)\n" {
		t.Fatalf("persisted quads.txt = %q, %v", raw, err)
	}

	s.Delete("tokens.txt")
	if err := s.PersistTo(dir); err != nil {
		t.Fatalf("PersistTo() after delete error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "tokens.txt")); !os.IsNotExist(err) {
		t.Errorf("tokens.txt still on disk after delete: %v", err)
	}

	os.WriteFile(filepath.Join(dir, "not valid!.txt"), []byte("x"), 0644)
	loaded := NewStore()
	if err := loaded.LoadFrom(dir); err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if got := loaded.List(); !reflect.DeepEqual(got, []string{"quads.txt"}) {
		t.Errorf("loaded List() = %v", got)
	}
}

func TestStore_LoadFromMissingDir(t *testing.T) {
	s := NewStore()
	if err := s.LoadFrom(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("LoadFrom() on missing dir = %v, want nil", err)
	}
}

func TestStore_ModTime(t *testing.T) {
	s := NewStore()
	before := time.Now()
	if err := s.Write("quads.txt", []byte("100: (sys, _, _, _)\n")); err != nil {
		t.Fatal(err)
	}
	mt, err := s.ModTime("quads.txt")
	if err != nil {
		t.Fatal(err)
	}
	if mt.Before(before) {
		t.Errorf("ModTime %v is before the write at %v", mt, before)
	}
	if _, err := s.ModTime("missing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ModTime(missing) error = %v, want ErrNotFound", err)
	}
}
