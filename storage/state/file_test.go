package statefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BlackishOne/StudySync/core/study"
)

func TestStore_LoadMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))

	state, err := s.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if state != nil {
		t.Errorf("Load() = %+v, want nil for a fresh install", state)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "state.json"))

	state := &study.State{
		Courses: []study.Course{{ID: "c1", Name: "Calculus", Credits: 3}},
		Habits:  []study.Habit{{ID: "h1", Title: "Review notes", CompletedDates: []string{"2024-01-10"}}},
		Profile: study.StudentProfile{Name: "Awe", XP: 150, Level: 1},
		Timer:   study.DefaultTimer(),
	}
	if err := s.Save(state); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got == nil {
		t.Fatal("Load() = nil after Save()")
	}
	if len(got.Courses) != 1 || got.Courses[0].Name != "Calculus" {
		t.Errorf("Courses = %v", got.Courses)
	}
	if got.Profile.XP != 150 {
		t.Errorf("Profile.XP = %d, want 150", got.Profile.XP)
	}

	// second save replaces, not appends
	state.Profile.XP = 200
	if err = s.Save(state); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	got, _ = s.Load()
	if got.Profile.XP != 200 {
		t.Errorf("Profile.XP after re-save = %d, want 200", got.Profile.XP)
	}

	// no stray temp files left behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir entries = %v, want only state.json", names)
	}
}

func TestStore_SaveCreatesDataDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nested", "state.json"))

	if err := s.Save(&study.State{Timer: study.DefaultTimer()}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := s.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := New(path).Load(); err == nil {
		t.Error("Load() = nil error, want decode error")
	}
}
