package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrCodeEU/faceattend/pkg/config"
	"github.com/MrCodeEU/faceattend/pkg/ledger"
	"github.com/MrCodeEU/faceattend/pkg/roster"
)

func TestCommandsRegistered(t *testing.T) {
	for _, name := range commandOrder {
		cmd, ok := commands[name]
		if !ok {
			t.Errorf("command %s listed in usage but not registered", name)
			continue
		}
		if cmd.Run == nil || cmd.Usage == "" || cmd.Description == "" {
			t.Errorf("command %s is incomplete", name)
		}
	}
	if len(commands) != len(commandOrder) {
		t.Errorf("expected %d commands, got %d", len(commandOrder), len(commands))
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faceattend.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	c, err := loadConfig(writeConfig(t, "camera:\n  device: \"1\"\n"))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if c.Camera.Device != "1" || c.Detector.Backend != config.BackendHaar {
		t.Errorf("unexpected config %+v", c)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{
			name: "unknown backend in file",
			body: "detector:\n  backend: bogus\n",
			want: "invalid detector backend: bogus",
		},
		{
			name: "unknown backend from env",
			body: "camera:\n  width: 640\n",
			env:  map[string]string{"FACEATTEND_DETECTOR__BACKEND": "bogus"},
			want: "invalid detector backend: bogus",
		},
		{
			name: "scale factor from env",
			body: "camera:\n  width: 640\n",
			env:  map[string]string{"FACEATTEND_DETECTOR__BATCH__SCALE_FACTOR": "0.5"},
			want: "scale_factor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			c, err := loadConfig(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("expected validation error, got config %+v", c)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestIsYes(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"Yes\n", true},
		{"  YES  ", true},
		{"n\n", false},
		{"\n", false},
		{"yeah", false},
	}

	for _, tt := range tests {
		if got := isYes(tt.in); got != tt.want {
			t.Errorf("isYes(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	yes, err := prompt(strings.NewReader("y\n"), &out, "Is this Ann?")
	if err != nil {
		t.Fatalf("prompt failed: %v", err)
	}
	if !yes {
		t.Error("expected yes")
	}
	if out.String() != "Is this Ann? [y/N] " {
		t.Errorf("unexpected prompt %q", out.String())
	}

	// Empty input is a no
	yes, err = prompt(strings.NewReader(""), &out, "Is this Ann?")
	if err != nil || yes {
		t.Errorf("empty input should be a no, got (%v, %v)", yes, err)
	}
}

func TestParseStudent(t *testing.T) {
	s, err := parseStudent("add", []string{"-id", "7", "-name", "Ann", "-division", "A", "-teacher", "Ms. B"})
	if err != nil {
		t.Fatalf("parseStudent failed: %v", err)
	}
	if s.ID != 7 || s.Name != "Ann" || s.Division != "A" || s.Teacher != "Ms. B" {
		t.Errorf("unexpected student %+v", s)
	}

	if _, err := parseStudent("add", []string{"-name", "Ann"}); !errors.Is(err, roster.ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
	if _, err := parseStudent("add", []string{"-id", "3"}); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestPrintSheet(t *testing.T) {
	var buf bytes.Buffer
	printSheet(&buf, nil)
	if buf.String() != "No attendance records found.\n" {
		t.Errorf("unexpected empty sheet output %q", buf.String())
	}

	buf.Reset()
	printSheet(&buf, []ledger.Record{
		{IdentityID: 1, Name: "Ann", Date: "2026-01-10", Period: "10th Period", Time: "09:15:00"},
	})
	for _, want := range []string{"ID", "Period", "Ann", "2026-01-10", "10th Period", "09:15:00"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("sheet output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestPrintRoster(t *testing.T) {
	var buf bytes.Buffer
	printRoster(&buf, nil)
	if !strings.Contains(buf.String(), "No students found.") {
		t.Errorf("unexpected output %q", buf.String())
	}

	buf.Reset()
	printRoster(&buf, []roster.Student{
		{ID: 1, Name: "Ann", PhotoSample: true},
		{ID: 2, Name: "Bob"},
	})
	out := buf.String()
	if !strings.Contains(out, "Yes") || !strings.Contains(out, "Total: 2 student(s)") {
		t.Errorf("unexpected roster output:\n%s", out)
	}
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.xml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("<opencv_storage/>"))
	}))
	defer server.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "cascade.xml")
	if err := download(server.URL+"/cascade.xml", target); err != nil {
		t.Fatalf("download failed: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("failed to read download: %v", err)
	}
	if string(data) != "<opencv_storage/>" {
		t.Errorf("unexpected content %q", data)
	}

	missing := filepath.Join(dir, "missing.xml")
	if err := download(server.URL+"/missing.xml", missing); err == nil {
		t.Error("expected error for 404")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("failed download left files behind: %v", entries)
	}
}
