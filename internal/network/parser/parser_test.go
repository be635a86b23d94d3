package parser

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/metroplanner/internal/common/logger"
)

const blueLine = `Dwarka Sector 21 0
Dwarka Sector 8 1,200

Rajiv Chowk 2,700
`

const yellowLine = `Samaypur Badli 0
Rajiv Chowk 1500
Central Secretariat 2500
`

func writeDataset(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	return dir
}

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "dataset.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("creating zip: %v", err)
	}
	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("adding %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return zipPath
}

func collect(t *testing.T, source string) []*LineData {
	t.Helper()
	p := New(logger.New(io.Discard))

	var lines []*LineData
	var completed []string
	err := p.Parse(context.Background(), source, ParseCallbacks{
		OnLine: func(line *LineData) error {
			lines = append(lines, line)
			return nil
		},
		OnFileComplete: func(fileName string) error {
			completed = append(completed, fileName)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(completed) != len(lines) {
		t.Errorf("expected %d completed files, got %d", len(lines), len(completed))
	}
	return lines
}

func TestParseLine(t *testing.T) {
	line, err := ParseLine("blue.txt", strings.NewReader(blueLine), LineOverride{})
	if err != nil {
		t.Fatalf("ParseLine returned error: %v", err)
	}

	if line.Name != "Blue Line" || line.Color != "blue" {
		t.Errorf("unexpected line identity: %s / %s", line.Name, line.Color)
	}
	if len(line.Stations) != 3 {
		t.Fatalf("expected 3 stations, got %d", len(line.Stations))
	}

	want := []StationEntry{
		{Name: "dwarkasector21", DisplayName: "Dwarka Sector 21", Distance: 0},
		{Name: "dwarkasector8", DisplayName: "Dwarka Sector 8", Distance: 1200},
		{Name: "rajivchowk", DisplayName: "Rajiv Chowk", Distance: 2700},
	}
	for i, st := range line.Stations {
		if st != want[i] {
			t.Errorf("station %d: expected %+v, got %+v", i, want[i], st)
		}
	}
}

func TestParseLineOverride(t *testing.T) {
	line, err := ParseLine("blue.txt", strings.NewReader(blueLine), LineOverride{Name: "Line 3", Color: "#0000ff"})
	if err != nil {
		t.Fatalf("ParseLine returned error: %v", err)
	}
	if line.Name != "Line 3" || line.Color != "#0000ff" {
		t.Errorf("override not applied: %s / %s", line.Name, line.Color)
	}
}

func TestParseLineErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing distance", "Rajiv Chowk\n"},
		{"bad distance", "Rajiv Chowk 12km\n"},
		{"decreasing distance", "A 1000\nB 500\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine("red.txt", strings.NewReader(tt.content), LineOverride{})
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}

	_, err := ParseLine("red.txt", strings.NewReader("A 1000\nB 500\n"), LineOverride{})
	if !errors.Is(err, ErrDecreasingDistance) {
		t.Errorf("expected ErrDecreasingDistance, got %v", err)
	}
}

func TestNormalizeStationName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Rajiv Chowk", "rajivchowk"},
		{"  Hauz-Khas ", "hauzkhas"},
		{"Sector 21", "sector21"},
		{"I.N.A.", "ina"},
		{"Chāndni Chowk", "chndnichowk"},
	}

	for _, tt := range tests {
		if got := NormalizeStationName(tt.in); got != tt.want {
			t.Errorf("NormalizeStationName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDir(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		"yellow.txt": yellowLine,
		"blue.txt":   blueLine,
		"notes.md":   "ignored",
	})

	lines := collect(t, dir)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Name != "Blue Line" || lines[1].Name != "Yellow Line" {
		t.Errorf("expected lines in file name order, got %s, %s", lines[0].Name, lines[1].Name)
	}
}

func TestParseDirManifest(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		"blue.txt":  blueLine,
		"lines.yml": "lines:\n  blue:\n    name: Line 3\n    color: \"#0000ff\"\n",
	})

	lines := collect(t, dir)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Name != "Line 3" || lines[0].Color != "#0000ff" {
		t.Errorf("manifest not applied: %+v", lines[0])
	}
}

func TestParseZip(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"metro/blue.txt":   blueLine,
		"metro/yellow.txt": yellowLine,
		"metro/lines.yaml": "lines:\n  yellow:\n    name: Line 2\n",
	})

	lines := collect(t, zipPath)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1].Name != "Line 2" || lines[1].Color != "yellow" {
		t.Errorf("unexpected yellow line: %+v", lines[1])
	}
	if lines[0].File != "blue.txt" {
		t.Errorf("expected base file name, got %s", lines[0].File)
	}
}

func TestParseCallbackError(t *testing.T) {
	dir := writeDataset(t, map[string]string{"blue.txt": blueLine})
	p := New(logger.New(io.Discard))

	stop := errors.New("stop")
	err := p.Parse(context.Background(), dir, ParseCallbacks{
		OnLine: func(*LineData) error { return stop },
	})
	if !errors.Is(err, stop) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestParseCancelled(t *testing.T) {
	dir := writeDataset(t, map[string]string{"blue.txt": blueLine})
	p := New(logger.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.ParseDir(ctx, dir, ParseCallbacks{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateEdges(t *testing.T) {
	blue, _ := ParseLine("blue.txt", strings.NewReader(blueLine), LineOverride{})
	yellow, _ := ParseLine("yellow.txt", strings.NewReader(yellowLine), LineOverride{})

	edges := GenerateEdges([]*LineData{blue, yellow})
	if len(edges) != 4 {
		t.Fatalf("expected 4 edges, got %d", len(edges))
	}

	first := edges[0]
	if first.FromStation != "dwarkasector21" || first.ToStation != "dwarkasector8" || first.Distance != 1200 || first.LineName != "Blue Line" {
		t.Errorf("unexpected first edge: %+v", first)
	}
	if edges[1].Distance != 1500 {
		t.Errorf("expected 1500m between consecutive blue stations, got %d", edges[1].Distance)
	}
	if edges[3].Distance != 1000 || edges[3].LineName != "Yellow Line" {
		t.Errorf("unexpected last edge: %+v", edges[3])
	}
}

func TestInterchangeStations(t *testing.T) {
	blue, _ := ParseLine("blue.txt", strings.NewReader(blueLine), LineOverride{})
	yellow, _ := ParseLine("yellow.txt", strings.NewReader(yellowLine), LineOverride{})

	got := InterchangeStations([]*LineData{blue, yellow})
	if len(got) != 1 || got[0] != "rajivchowk" {
		t.Errorf("expected [rajivchowk], got %v", got)
	}
}

func TestLastModified(t *testing.T) {
	dir := writeDataset(t, map[string]string{"blue.txt": blueLine})

	mod, err := LastModified(dir)
	if err != nil {
		t.Fatalf("LastModified returned error: %v", err)
	}
	info, _ := os.Stat(filepath.Join(dir, "blue.txt"))
	if !mod.Equal(info.ModTime()) {
		t.Errorf("expected %v, got %v", info.ModTime(), mod)
	}

	if _, err := LastModified(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing source")
	}
}
