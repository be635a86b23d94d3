package parser

import (
	"archive/zip"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/metroplanner/internal/common/logger"
	"gopkg.in/yaml.v3"
)

var ErrDecreasingDistance = errors.New("cumulative distance decreases")

// ManifestNames are looked up next to the line files.
var ManifestNames = []string{"lines.yml", "lines.yaml"}

// StationEntry is one row of a line file.
type StationEntry struct {
	Name        string
	DisplayName string
	Distance    int
}

// LineData is a fully parsed line file. Stations are in travel order.
type LineData struct {
	File     string
	Name     string
	Color    string
	Stations []StationEntry
}

// EdgeData connects two consecutive stations of a line by normalized name.
type EdgeData struct {
	FromStation string
	ToStation   string
	LineName    string
	Distance    int
}

// LineOverride replaces the defaults derived from a file name.
type LineOverride struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// Manifest is the optional lines.yml, keyed by file name without extension.
type Manifest struct {
	Lines map[string]LineOverride `yaml:"lines"`
}

type Parser struct {
	logger logger.Logger
}

func New(logger logger.Logger) *Parser {
	return &Parser{logger: logger}
}

type ParseCallbacks struct {
	OnLine         func(line *LineData) error
	OnFileComplete func(fileName string) error
}

// Parse dispatches on the source: a .zip archive or a directory.
func (p *Parser) Parse(ctx context.Context, source string, callbacks ParseCallbacks) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("reading dataset source: %w", err)
	}
	if info.IsDir() {
		return p.ParseDir(ctx, source, callbacks)
	}
	return p.ParseZip(ctx, source, callbacks)
}

func (p *Parser) ParseDir(ctx context.Context, dir string, callbacks ParseCallbacks) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading dataset directory: %w", err)
	}

	manifest, err := p.loadManifestFile(dir)
	if err != nil {
		return err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	p.logger.Info("Parsing dataset directory", "path", dir, "files", len(files))

	for _, name := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("opening %s: %w", name, err)
		}
		err = p.emit(name, f, manifest, callbacks)
		f.Close()
		if err != nil {
			return err
		}
	}

	p.logger.Info("Dataset parsing completed successfully", "lines", len(files))
	return nil
}

func (p *Parser) ParseZip(ctx context.Context, zipPath string, callbacks ParseCallbacks) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening zip file: %w", err)
	}
	defer reader.Close()

	p.logger.Info("Parsing dataset zip file", "path", zipPath, "files", len(reader.File))

	var manifest *Manifest
	var files []*zip.File
	for _, file := range reader.File {
		base := path.Base(file.Name)
		switch {
		case file.FileInfo().IsDir():
		case isManifest(base):
			if manifest, err = readZipManifest(file); err != nil {
				return err
			}
		case strings.HasSuffix(base, ".txt"):
			files = append(files, file)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	for _, file := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p.logger.Debug("Parsing file", "name", file.Name, "size", file.UncompressedSize64)
		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("opening %s: %w", file.Name, err)
		}
		err = p.emit(path.Base(file.Name), rc, manifest, callbacks)
		rc.Close()
		if err != nil {
			return err
		}
	}

	p.logger.Info("Dataset parsing completed successfully", "lines", len(files))
	return nil
}

func (p *Parser) emit(fileName string, r io.Reader, manifest *Manifest, callbacks ParseCallbacks) error {
	line, err := ParseLine(fileName, r, manifest.override(fileName))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", fileName, err)
	}

	if len(line.Stations) == 0 {
		p.logger.Warn("Line file has no stations", "file", fileName)
	}

	if callbacks.OnLine != nil {
		if err := callbacks.OnLine(line); err != nil {
			return err
		}
	}
	if callbacks.OnFileComplete != nil {
		if err := callbacks.OnFileComplete(fileName); err != nil {
			return err
		}
	}
	return nil
}

// ParseLine reads one line file. Each non-blank row is the station name
// followed by its cumulative distance in meters; commas in the number are
// ignored.
func ParseLine(fileName string, r io.Reader, override LineOverride) (*LineData, error) {
	color := strings.TrimSuffix(path.Base(fileName), ".txt")
	line := &LineData{
		File:  fileName,
		Name:  DefaultLineName(color),
		Color: color,
	}
	if override.Name != "" {
		line.Name = override.Name
	}
	if override.Color != "" {
		line.Color = override.Color
	}

	scanner := bufio.NewScanner(r)
	row := 0
	for scanner.Scan() {
		row++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("row %d: expected station name and distance", row)
		}

		raw := strings.ReplaceAll(fields[len(fields)-1], ",", "")
		distance, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid distance %q: %w", row, fields[len(fields)-1], err)
		}

		if n := len(line.Stations); n > 0 && distance < line.Stations[n-1].Distance {
			return nil, fmt.Errorf("row %d: %w", row, ErrDecreasingDistance)
		}

		display := strings.Join(fields[:len(fields)-1], " ")
		line.Stations = append(line.Stations, StationEntry{
			Name:        NormalizeStationName(display),
			DisplayName: display,
			Distance:    distance,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	return line, nil
}

// NormalizeStationName drops everything but ASCII letters and digits and
// lowercases the rest.
func NormalizeStationName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return sb.String()
}

func DefaultLineName(color string) string {
	if color == "" {
		return " Line"
	}
	return strings.ToUpper(color[:1]) + color[1:] + " Line"
}

// GenerateEdges links consecutive stations of every line.
func GenerateEdges(lines []*LineData) []EdgeData {
	var edges []EdgeData
	for _, line := range lines {
		for i := 0; i+1 < len(line.Stations); i++ {
			from, to := line.Stations[i], line.Stations[i+1]
			edges = append(edges, EdgeData{
				FromStation: from.Name,
				ToStation:   to.Name,
				LineName:    line.Name,
				Distance:    to.Distance - from.Distance,
			})
		}
	}
	return edges
}

// InterchangeStations returns the normalized names served by more than one
// line, sorted.
func InterchangeStations(lines []*LineData) []string {
	served := make(map[string]map[string]struct{})
	for _, line := range lines {
		for _, st := range line.Stations {
			if served[st.Name] == nil {
				served[st.Name] = make(map[string]struct{})
			}
			served[st.Name][line.Name] = struct{}{}
		}
	}

	var names []string
	for name, set := range served {
		if len(set) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// LastModified is the newest modification time among the source's line
// files, or the archive's own time for a zip.
func LastModified(source string) (time.Time, error) {
	info, err := os.Stat(source)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading dataset source: %w", err)
	}
	if !info.IsDir() {
		return info.ModTime(), nil
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading dataset directory: %w", err)
	}

	var latest time.Time
	for _, e := range entries {
		if e.IsDir() || !(strings.HasSuffix(e.Name(), ".txt") || isManifest(e.Name())) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return time.Time{}, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		if fi.ModTime().After(latest) {
			latest = fi.ModTime()
		}
	}
	return latest, nil
}

func (m *Manifest) override(fileName string) LineOverride {
	if m == nil {
		return LineOverride{}
	}
	return m.Lines[strings.TrimSuffix(path.Base(fileName), ".txt")]
}

func (p *Parser) loadManifestFile(dir string) (*Manifest, error) {
	for _, name := range ManifestNames {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		p.logger.Info("Using line manifest", "file", name)
		return decodeManifest(name, data)
	}
	return nil, nil
}

func readZipManifest(file *zip.File) (*Manifest, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", file.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file.Name, err)
	}
	return decodeManifest(file.Name, data)
}

func decodeManifest(name string, data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return &m, nil
}

func isManifest(name string) bool {
	for _, n := range ManifestNames {
		if name == n {
			return true
		}
	}
	return false
}
