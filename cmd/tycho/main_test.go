package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tyerrors "github.com/FocuswithJustin/tychomodel/core/errors"
	"github.com/FocuswithJustin/tychomodel/core/store"
	"github.com/FocuswithJustin/tychomodel/internal/logging"
)

const testModel = `TYCHO 8.00new Ea 1.50 3 0.02
kk   3
time   3.15576e13

  p  he4  d
 o16

xm(k)
 1.0  2.0  3.0
 4.0

zone mass
 1.0e33  2.0e33  3.0e33
 4.0e33

luminosity
 1.0e33  2.0e33  3.0e33
 3.826e33

p
 0.70  0.50  0.30
 0.10

he4
 0.28  0.48  0.68
 0.88

d
 1.0-05  2.0-06  0.0
 0.0

rotation
 1.0  1.0  1.0
 1.0
`

// bareModel decodes but has no zone mass, time or luminosity.
const bareModel = "TYCHO 8.00 b\nxm(k)\n 1.0  2.0  3.0\n 4.0\n"

// Test helper functions

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

// captureOutput redirects command output for the duration of a test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })
	return &buf
}

func testGlobals() *Globals {
	return &Globals{IsotopeWidth: 5, Workers: 2}
}

func TestParserDefaults(t *testing.T) {
	var cli struct {
		Globals
		Decode DecodeCmd `cmd:""`
	}
	parser, err := newParser(&cli)
	if err != nil {
		t.Fatalf("newParser failed: %v", err)
	}
	if _, err := parser.Parse([]string{"decode", "a", "b"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cli.LogLevel != "warn" || cli.LogFormat != "text" {
		t.Errorf("log flags = %q, %q; want warn, text", cli.LogLevel, cli.LogFormat)
	}
	if cli.IsotopeWidth != 5 {
		t.Errorf("IsotopeWidth = %d; want 5", cli.IsotopeWidth)
	}
	if len(cli.Decode.Files) != 2 {
		t.Errorf("Files = %v; want 2 entries", cli.Decode.Files)
	}
	if _, err := parser.Parse([]string{"--log-level", "loud", "decode", "a"}); err == nil {
		t.Error("Parse should reject an unknown log level")
	}
}

func TestDecodeCmd_Run(t *testing.T) {
	dir := t.TempDir()
	good := createTestFile(t, dir, "Ea00001", testModel)
	bad := createTestFile(t, dir, "broken", "xm(k)\n")

	out := captureOutput(t)
	cmd := &DecodeCmd{Files: []string{good}}
	if err := cmd.Run(testGlobals()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "Ea00001: 8 fields, 9 header values, 4 isotopes") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	cmd = &DecodeCmd{Files: []string{good, bad}}
	err := cmd.Run(testGlobals())
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
		t.Errorf("Run error = %v; want 1 of 2 files failed", err)
	}
	if !strings.Contains(out.String(), "Ea00001") {
		t.Errorf("good file missing from output: %q", out.String())
	}
}

func TestHeaderAndKeysCmd_Run(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "Ea00001", testModel)

	out := captureOutput(t)
	if err := (&HeaderCmd{File: path}).Run(testGlobals()); err != nil {
		t.Fatalf("HeaderCmd failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 9 {
		t.Fatalf("got %d header lines; want 9:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "0 ") || !strings.HasSuffix(lines[0], "TYCHO") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[8], "time") {
		t.Errorf("last line = %q; want time", lines[8])
	}

	out.Reset()
	if err := (&KeysCmd{File: path}).Run(testGlobals()); err != nil {
		t.Fatalf("KeysCmd failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "isotope") {
		t.Errorf("first key line = %q; want isotope", strings.SplitN(out.String(), "\n", 2)[0])
	}
}

func TestFieldCmd_Run(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "Ea00001", testModel)

	tests := []struct {
		name string
		cmd  FieldCmd
		want string
	}{
		{"all", FieldCmd{File: path, Name: "xm(k)"}, "1\n2\n3\n4\n"},
		{"head", FieldCmd{File: path, Name: "xm(k)", Head: 2}, "1\n2\n"},
		{"recovered exponent", FieldCmd{File: path, Name: "d", Head: 1}, "1e-05\n"},
		{"isotopes", FieldCmd{File: path, Name: "isotope"}, "p\nhe4\nd\no16\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t)
			if err := tt.cmd.Run(testGlobals()); err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q; want %q", out.String(), tt.want)
			}
		})
	}

	cmd := &FieldCmd{File: path, Name: "density"}
	if err := cmd.Run(testGlobals()); err == nil {
		t.Error("Run should fail for a missing field")
	}
}

func TestUnitsCmd_Run(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "Ea00001", testModel)

	tests := []struct {
		quantity string
		want     string
		wantErr  bool
	}{
		{"luminosity", "erg / s (uncertain", false},
		{"he4", "1\n", false},
		{"xm(k)", "", true},
		{"density", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.quantity, func(t *testing.T) {
			out := captureOutput(t)
			err := (&UnitsCmd{File: path, Quantity: tt.quantity}).Run(testGlobals())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run error = %v; wantErr %v", err, tt.wantErr)
			}
			if !strings.HasPrefix(out.String(), tt.want) {
				t.Errorf("output = %q; want prefix %q", out.String(), tt.want)
			}
		})
	}
}

func TestUnitsCmd_CustomTable(t *testing.T) {
	dir := t.TempDir()
	path := createTestFile(t, dir, "Ea00001", testModel)
	table := createTestFile(t, dir, "units.hcl", `quantity "xm(k)" {
  unit = "g"
}
`)

	out := captureOutput(t)
	g := testGlobals()
	g.UnitsFile = table
	if err := (&UnitsCmd{File: path, Quantity: "xm(k)"}).Run(g); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.String() != "g\n" {
		t.Errorf("output = %q; want %q", out.String(), "g\n")
	}
}

func TestMassAndTimeCmd_Run(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "Ea00001", testModel)

	out := captureOutput(t)
	if err := (&MassCmd{Files: []string{path}}).Run(testGlobals()); err != nil {
		t.Fatalf("MassCmd failed: %v", err)
	}
	if !strings.Contains(out.String(), " 1e+34 g ") {
		t.Errorf("mass output = %q", out.String())
	}

	out.Reset()
	if err := (&TimeCmd{Files: []string{path}}).Run(testGlobals()); err != nil {
		t.Fatalf("TimeCmd failed: %v", err)
	}
	if !strings.Contains(out.String(), " 1 Myr") {
		t.Errorf("time output = %q", out.String())
	}
}

func TestMassAndTimeCmd_IncompleteModel(t *testing.T) {
	dir := t.TempDir()
	bare := createTestFile(t, dir, "Ea00000", bareModel)
	good := createTestFile(t, dir, "Ea00001", testModel)

	var logs bytes.Buffer
	logging.InitLoggerTo(&logs, logging.LevelWarn, logging.FormatJSON)
	t.Cleanup(func() { logging.InitLogger(logging.LevelWarn, logging.FormatText) })

	tests := []struct {
		name string
		cmd  interface{ Run(*Globals) error }
		want string
	}{
		{"mass", &MassCmd{Files: []string{bare, good}}, " 1e+34 g "},
		{"time", &TimeCmd{Files: []string{bare, good}}, " 1 Myr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t)
			logs.Reset()
			err := tt.cmd.Run(testGlobals())
			if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
				t.Errorf("Run error = %v; want 1 of 2 files failed", err)
			}
			if !strings.Contains(out.String(), good+" ") || !strings.Contains(out.String(), tt.want) {
				t.Errorf("good file missing from output: %q", out.String())
			}
			if strings.Contains(out.String(), bare) {
				t.Errorf("incomplete model printed: %q", out.String())
			}
			if !strings.Contains(logs.String(), `"msg":"model_rejected"`) {
				t.Errorf("no model_rejected record: %s", logs.String())
			}
		})
	}
}

func TestSummaryCmd_Run(t *testing.T) {
	dir := t.TempDir()
	path := createTestFile(t, dir, "Ea00001", testModel)
	magic := filepath.Join(dir, "magic.txt")

	if err := (&SummaryCmd{Files: []string{path}, Out: magic}).Run(testGlobals()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	data, err := os.ReadFile(magic)
	if err != nil {
		t.Fatalf("failed to read summary: %v", err)
	}
	text := string(data)
	for _, want := range []string{path + "\n", "L / Lsun", "core He", "0.28"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestSummaryCmd_IncompleteModel(t *testing.T) {
	dir := t.TempDir()
	bare := createTestFile(t, dir, "Ea00000", bareModel)
	good := createTestFile(t, dir, "Ea00001", testModel)
	magic := filepath.Join(dir, "magic.txt")

	err := (&SummaryCmd{Files: []string{bare, good}, Out: magic}).Run(testGlobals())
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
		t.Errorf("Run error = %v; want 1 of 2 files failed", err)
	}
	data, err := os.ReadFile(magic)
	if err != nil {
		t.Fatalf("failed to read summary: %v", err)
	}
	if !strings.Contains(string(data), good+"\n") || strings.Contains(string(data), bare) {
		t.Errorf("summary should hold only the complete model:\n%s", data)
	}
}

func TestSummaryCmd_OutputError(t *testing.T) {
	dir := t.TempDir()
	path := createTestFile(t, dir, "Ea00001", testModel)

	cmd := &SummaryCmd{Files: []string{path}, Out: filepath.Join(dir, "missing", "magic.txt")}
	if err := cmd.Run(testGlobals()); !errors.Is(err, tyerrors.ErrIO) {
		t.Errorf("Run error = %v; want ErrIO", err)
	}
}

func TestExportCmd_Run(t *testing.T) {
	dir := t.TempDir()
	path := createTestFile(t, dir, "Ea00001", testModel)
	db := filepath.Join(dir, "models.sqlite")

	out := captureOutput(t)
	cmd := &ExportCmd{Files: []string{path}, DB: db}
	if err := cmd.Run(testGlobals()); err != nil {
		t.Fatalf("first export failed: %v", err)
	}
	if err := cmd.Run(testGlobals()); err != nil {
		t.Fatalf("second export failed: %v", err)
	}
	if !strings.Contains(out.String(), "already stored") {
		t.Errorf("second export should report an existing model: %q", out.String())
	}

	ctx := context.Background()
	s, err := store.Open(ctx, db)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer s.Close()
	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Filename != path {
		t.Errorf("entries = %+v; want one entry for %s", entries, path)
	}
}

func TestVersionCmd_Run(t *testing.T) {
	out := captureOutput(t)
	if err := (&VersionCmd{}).Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), version) || !strings.Contains(out.String(), "sqlite driver") {
		t.Errorf("unexpected output: %q", out.String())
	}
}
