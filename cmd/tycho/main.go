// Command tycho reads TYCHO stellar evolution model dumps.
// It prints header values, fields, units and derived quantities, and can
// export decoded models to a SQLite database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/tychomodel/core/batch"
	"github.com/FocuswithJustin/tychomodel/core/cache"
	"github.com/FocuswithJustin/tychomodel/core/derived"
	tyerrors "github.com/FocuswithJustin/tychomodel/core/errors"
	"github.com/FocuswithJustin/tychomodel/core/sqlite"
	"github.com/FocuswithJustin/tychomodel/core/store"
	"github.com/FocuswithJustin/tychomodel/core/tycho"
	"github.com/FocuswithJustin/tychomodel/core/units"
	"github.com/FocuswithJustin/tychomodel/internal/logging"
)

const version = "0.1.0"

// stdout receives command output.
var stdout io.Writer = os.Stdout

// Globals are the flags shared by every command.
type Globals struct {
	LogLevel     string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"warn" enum:"debug,info,warn,error"`
	LogFormat    string `name:"log-format" help:"Log format (text, json)" default:"text" enum:"text,json"`
	UnitsFile    string `name:"units" help:"HCL units table replacing the built-in one" type:"existingfile" env:"TYCHO_UNITS"`
	IsotopeWidth int    `name:"isotope-width" help:"Printed column width of isotope names" default:"5"`
	Workers      int    `name:"workers" short:"j" help:"Files decoded in parallel (0 = number of CPUs)" default:"0"`
}

// CLI defines the command-line interface for tycho.
var CLI struct {
	Globals

	Decode  DecodeCmd  `cmd:"" help:"Decode model files and report what was found"`
	Header  HeaderCmd  `cmd:"" help:"Print the header values of a model"`
	Keys    KeysCmd    `cmd:"" help:"List the fields of a model"`
	Field   FieldCmd   `cmd:"" help:"Print the values of one field"`
	Units   UnitsCmd   `cmd:"" help:"Print the units of a field"`
	Mass    MassCmd    `cmd:"" help:"Print the total mass of each model"`
	Time    TimeCmd    `cmd:"" help:"Print the age of each model"`
	Summary SummaryCmd `cmd:"" help:"Write age, luminosity and core composition summaries"`
	Export  ExportCmd  `cmd:"" help:"Store decoded models in a SQLite database"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

func (g *Globals) setupLogging() error {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

func (g *Globals) options() []tycho.Option {
	return []tycho.Option{tycho.WithIsotopeWidth(g.IsotopeWidth)}
}

func (g *Globals) read(path string) (*tycho.Model, error) {
	return tycho.ReadFile(path, g.options()...)
}

func (g *Globals) readAll(paths []string) *batch.Report {
	return batch.Decode(context.Background(), paths, batch.Options{
		Workers:      g.Workers,
		IsotopeWidth: g.IsotopeWidth,
		Cache:        cache.NewDefaultModelCache(),
	})
}

func (g *Globals) table() (*units.Table, error) {
	if g.UnitsFile == "" {
		return units.Default(), nil
	}
	return units.LoadTable(g.UnitsFile)
}

// failures prints each failed result and returns an error if there were any.
func failures(report *batch.Report) error {
	if report.Failed == 0 {
		return nil
	}
	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Path, res.Err)
		}
	}
	return fmt.Errorf("%d of %d files failed", report.Failed, len(report.Results))
}

// eachModel calls fn for every decoded model in input order. A model fn
// rejects is recorded in the report as a failed file.
func eachModel(report *batch.Report, fn func(*tycho.Model) error) {
	for i := range report.Results {
		res := &report.Results[i]
		if res.Err != nil {
			continue
		}
		if err := fn(res.Model); err != nil {
			logging.Warn("model_rejected", "path", res.Path, "error", err.Error())
			res.Err = err
			report.Failed++
		}
	}
}

// DecodeCmd decodes files and prints one line per file.
type DecodeCmd struct {
	Files []string `arg:"" help:"Model files (.xz and .gz are decompressed)" type:"path"`
}

func (c *DecodeCmd) Run(g *Globals) error {
	report := g.readAll(c.Files)
	for _, res := range report.Results {
		if res.Err != nil {
			continue
		}
		m := res.Model
		fmt.Fprintf(stdout, "%s: %d fields, %d header values", res.Path, m.Len(), m.Header.Len())
		if n := len(m.Isotopes()); n > 0 {
			fmt.Fprintf(stdout, ", %d isotopes", n)
		}
		for _, d := range m.Diagnostics {
			fmt.Fprintf(stdout, "\n  warning: %s", d)
		}
		fmt.Fprintln(stdout)
	}
	return failures(report)
}

// HeaderCmd prints the header in file order.
type HeaderCmd struct {
	File string `arg:"" help:"Model file" type:"path"`
}

func (c *HeaderCmd) Run(g *Globals) error {
	m, err := g.read(c.File)
	if err != nil {
		return err
	}
	for key, v := range m.Header.All() {
		fmt.Fprintf(stdout, "%-12s %s\n", key, v)
	}
	return nil
}

// KeysCmd lists field names with their element type and length.
type KeysCmd struct {
	File string `arg:"" help:"Model file" type:"path"`
}

func (c *KeysCmd) Run(g *Globals) error {
	m, err := g.read(c.File)
	if err != nil {
		return err
	}
	for name, f := range m.All() {
		fmt.Fprintf(stdout, "%-24s %-6s %d\n", name, f.Type, f.Len())
	}
	return nil
}

// FieldCmd prints one field, one element per line.
type FieldCmd struct {
	File string `arg:"" help:"Model file" type:"path"`
	Name string `arg:"" help:"Field name"`
	Head int    `short:"n" help:"Print only the first N elements (0 = all)" default:"0"`
}

func (c *FieldCmd) Run(g *Globals) error {
	m, err := g.read(c.File)
	if err != nil {
		return err
	}
	f, err := m.Field(c.Name)
	if err != nil {
		return err
	}

	n := f.Len()
	if c.Head > 0 && c.Head < n {
		n = c.Head
	}
	for i := 0; i < n; i++ {
		switch f.Type {
		case tycho.FieldFloat:
			fmt.Fprintln(stdout, strconv.FormatFloat(f.Floats[i], 'g', -1, 64))
		case tycho.FieldInt:
			fmt.Fprintln(stdout, f.Ints[i])
		default:
			fmt.Fprintln(stdout, f.Strings[i])
		}
	}
	return nil
}

// UnitsCmd prints the units of a field.
type UnitsCmd struct {
	File     string `arg:"" help:"Model file" type:"path"`
	Quantity string `arg:"" help:"Field name"`
}

func (c *UnitsCmd) Run(g *Globals) error {
	table, err := g.table()
	if err != nil {
		return err
	}
	m, err := g.read(c.File)
	if err != nil {
		return err
	}

	u, err := table.Lookup(m, c.Quantity)
	var uncertain *tyerrors.UnitsError
	switch {
	case errors.As(err, &uncertain):
		if u.IsDimensionless() && uncertain.Note != "" {
			fmt.Fprintf(stdout, "unknown (%s)\n", uncertain.Note)
			return nil
		}
		fmt.Fprintf(stdout, "%s (uncertain", u)
		if uncertain.Note != "" {
			fmt.Fprintf(stdout, ": %s", uncertain.Note)
		}
		fmt.Fprintln(stdout, ")")
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintln(stdout, u)
	return nil
}

// MassCmd prints the summed zone mass of each model.
type MassCmd struct {
	Files []string `arg:"" help:"Model files" type:"path"`
}

func (c *MassCmd) Run(g *Globals) error {
	report := g.readAll(c.Files)
	eachModel(report, func(m *tycho.Model) error {
		grams, err := derived.TotalMass(m)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s  %s g  %s Msun\n", m.Filename,
			strconv.FormatFloat(grams, 'g', -1, 64),
			strconv.FormatFloat(grams/derived.SolarMass, 'g', 6, 64))
		return nil
	})
	return failures(report)
}

// TimeCmd prints the age of each model.
type TimeCmd struct {
	Files []string `arg:"" help:"Model files" type:"path"`
}

func (c *TimeCmd) Run(g *Globals) error {
	report := g.readAll(c.Files)
	eachModel(report, func(m *tycho.Model) error {
		seconds, err := derived.Age(m)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s  %s s  %s Myr\n", m.Filename,
			strconv.FormatFloat(seconds, 'g', -1, 64),
			strconv.FormatFloat(seconds/derived.SecondsPerMyr, 'g', 6, 64))
		return nil
	})
	return failures(report)
}

// SummaryCmd writes one summary block per model.
type SummaryCmd struct {
	Files []string `arg:"" help:"Model files" type:"path"`
	Out   string   `help:"Output file (default stdout)" type:"path"`
}

func (c *SummaryCmd) Run(g *Globals) error {
	w := stdout
	var f *os.File
	if c.Out != "" {
		var err error
		if f, err = os.Create(c.Out); err != nil {
			return tyerrors.NewIO("create", c.Out, err)
		}
		w = f
	}

	// Nothing more is written once a write fails.
	var writeErr error
	report := g.readAll(c.Files)
	eachModel(report, func(m *tycho.Model) error {
		s, err := derived.Summarize(m)
		if err != nil {
			return err
		}
		if writeErr == nil {
			_, writeErr = s.WriteTo(w)
		}
		return nil
	})

	if f != nil {
		if err := f.Close(); err != nil && writeErr == nil {
			writeErr = tyerrors.NewIO("close", c.Out, err)
		}
	}
	if writeErr != nil {
		return writeErr
	}
	return failures(report)
}

// ExportCmd decodes files and saves them to a store.
type ExportCmd struct {
	Files []string `arg:"" help:"Model files" type:"path"`
	DB    string   `name:"db" help:"SQLite database path" default:"models.sqlite" type:"path"`
}

func (c *ExportCmd) Run(g *Globals) error {
	ctx := context.Background()
	s, err := store.Open(ctx, c.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	report := g.readAll(c.Files)
	for _, res := range report.Results {
		if res.Err != nil {
			continue
		}
		id, created, err := s.Save(ctx, res.Model)
		if err != nil {
			logging.ErrorContext(ctx, "export_failed", "path", res.Path, "db", c.DB, "error", err.Error())
			return tyerrors.Wrap(err, res.Path)
		}
		state := "stored"
		if !created {
			state = "already stored"
		}
		fmt.Fprintf(stdout, "%s: %s %s\n", res.Path, state, id)
	}
	return failures(report)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	fmt.Fprintf(stdout, "tycho version %s\n", version)
	fmt.Fprintf(stdout, "sqlite driver: %s (%s)\n", info.DriverName, info.DriverType)
	return nil
}

func newParser(cli any) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("tycho"),
		kong.Description("TYCHO stellar evolution model reader"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
}

func main() {
	parser, err := newParser(&CLI)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	ctx.FatalIfErrorf(CLI.setupLogging())

	err = ctx.Run(&CLI.Globals)
	if err != nil {
		logging.Error("command_failed", "command", ctx.Command(), "error", err.Error())
	}
	ctx.FatalIfErrorf(err)
}
