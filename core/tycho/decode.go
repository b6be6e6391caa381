package tycho

import (
	"strings"
	"time"

	tyerrors "github.com/FocuswithJustin/tychomodel/core/errors"
	"github.com/FocuswithJustin/tychomodel/internal/logging"
	"github.com/FocuswithJustin/tychomodel/internal/source"
)

// pendingLabel is a LABEL block waiting for its FLOAT data.
type pendingLabel struct {
	name string
	line int
}

// assembler walks classified blocks and builds the model.
type assembler struct {
	cfg     config
	model   *Model
	pending *pendingLabel
}

func newAssembler(cfg config) *assembler {
	return &assembler{
		cfg:   cfg,
		model: NewModel(cfg.filename),
	}
}

// feed consumes one block.
func (a *assembler) feed(b RawBlock) error {
	if a.pending != nil {
		switch b.Kind {
		case KindBlank:
			return nil
		case KindFloat:
			name := a.pending.name
			a.pending = nil
			return a.parseFloat(b, name)
		case KindLabel:
			return tyerrors.NewSequence(b.Line, a.pending.name, "label follows label before any data")
		default:
			return tyerrors.NewSequence(b.Line, a.pending.name, "expected FLOAT data for pending label, got "+b.Kind.String())
		}
	}

	switch b.Kind {
	case KindFirst:
		a.parseFirst(b)
	case KindHeader:
		return a.parseHeader(b)
	case KindLabel:
		a.pending = &pendingLabel{name: strings.TrimSpace(b.Text), line: b.Line}
	case KindFloat:
		if a.model.Has(FieldInitialComposition) {
			return tyerrors.NewSequence(b.Line, "", "unexpected secondary float block without a label")
		}
		return a.parseFloat(b, FieldInitialComposition)
	case KindInt:
		return a.parseInt(b, []string{FieldNZ, FieldNN})
	case KindIsotope:
		return a.parseIsotope(b)
	}
	return nil
}

// finish checks the end-of-input state.
func (a *assembler) finish() error {
	if a.pending != nil {
		return tyerrors.NewSequence(a.pending.line, a.pending.name, "unterminated label: input ended while waiting for data")
	}
	return nil
}

// Decode decodes the text of a TYCHO model file.
func Decode(text string, opts ...Option) (*Model, error) {
	return decode(text, source.Hash([]byte(text)), newConfig(opts))
}

// DecodeBytes decodes a model file already held in memory.
func DecodeBytes(data []byte, opts ...Option) (*Model, error) {
	return decode(string(data), source.Hash(data), newConfig(opts))
}

// ReadFile reads and decodes the model file at path. Compressed dumps are
// decompressed first. The filename defaults to path.
func ReadFile(path string, opts ...Option) (*Model, error) {
	f, err := source.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeFile(f, opts...)
}

// DecodeFile decodes a dump already read by the source package. The filename
// defaults to the file's path, and decode errors are prefixed with it.
func DecodeFile(f *source.File, opts ...Option) (*Model, error) {
	cfg := newConfig(append([]Option{WithFilename(f.Path)}, opts...))
	m, err := decode(string(f.Data), f.Hash, cfg)
	if err != nil {
		return nil, tyerrors.Wrap(err, f.Path)
	}
	return m, nil
}

func decode(text, hash string, cfg config) (*Model, error) {
	start := time.Now()
	logging.DecodeStart(cfg.filename, len(text))

	blocks, err := Classify(text)
	if err != nil {
		return nil, err
	}

	a := newAssembler(cfg)
	a.model.SourceHash = hash
	for _, b := range blocks {
		if err := a.feed(b); err != nil {
			return nil, err
		}
	}
	if err := a.finish(); err != nil {
		return nil, err
	}

	logging.DecodeDone(cfg.filename, len(blocks), a.model.Len(), a.model.Header.Len(), time.Since(start),
		"diagnostics", len(a.model.Diagnostics))
	return a.model, nil
}
