package tycho

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tyerrors "github.com/FocuswithJustin/tychomodel/core/errors"
	"github.com/FocuswithJustin/tychomodel/internal/logging"
)

var (
	floatTokenRe   = regexp.MustCompile(floatPattern)
	intTokenRe     = regexp.MustCompile(intPattern)
	isotopeTokenRe = regexp.MustCompile(isotopePattern)
	isotopeNameRe  = regexp.MustCompile(`^` + isotopePattern + `$`)

	// versionNewRe finds a version number fused with the "new" prefix that
	// freshly generated imodels carry, e.g. "TYCHO 8.00new 1.50 ...".
	versionNewRe = regexp.MustCompile(`([0-9]+\.[0-9]+)new(\s|$)`)
)

// NormalizeFirstLine separates a version number from an abutting "new"
// prefix. Other text is returned unchanged.
func NormalizeFirstLine(line string) string {
	return versionNewRe.ReplaceAllString(line, "${1} new${2}")
}

// parseFirst stores the first-line fields under their positions.
func (a *assembler) parseFirst(b RawBlock) {
	fields := strings.Fields(NormalizeFirstLine(strings.TrimSpace(b.Text)))
	for i, f := range fields {
		a.model.Header.Set(PositionKey(i), Convert(f))
	}
}

// parseHeader stores each "name  value" line under its name. A name seen
// before keeps the later value and is reported as a diagnostic.
func (a *assembler) parseHeader(b RawBlock) error {
	for i, line := range splitLines(b.Text) {
		m := headerLineRe.FindStringSubmatch(line.text)
		if m == nil {
			return &tyerrors.ClassificationError{Line: b.Line + i, Text: line.text}
		}
		name, value := m[1], Convert(m[2])

		prev, seen := a.model.Header.Name(name)
		a.model.Header.Set(NameKey(name), value)
		if seen {
			lineNo := b.Line + i
			a.model.Diagnostics = append(a.model.Diagnostics, Diagnostic{
				Line:    lineNo,
				Key:     name,
				Message: fmt.Sprintf("header key %q redefined: %s replaces %s", name, value, prev),
			})
			logging.DuplicateHeaderKey(a.cfg.filename, name, lineNo, "previous", prev.String(), "value", value.String())
		}
	}
	return nil
}

// parseFloat stores every float in the block under name.
func (a *assembler) parseFloat(b RawBlock, name string) error {
	if a.model.Has(name) {
		return tyerrors.NewDuplicateField(name, b.Line)
	}

	tokens := floatTokenRe.FindAllString(b.Text, -1)
	values := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := RecoverFloat(tok)
		if err != nil {
			return tyerrors.Wrapf(err, "line %d", b.Line)
		}
		values[i] = v
	}

	a.model.fields.Set(name, FloatField(values))
	return nil
}

// parseInt splits the integers of the block evenly across names, in order.
// The nuclear network prints proton numbers then neutron numbers as one
// unbroken run of integers.
func (a *assembler) parseInt(b RawBlock, names []string) error {
	for _, name := range names {
		if a.model.Has(name) {
			return tyerrors.NewDuplicateField(name, b.Line)
		}
	}

	tokens := intTokenRe.FindAllString(b.Text, -1)
	if len(tokens)%len(names) != 0 {
		return &tyerrors.UnevenSplitError{Count: len(tokens), Fields: names, Line: b.Line}
	}

	size := len(tokens) / len(names)
	for i, name := range names {
		values := make([]int64, size)
		for j, tok := range tokens[i*size : (i+1)*size] {
			v, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return tyerrors.Wrapf(&tyerrors.MalformedNumberError{Token: tok, Err: err}, "line %d", b.Line)
			}
			values[j] = v
		}
		a.model.fields.Set(name, IntField(values))
	}
	return nil
}

// parseIsotope stores the isotope names of the block.
func (a *assembler) parseIsotope(b RawBlock) error {
	if a.model.Has(FieldIsotope) {
		return tyerrors.NewDuplicateField(FieldIsotope, b.Line)
	}

	var names []string
	for _, field := range strings.Fields(b.Text) {
		names = append(names, splitIsotopeField(field, a.cfg.isotopeWidth)...)
	}

	a.model.fields.Set(FieldIsotope, StringField(names))
	return nil
}

// splitIsotopeField turns one whitespace-delimited field into isotope names.
// Over-wide fields are column-split first; when that does not yield valid
// names the field is tokenized by isotope shape instead.
func splitIsotopeField(field string, width int) []string {
	if len(field) <= width && isotopeNameRe.MatchString(field) {
		return []string{field}
	}

	if len(field) > width {
		peeled := SplitFusedIsotope(field, width)
		valid := true
		for _, name := range peeled {
			if !isotopeNameRe.MatchString(name) {
				valid = false
				break
			}
		}
		if valid {
			return peeled
		}
	}

	return isotopeTokenRe.FindAllString(field, -1)
}
