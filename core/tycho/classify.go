package tycho

import (
	"regexp"
	"strings"

	tyerrors "github.com/FocuswithJustin/tychomodel/core/errors"
)

// Kind classifies a block of model file text.
type Kind int

// Block kinds, in classification precedence order.
const (
	KindFirst Kind = iota
	KindIsotope
	KindHeader
	KindInt
	KindFloat
	KindLabel
	KindBlank
)

func (k Kind) String() string {
	switch k {
	case KindFirst:
		return "FIRST"
	case KindIsotope:
		return "ISOTOPE"
	case KindHeader:
		return "HEADER"
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindLabel:
		return "LABEL"
	case KindBlank:
		return "BLANK"
	default:
		return "UNKNOWN"
	}
}

// Token shapes shared by the classifier and the block parser.
const (
	intPattern     = `[-+]?[0-9]+`
	floatPattern   = `[-+]?(?:[0-9]+\.[0-9]*|\.[0-9]+)(?:[eE][-+]?[0-9]+|[-+][0-9]+)?`
	isotopePattern = `[a-zY]{1,2}[0-9]{0,3}`
	strPattern     = `\S+(?: \S+)*`
)

// Line shapes. Each is matched against one line without its terminator.
var (
	firstLineRe   = regexp.MustCompile(`^TYCHO(?: +\S+)+ *$`)
	isotopeLineRe = regexp.MustCompile(`^ *` + isotopePattern + `(?: *` + isotopePattern + `)* *$`)
	headerLineRe  = regexp.MustCompile(`^ *(` + strPattern + `) {2,}(` + strPattern + `) *$`)
	intLineRe     = regexp.MustCompile(`^ *` + intPattern + `(?: +` + intPattern + `)* *$`)
	floatLineRe   = regexp.MustCompile(`^ *` + floatPattern + `(?: +` + floatPattern + `)* *$`)
	labelLineRe   = regexp.MustCompile(`^ *` + strPattern + ` *$`)
	blankLineRe   = regexp.MustCompile(`^ *$`)
)

// RawBlock is a classified span of the source text. Start and End are byte
// offsets into the text, End exclusive; Text includes line terminators.
type RawBlock struct {
	Kind  Kind
	Text  string
	Start int
	End   int
	Line  int // 1-based line of the first line in the block
	Lines int // number of lines in the block
}

// matcher claims a run of lines of one kind.
type matcher struct {
	kind   Kind
	line   *regexp.Regexp
	minRun int
	maxRun int // 0 means unbounded
}

// matchers in precedence order; the first one that claims the cursor wins.
var matchers = []matcher{
	{kind: KindFirst, line: firstLineRe, minRun: 1, maxRun: 1},
	{kind: KindIsotope, line: isotopeLineRe, minRun: 2},
	{kind: KindHeader, line: headerLineRe, minRun: 2},
	{kind: KindInt, line: intLineRe, minRun: 2},
	{kind: KindFloat, line: floatLineRe, minRun: 2},
	{kind: KindLabel, line: labelLineRe, minRun: 1, maxRun: 1},
	{kind: KindBlank, line: blankLineRe, minRun: 1},
}

// sourceLine is one line of the input.
type sourceLine struct {
	text  string // content without "\n" or "\r\n"
	start int
	end   int // offset just past the terminator
}

func splitLines(text string) []sourceLine {
	var lines []sourceLine
	start := 0
	for start < len(text) {
		end := len(text)
		content := text[start:]
		if idx := strings.IndexByte(content, '\n'); idx >= 0 {
			end = start + idx + 1
			content = content[:idx]
		}
		content = strings.TrimSuffix(content, "\r")
		lines = append(lines, sourceLine{text: content, start: start, end: end})
		start = end
	}
	return lines
}

// run returns how many lines starting at i the matcher claims, or 0.
func (m matcher) run(lines []sourceLine, i int) int {
	n := 0
	for i+n < len(lines) && (m.maxRun == 0 || n < m.maxRun) {
		if !m.line.MatchString(lines[i+n].text) {
			break
		}
		n++
	}
	if n < m.minRun {
		return 0
	}
	return n
}

// Classify partitions text into consecutive blocks. The blocks cover the
// whole input with no gaps or overlaps; text that no block shape accepts is
// a ClassificationError.
func Classify(text string) ([]RawBlock, error) {
	lines := splitLines(text)
	var blocks []RawBlock

	for i := 0; i < len(lines); {
		claimed := false
		for _, m := range matchers {
			n := m.run(lines, i)
			if n == 0 {
				continue
			}
			start, end := lines[i].start, lines[i+n-1].end
			blocks = append(blocks, RawBlock{
				Kind:  m.kind,
				Text:  text[start:end],
				Start: start,
				End:   end,
				Line:  i + 1,
				Lines: n,
			})
			i += n
			claimed = true
			break
		}
		if !claimed {
			return nil, &tyerrors.ClassificationError{Line: i + 1, Text: lines[i].text}
		}
	}

	return blocks, nil
}
