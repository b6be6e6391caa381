// Package units maps the quantities of a decoded TYCHO model to physical
// units. Units are written as small expressions ("cm / s", "g / (cm s2)")
// and reduced to exponents of their base symbols.
package units

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// unitExpr is the participle grammar for unit expressions.
// Examples: "cm", "cm / s", "cm3 / g", "g / (cm s2)", "erg s^-1", "1"
//
//nolint:govet // participle grammar tags are not standard struct tags
type unitExpr struct {
	Numerator *unitProduct   `@@`
	Divisors  []*unitProduct `( "/" @@ )*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type unitProduct struct {
	Factors []*unitFactor `@@ ( "*"? @@ )*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type unitFactor struct {
	One    bool      `(  @"1"`
	Group  *unitExpr `| "(" @@ ")"`
	Symbol string    `| @Ident )`
	Power  *int      `( "^"? @Int )?`
}

// unitLexer splits "cm3" into the symbol and its exponent.
var unitLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[-+]?[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z]+`},
	{Name: "Punct", Pattern: `[/*()^]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var unitParser = participle.MustBuild[unitExpr](
	participle.Lexer(unitLexer),
	participle.Elide("Whitespace"),
)

func (e *unitExpr) collect(dims map[string]int, sign int) {
	e.Numerator.collect(dims, sign)
	for _, d := range e.Divisors {
		d.collect(dims, -sign)
	}
}

func (p *unitProduct) collect(dims map[string]int, sign int) {
	for _, f := range p.Factors {
		f.collect(dims, sign)
	}
}

func (f *unitFactor) collect(dims map[string]int, sign int) {
	power := 1
	if f.Power != nil {
		power = *f.Power
	}
	switch {
	case f.One:
	case f.Group != nil:
		f.Group.collect(dims, sign*power)
	default:
		dims[f.Symbol] += sign * power
	}
}

// Unit is a product of base symbols raised to integer powers. The zero
// Unit is dimensionless.
type Unit struct {
	dims map[string]int
}

// Dimensionless is the unit of pure numbers such as mass fractions.
var Dimensionless = Unit{}

// Parse parses a unit expression.
func Parse(s string) (Unit, error) {
	expr, err := unitParser.ParseString("", s)
	if err != nil {
		return Unit{}, fmt.Errorf("invalid unit %q: %w", s, err)
	}

	dims := make(map[string]int)
	expr.collect(dims, 1)
	return newUnit(dims), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Unit {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

func newUnit(dims map[string]int) Unit {
	for sym, exp := range dims {
		if exp == 0 {
			delete(dims, sym)
		}
	}
	if len(dims) == 0 {
		return Unit{}
	}
	return Unit{dims: dims}
}

// IsDimensionless reports whether the unit has no base symbols.
func (u Unit) IsDimensionless() bool {
	return len(u.dims) == 0
}

// Exponent returns the power of symbol in the unit, 0 if absent.
func (u Unit) Exponent(symbol string) int {
	return u.dims[symbol]
}

// Symbols returns the base symbols in sorted order.
func (u Unit) Symbols() []string {
	syms := make([]string, 0, len(u.dims))
	for sym := range u.dims {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}

// Mul returns the product u*o.
func (u Unit) Mul(o Unit) Unit {
	dims := make(map[string]int, len(u.dims)+len(o.dims))
	for sym, exp := range u.dims {
		dims[sym] += exp
	}
	for sym, exp := range o.dims {
		dims[sym] += exp
	}
	return newUnit(dims)
}

// Inverse returns 1/u.
func (u Unit) Inverse() Unit {
	dims := make(map[string]int, len(u.dims))
	for sym, exp := range u.dims {
		dims[sym] = -exp
	}
	return newUnit(dims)
}

// Equal reports whether both units reduce to the same base powers.
func (u Unit) Equal(o Unit) bool {
	if len(u.dims) != len(o.dims) {
		return false
	}
	for sym, exp := range u.dims {
		if o.dims[sym] != exp {
			return false
		}
	}
	return true
}

// String renders the unit in canonical form, e.g. "g / (cm s2)".
func (u Unit) String() string {
	var num, den []string
	for _, sym := range u.Symbols() {
		exp := u.dims[sym]
		if exp > 0 {
			num = append(num, term(sym, exp))
		} else {
			den = append(den, term(sym, -exp))
		}
	}

	out := "1"
	if len(num) > 0 {
		out = strings.Join(num, " ")
	}
	switch len(den) {
	case 0:
		return out
	case 1:
		return out + " / " + den[0]
	default:
		return out + " / (" + strings.Join(den, " ") + ")"
	}
}

func term(sym string, exp int) string {
	if exp == 1 {
		return sym
	}
	return sym + strconv.Itoa(exp)
}

// MarshalText encodes the unit in canonical form.
func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}
