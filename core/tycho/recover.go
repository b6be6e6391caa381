package tycho

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	tyerrors "github.com/FocuswithJustin/tychomodel/core/errors"
)

// DefaultIsotopeWidth is the printed column width of an isotope name.
const DefaultIsotopeWidth = 5

// elidedExponent matches a float whose exponent marker was dropped by the
// Fortran writer, e.g. "1.234-56" for 1.234E-56.
var elidedExponent = regexp.MustCompile(`^([-+]?[0-9]+\.[0-9]+)([-+][0-9]+)$`)

// RecoverFloat parses a float that Fortran may or may not have mangled.
func RecoverFloat(token string) (float64, error) {
	token = strings.TrimSpace(token)
	v, err := strconv.ParseFloat(token, 64)
	if err == nil || errors.Is(err, strconv.ErrRange) {
		// Out-of-range literals saturate to ±Inf or 0.
		return v, nil
	}

	m := elidedExponent.FindStringSubmatch(token)
	if m == nil {
		return 0, &tyerrors.MalformedNumberError{Token: token, Err: err}
	}
	v, err = strconv.ParseFloat(m[1]+"E"+m[2], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, &tyerrors.MalformedNumberError{Token: token, Err: err}
	}
	return v, nil
}

// SplitFusedIsotope separates isotope names that were printed into adjacent
// fixed-width columns without a separator. Trailing width-sized chunks are
// peeled off until the remainder fits in one column; the names come back in
// file order.
func SplitFusedIsotope(token string, width int) []string {
	if width <= 0 {
		width = DefaultIsotopeWidth
	}

	var peeled []string
	for len(token) > width {
		peeled = append(peeled, token[len(token)-width:])
		token = token[:len(token)-width]
	}

	names := make([]string, 0, len(peeled)+1)
	names = append(names, token)
	for i := len(peeled) - 1; i >= 0; i-- {
		names = append(names, peeled[i])
	}
	return names
}
