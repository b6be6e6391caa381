// Package tycho decodes TYCHO stellar-evolution model files.
//
// A model file is a fixed-format text dump written by Fortran. It carries a
// first line ("TYCHO <version> ..."), a header of "name  value" lines, and a
// series of numeric arrays, most introduced by a label line. Nothing in the
// file declares its own layout, so decoding works in two passes:
//
//   - Classify partitions the text into typed blocks by line shape, trying
//     FIRST, ISOTOPE, HEADER, INT, FLOAT, LABEL and BLANK in that order.
//   - The assembler walks the blocks, binding each LABEL to the FLOAT block
//     that follows it and storing unlabeled blocks under fixed names
//     ("initial composition", "nz", "nn", "isotope").
//
// Numbers are recovered from Fortran's habit of dropping the exponent marker
// ("1.234-56" is 1.234E-56), and isotope names that were printed into
// adjacent columns without a separator are split apart again.
//
// Basic usage:
//
//	m, err := tycho.ReadFile("imodel.xz")
//	if err != nil {
//		return err
//	}
//	radius, err := m.Floats("radius")
package tycho
