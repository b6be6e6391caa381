// Package derived computes quantities that TYCHO model files do not store
// directly: density, total mass, age and the per-model summary block.
package derived

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	tyerrors "github.com/FocuswithJustin/tychomodel/core/errors"
	"github.com/FocuswithJustin/tychomodel/core/tycho"
)

// Physical constants in CGS.
const (
	SolarMass       = 1.98855e33     // g
	SolarLuminosity = 3.826e33       // erg/s
	SecondsPerMyr   = 31557600 * 1e6 // Julian year
)

// Quantity names read or written by this package.
const (
	FieldDensity        = "density"
	FieldSpecificVolume = "specific volume"
	FieldZoneMass       = "zone mass"
	FieldLuminosity     = "luminosity"
	HeaderTime          = "time"
)

// AddDensity stores "density", the reciprocal of "specific volume", per zone.
func AddDensity(m *tycho.Model) error {
	if m.Has(FieldDensity) {
		return tyerrors.NewDuplicateField(FieldDensity, 0)
	}

	volume, err := m.Floats(FieldSpecificVolume)
	if err != nil {
		return err
	}

	density := make([]float64, len(volume))
	for i, v := range volume {
		density[i] = 1 / v
	}
	return m.Add(FieldDensity, tycho.FloatField(density))
}

// TotalMass returns the sum of "zone mass" in grams.
func TotalMass(m *tycho.Model) (float64, error) {
	zones, err := m.Floats(FieldZoneMass)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, z := range zones {
		total += z
	}
	return total, nil
}

// SolarMasses returns the total mass in units of the solar mass.
func SolarMasses(m *tycho.Model) (float64, error) {
	total, err := TotalMass(m)
	if err != nil {
		return 0, err
	}
	return total / SolarMass, nil
}

// Age returns the header "time" in seconds.
func Age(m *tycho.Model) (float64, error) {
	v, ok := m.Header.Name(HeaderTime)
	if !ok {
		return 0, tyerrors.NewNotFound("header key", HeaderTime)
	}
	age, ok := v.Number()
	if !ok {
		return 0, fmt.Errorf("header %q is not a number: %q", HeaderTime, v.String())
	}
	return age, nil
}

// AgeMyr returns the header "time" in millions of years.
func AgeMyr(m *tycho.Model) (float64, error) {
	age, err := Age(m)
	if err != nil {
		return 0, err
	}
	return age / SecondsPerMyr, nil
}

// Summary is the at-a-glance state of one model.
type Summary struct {
	Name       string  `json:"name"`
	AgeMyr     float64 `json:"age_myr"`
	Luminosity float64 `json:"luminosity_lsun"` // surface zone, in solar luminosities
	CoreH      float64 `json:"core_h"`          // central mass fractions
	CoreHe     float64 `json:"core_he"`
	CoreD      float64 `json:"core_d"`
}

// Summarize reads the age, surface luminosity and central hydrogen, helium
// and deuterium mass fractions of m.
func Summarize(m *tycho.Model) (Summary, error) {
	s := Summary{Name: m.Filename}

	var err error
	if s.AgeMyr, err = AgeMyr(m); err != nil {
		return Summary{}, err
	}

	lum, err := m.Floats(FieldLuminosity)
	if err != nil {
		return Summary{}, err
	}
	if len(lum) == 0 {
		return Summary{}, fmt.Errorf("field %q has no zones", FieldLuminosity)
	}
	s.Luminosity = lum[len(lum)-1] / SolarLuminosity

	for _, c := range []struct {
		iso string
		dst *float64
	}{
		{"p", &s.CoreH},
		{"he4", &s.CoreHe},
		{"d", &s.CoreD},
	} {
		v, err := m.Floats(c.iso)
		if err != nil {
			return Summary{}, err
		}
		if len(v) == 0 {
			return Summary{}, fmt.Errorf("field %q has no zones", c.iso)
		}
		*c.dst = v[0]
	}

	return s, nil
}

// WriteTo writes the summary as a text block: the model name, then one
// indented "label  value" line per quantity.
func (s Summary) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	sb.WriteString(s.Name + "\n")
	for _, row := range []struct {
		label string
		value float64
	}{
		{"age (Myr)", s.AgeMyr},
		{"L / Lsun", s.Luminosity},
		{"core H", s.CoreH},
		{"core He", s.CoreHe},
		{"core D", s.CoreD},
	} {
		fmt.Fprintf(&sb, "  %-10s %s\n", row.label, strconv.FormatFloat(row.value, 'g', -1, 64))
	}

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}
