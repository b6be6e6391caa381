package derived

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	tyerrors "github.com/FocuswithJustin/tychomodel/core/errors"
	"github.com/FocuswithJustin/tychomodel/core/tycho"
)

const evolvedModel = `TYCHO 8.00 Ea 1.50 3 0.02
kk   3
time   3.15576e13

specific volume
 1.0  2.0  4.0
 8.0

zone mass
 1.98855e33  1.98855e33  0.0
 0.0

luminosity
 1.0e32  2.0e32  3.0e32
 3.826e33

p
 0.5  0.6  0.7
 0.7

he4
 0.48  0.38  0.28
 0.28

d
 1.0-05  2.0-05  3.0-05
 3.0-05
`

func decode(t *testing.T, text string) *tycho.Model {
	t.Helper()
	m, err := tycho.Decode(text, tycho.WithFilename("Ea00650"))
	require.NoError(t, err)
	return m
}

func TestAddDensity(t *testing.T) {
	m := decode(t, evolvedModel)
	require.NoError(t, AddDensity(m))

	density, err := m.Floats(FieldDensity)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 0.5, 0.25, 0.125}, density)
	require.Equal(t, FieldDensity, m.Keys()[m.Len()-1])

	err = AddDensity(m)
	require.ErrorIs(t, err, tyerrors.ErrDuplicateField)
}

func TestAddDensityMissingVolume(t *testing.T) {
	m := tycho.NewModel("empty")
	err := AddDensity(m)
	require.ErrorIs(t, err, tyerrors.ErrNotFound)
	require.False(t, m.Has(FieldDensity))
}

func TestMass(t *testing.T) {
	m := decode(t, evolvedModel)

	total, err := TotalMass(m)
	require.NoError(t, err)
	require.InDelta(t, 2*SolarMass, total, 1e20)

	msun, err := SolarMasses(m)
	require.NoError(t, err)
	require.InDelta(t, 2.0, msun, 1e-12)

	_, err = TotalMass(tycho.NewModel("empty"))
	require.ErrorIs(t, err, tyerrors.ErrNotFound)
}

func TestAge(t *testing.T) {
	m := decode(t, evolvedModel)

	age, err := Age(m)
	require.NoError(t, err)
	require.Equal(t, 3.15576e13, age)

	myr, err := AgeMyr(m)
	require.NoError(t, err)
	require.InDelta(t, 1.0, myr, 1e-12)

	_, err = Age(tycho.NewModel("empty"))
	require.ErrorIs(t, err, tyerrors.ErrNotFound)

	bad := decode(t, "TYCHO 8.00 ab\nkk   3\ntime   unknown\n")
	_, err = Age(bad)
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	m := decode(t, evolvedModel)

	s, err := Summarize(m)
	require.NoError(t, err)
	require.Equal(t, "Ea00650", s.Name)
	require.InDelta(t, 1.0, s.AgeMyr, 1e-12)
	require.InDelta(t, 1.0, s.Luminosity, 1e-12)
	require.Equal(t, 0.5, s.CoreH)
	require.Equal(t, 0.48, s.CoreHe)
	require.Equal(t, 1.0e-5, s.CoreD)

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	require.Equal(t, "Ea00650\n"+
		"  age (Myr)  1\n"+
		"  L / Lsun   1\n"+
		"  core H     0.5\n"+
		"  core He    0.48\n"+
		"  core D     1e-05\n", buf.String())
}

func TestSummarizeMissingComposition(t *testing.T) {
	m := decode(t, "TYCHO 8.00 ab\nkk   3\ntime   1.0\n\nluminosity\n 1.0  2.0  3.0\n 4.0\n")
	_, err := Summarize(m)
	require.ErrorIs(t, err, tyerrors.ErrNotFound)
}
