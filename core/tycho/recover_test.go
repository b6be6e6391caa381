package tycho

import (
	"fmt"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	tyerrors "github.com/FocuswithJustin/tychomodel/core/errors"
)

func TestRecoverFloatElidedExponentRoundTrip(t *testing.T) {
	for exp := -99; exp <= 99; exp++ {
		token := fmt.Sprintf("1.234%+03d", exp)
		want, err := strconv.ParseFloat(fmt.Sprintf("1.234E%+03d", exp), 64)
		require.NoError(t, err)

		got, err := RecoverFloat(token)
		require.NoError(t, err, "token %q", token)
		require.Equal(t, want, got, "token %q", token)
	}
}

func TestRecoverFloatStandardForms(t *testing.T) {
	tests := []struct {
		token string
		want  float64
	}{
		{"1.0", 1.0},
		{"-2.5", -2.5},
		{"1.0e33", 1.0e33},
		{"1.0E-05", 1.0e-5},
		{".5", 0.5},
		{"3.", 3.0},
		{"  6.02e23  ", 6.02e23},
		{"-1.5-03", -1.5e-3},
		{"+2.0+10", 2.0e10},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := RecoverFloat(tt.token)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRecoverFloatSaturates(t *testing.T) {
	got, err := RecoverFloat("1.0-400")
	require.NoError(t, err)
	require.Equal(t, 0.0, got)

	got, err = RecoverFloat("1.0+400")
	require.NoError(t, err)
	require.True(t, math.IsInf(got, 1))
}

func TestRecoverFloatMalformed(t *testing.T) {
	for _, token := range []string{"1.-05", "abc", "1.2.3", "", "--1.0"} {
		t.Run(token, func(t *testing.T) {
			_, err := RecoverFloat(token)
			require.Error(t, err)
			require.ErrorIs(t, err, tyerrors.ErrMalformedNumber)

			var mn *tyerrors.MalformedNumberError
			require.ErrorAs(t, err, &mn)
		})
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		token string
		want  Value
	}{
		{"5", IntValue(5)},
		{"-12", IntValue(-12)},
		{"8.00", FloatValue(8.0)},
		{"1.0e33", FloatValue(1.0e33)},
		{"2.5-02", FloatValue(2.5e-2)},
		{"TYCHO", StringValue("TYCHO")},
		{"ab", StringValue("ab")},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			require.Equal(t, tt.want, Convert(tt.token))
		})
	}
}

func TestSplitFusedIsotope(t *testing.T) {
	tests := []struct {
		name  string
		token string
		width int
		want  []string
	}{
		{"width 3", "he4c12o16", 3, []string{"he4", "c12", "o16"}},
		{"width 3 short remainder", "pc12o16", 3, []string{"p", "c12", "o16"}},
		{"width 5", "ag107cd112", 5, []string{"ag107", "cd112"}},
		{"width 5 short remainder", "nag107cd112", 5, []string{"n", "ag107", "cd112"}},
		{"fits", "fe56", 5, []string{"fe56"}},
		{"default width", "ag107cd112", 0, []string{"ag107", "cd112"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SplitFusedIsotope(tt.token, tt.width))
		})
	}
}

func TestSplitIsotopeFieldFallsBackToPattern(t *testing.T) {
	// At width 5 the column peel yields "he4c" and "12o16"; neither is a name.
	require.Equal(t, []string{"he4", "c12", "o16"}, splitIsotopeField("he4c12o16", 5))
	require.Equal(t, []string{"he4"}, splitIsotopeField("he4", 5))
	require.Equal(t, []string{"he4", "c12", "o16"}, splitIsotopeField("he4c12o16", 3))
}

func TestNormalizeFirstLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TYCHO 8.00new 1.50", "TYCHO 8.00 new 1.50"},
		{"TYCHO 8.00new", "TYCHO 8.00 new"},
		{"TYCHO 8.00 new 1.50", "TYCHO 8.00 new 1.50"},
		{"TYCHO 8.00newer 1.50", "TYCHO 8.00newer 1.50"},
		{"TYCHO 8.00 ab 1.50", "TYCHO 8.00 ab 1.50"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeFirstLine(tt.in))
		})
	}
}
