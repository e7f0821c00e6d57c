package ber

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ja7ad/spsim/pkg/dmg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wide = `Eb_N0,1,6,12
0,1e-2,1e-1,0.5
2,1e-4,1e-2,0.2
4,1e-7,1e-4,1e-2
6,0,1e-6,1e-4
`

func TestParse_Wide(t *testing.T) {
	c, err := Parse(strings.NewReader(wide), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 6, 12}, c.Schemes())

	v, err := c.BER(6, 4)
	require.NoError(t, err)
	assert.Equal(t, 1e-4, v)
}

func TestParse_Long(t *testing.T) {
	in := `eb_n0,mcs,ber
4,12.1,1e-3
2,12.1,1e-1
3,1,1e-6
`
	c, err := Parse(strings.NewReader(in), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 12.1}, c.Schemes())

	// samples are sorted by Eb/N0 on load
	v, err := c.BER(12.1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1e-1, v)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":          "Eb_N0,1\n",
		"bad scheme":     "Eb_N0,x\n1,0.1\n",
		"bad value":      "Eb_N0,1\n1,zz\n",
		"unknown scheme": "Eb_N0,42\n1,0.1\n",
		"long missing":   "snr,mcs,ber\n1,1,0.1\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(in), nil)
			assert.Error(t, err)
		})
	}

	_, err := Parse(strings.NewReader("Eb_N0,42\n1,0.1\n"), nil)
	assert.ErrorIs(t, err, dmg.ErrUnknownMCS)
}

func TestBER_Interpolation(t *testing.T) {
	c, err := Parse(strings.NewReader(wide), nil)
	require.NoError(t, err)

	// log-domain midpoint of 1e-2 and 1e-4
	v, err := c.BER(1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1e-3, v, 1e-12)

	// zero neighbour falls back to linear
	v, err = c.BER(1, 5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5e-7, v, 1e-15)

	// nearest neighbour outside the range
	v, err = c.BER(12, -3)
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)
	v, err = c.BER(12, 30)
	require.NoError(t, err)
	assert.Equal(t, 1e-4, v)

	_, err = c.BER(9, 1)
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

func TestSelect(t *testing.T) {
	c, err := Parse(strings.NewReader(wide), nil)
	require.NoError(t, err)

	cases := []struct {
		name    string
		ebn0    float64
		allowed float64
		want    float64
	}{
		{"only robust scheme", 2, 1e-3, 1},
		{"middle scheme", 4, 1e-4, 6},
		{"fastest scheme", 6, 1e-4, 12},
		{"rounding absorbs noise", 6, 1e-5, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ch, err := c.Select(tc.ebn0, tc.allowed)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ch.MCS.Index)
			t.Logf("ebn0=%g allowed=%g -> mcs %s ber=%g", tc.ebn0, tc.allowed, ch.MCS.Label(), ch.BER)
		})
	}

	_, err = c.Select(0, 1e-5)
	assert.ErrorIs(t, err, ErrNoQualifyingScheme)

	_, err = c.Select(4, 0)
	assert.ErrorIs(t, err, ErrBadAllowed)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "BER-3-iter.csv")
	require.NoError(t, os.WriteFile(path, []byte(wide), 0o644))

	c, err := Load(path, dmg.DefaultTable())
	require.NoError(t, err)
	assert.Len(t, c.Schemes(), 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"), nil)
	assert.Error(t, err)
}
