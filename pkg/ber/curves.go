// Package ber loads empirical bit error rate curves, one per MCS, and picks
// the fastest scheme meeting a BER target at a given Eb/N0.
//
// Two CSV layouts are accepted:
//
//	eb_n0,mcs,ber          (long, one sample per row)
//	Eb_N0,1,2,...,12.6     (wide, one column per scheme)
package ber

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/ja7ad/spsim/pkg/dmg"
)

type point struct{ ebn0, ber float64 }

// Curves maps (MCS, Eb/N0) to BER. Read-only after Load, safe for
// concurrent use.
type Curves struct {
	table   *dmg.Table
	schemes []float64 // ascending
	curves  map[float64][]point
}

// Load reads a BER CSV. A nil table means dmg.DefaultTable.
func Load(path string, table *dmg.Table) (*Curves, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, table)
}

// Parse is Load over an arbitrary reader.
func Parse(r io.Reader, table *dmg.Table) (*Curves, error) {
	if table == nil {
		table = dmg.DefaultTable()
	}
	rd := csv.NewReader(r)
	rd.TrimLeadingSpace = true
	recs, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCurves, err)
	}
	if len(recs) < 2 {
		return nil, fmt.Errorf("%w: no samples", ErrMalformedCurves)
	}

	c := &Curves{table: table, curves: map[float64][]point{}}
	header := recs[0]
	if isLong(header) {
		err = c.parseLong(header, recs[1:])
	} else {
		err = c.parseWide(header, recs[1:])
	}
	if err != nil {
		return nil, err
	}

	for mcs, pts := range c.curves {
		if _, err := table.Lookup(mcs); err != nil {
			return nil, err
		}
		sort.Slice(pts, func(i, j int) bool { return pts[i].ebn0 < pts[j].ebn0 })
		c.schemes = append(c.schemes, mcs)
	}
	slices.Sort(c.schemes)
	return c, nil
}

func isLong(header []string) bool {
	if len(header) != 3 {
		return false
	}
	for _, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "ber") {
			return true
		}
	}
	return false
}

func (c *Curves) parseLong(header []string, rows [][]string) error {
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	iX, ok1 := col["eb_n0"]
	iM, ok2 := col["mcs"]
	iY, ok3 := col["ber"]
	if !ok1 || !ok2 || !ok3 {
		return fmt.Errorf("%w: long layout needs eb_n0, mcs, ber", ErrMalformedCurves)
	}
	for n, rec := range rows {
		x, err1 := parseFloat(rec[iX])
		m, err2 := parseFloat(rec[iM])
		y, err3 := parseFloat(rec[iY])
		if err := firstErr(err1, err2, err3); err != nil {
			return fmt.Errorf("%w: row %d: %v", ErrMalformedCurves, n+1, err)
		}
		c.curves[m] = append(c.curves[m], point{x, y})
	}
	return nil
}

func (c *Curves) parseWide(header []string, rows [][]string) error {
	if !strings.EqualFold(strings.TrimSpace(header[0]), "eb_n0") || len(header) < 2 {
		return fmt.Errorf("%w: wide layout needs Eb_N0 followed by scheme columns", ErrMalformedCurves)
	}
	schemes := make([]float64, len(header)-1)
	for i, h := range header[1:] {
		m, err := parseFloat(h)
		if err != nil {
			return fmt.Errorf("%w: column %q", ErrMalformedCurves, h)
		}
		schemes[i] = m
	}
	for n, rec := range rows {
		x, err := parseFloat(rec[0])
		if err != nil {
			return fmt.Errorf("%w: row %d: %v", ErrMalformedCurves, n+1, err)
		}
		for i, m := range schemes {
			// empty cell: scheme not simulated at this point
			if strings.TrimSpace(rec[i+1]) == "" {
				continue
			}
			y, err := parseFloat(rec[i+1])
			if err != nil {
				return fmt.Errorf("%w: row %d: %v", ErrMalformedCurves, n+1, err)
			}
			c.curves[m] = append(c.curves[m], point{x, y})
		}
	}
	return nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Schemes returns the MCS indexes that have a curve, ascending.
func (c *Curves) Schemes() []float64 { return slices.Clone(c.schemes) }

// Table is the MCS table the schemes were validated against.
func (c *Curves) Table() *dmg.Table { return c.table }

// BER returns the bit error rate of scheme mcs at ebn0 dB. Between samples
// the curve is interpolated linearly, in log10 domain when both neighbours
// are positive. Outside the sampled range the nearest sample is used.
func (c *Curves) BER(mcs, ebn0 float64) (float64, error) {
	pts, ok := c.curves[mcs]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownScheme, dmg.FormatIndex(mcs))
	}
	if ebn0 <= pts[0].ebn0 {
		return pts[0].ber, nil
	}
	last := pts[len(pts)-1]
	if ebn0 >= last.ebn0 {
		return last.ber, nil
	}

	i := sort.Search(len(pts), func(i int) bool { return pts[i].ebn0 >= ebn0 })
	hi, lo := pts[i], pts[i-1]
	if hi.ebn0 == ebn0 {
		return hi.ber, nil
	}
	t := (ebn0 - lo.ebn0) / (hi.ebn0 - lo.ebn0)
	if lo.ber > 0 && hi.ber > 0 {
		l0, l1 := math.Log10(lo.ber), math.Log10(hi.ber)
		return math.Pow(10, l0+t*(l1-l0)), nil
	}
	return lo.ber + t*(hi.ber-lo.ber), nil
}
