package dmg

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

// MCS describes one single-carrier modulation and coding scheme.
//   - ModulationRate: bits per symbol (1 BPSK, 2 QPSK, 4 16QAM, 6 64QAM)
//   - CodeRate: LDPC code rate
//   - RateMbps: nominal PHY data rate
type MCS struct {
	Index          float64
	ModulationRate int
	CodeRate       float64
	RateMbps       float64
}

// Label formats the index the way BER datasets name their columns.
func (m MCS) Label() string { return FormatIndex(m.Index) }

// FormatIndex renders an MCS index without trailing zeros (12.1, 9, ...).
func FormatIndex(idx float64) string {
	return strconv.FormatFloat(idx, 'f', -1, 64)
}

// Table is an MCS table ordered by index.
type Table struct {
	rows []MCS
}

// DefaultTable returns the 802.11ad SC PHY MCS set including the
// 802.11-2016 extensions (9.1, 12.1 .. 12.6).
func DefaultTable() *Table {
	return NewTable([]MCS{
		{1, 1, 1.0 / 2, 385},
		{2, 1, 1.0 / 2, 770},
		{3, 1, 5.0 / 8, 962.5},
		{4, 1, 3.0 / 4, 1155},
		{5, 1, 13.0 / 16, 1251.25},
		{6, 2, 1.0 / 2, 1540},
		{7, 2, 5.0 / 8, 1925},
		{8, 2, 3.0 / 4, 2310},
		{9, 2, 13.0 / 16, 2502.5},
		{9.1, 2, 7.0 / 8, 2695},
		{10, 4, 1.0 / 2, 3080},
		{11, 4, 5.0 / 8, 3850},
		{12, 4, 3.0 / 4, 4620},
		{12.1, 4, 13.0 / 16, 5005},
		{12.2, 4, 7.0 / 8, 5390},
		{12.3, 6, 5.0 / 8, 5775},
		{12.4, 6, 3.0 / 4, 6930},
		{12.5, 6, 13.0 / 16, 7507.5},
		{12.6, 6, 7.0 / 8, 8085},
	})
}

// NewTable copies rows and sorts them by index.
func NewTable(rows []MCS) *Table {
	t := &Table{rows: slices.Clone(rows)}
	slices.SortFunc(t.rows, func(a, b MCS) int {
		switch {
		case a.Index < b.Index:
			return -1
		case a.Index > b.Index:
			return 1
		default:
			return 0
		}
	})
	return t
}

// Lookup returns the scheme with the given index.
func (t *Table) Lookup(idx float64) (MCS, error) {
	for _, m := range t.rows {
		if m.Index == idx {
			return m, nil
		}
	}
	return MCS{}, fmt.Errorf("%w: %s", ErrUnknownMCS, FormatIndex(idx))
}

// All returns the table rows in index order.
func (t *Table) All() []MCS { return slices.Clone(t.rows) }

// LoadTable reads an MCS table CSV with the columns
// MCS, Modulation_rate, Code_rate and optionally Data_rate (Mbps).
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTable(f)
}

// ParseTable is LoadTable over an arbitrary reader.
func ParseTable(r io.Reader) (*Table, error) {
	recs, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}
	if len(recs) < 2 {
		return nil, fmt.Errorf("%w: no rows", ErrMalformedTable)
	}
	col := map[string]int{}
	for i, h := range recs[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	iIdx, ok1 := col["mcs"]
	iRm, ok2 := col["modulation_rate"]
	iRc, ok3 := col["code_rate"]
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: missing MCS/Modulation_rate/Code_rate columns", ErrMalformedTable)
	}
	iRate, hasRate := col["data_rate"]

	rows := make([]MCS, 0, len(recs)-1)
	for n, rec := range recs[1:] {
		idx, err := strconv.ParseFloat(strings.TrimSpace(rec[iIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedTable, n+1, err)
		}
		rm, err := strconv.ParseFloat(strings.TrimSpace(rec[iRm]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedTable, n+1, err)
		}
		rc, err := strconv.ParseFloat(strings.TrimSpace(rec[iRc]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedTable, n+1, err)
		}
		m := MCS{Index: idx, ModulationRate: int(rm), CodeRate: rc}
		if hasRate {
			m.RateMbps, _ = strconv.ParseFloat(strings.TrimSpace(rec[iRate]), 64)
		} else {
			// 448 data symbols out of every 512, per symbol rate
			m.RateMbps = SymbolRateGHz * 1e3 * 448 / 512 * rm * rc
		}
		rows = append(rows, m)
	}
	return NewTable(rows), nil
}
