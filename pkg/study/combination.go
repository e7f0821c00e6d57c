package study

import (
	"fmt"
	"strconv"

	"github.com/ja7ad/spsim/pkg/dmg"
)

// Arrival processes.
const (
	ArrivalSaturated = "saturated"
	ArrivalPeriodic  = "periodic"
	ArrivalPoisson   = "poisson"
)

// Combination is one point of a sweep. It is created at expansion and never
// mutated afterwards.
type Combination struct {
	ProcessID int `json:"pid" yaml:"pid"`

	MSDULength     int     `json:"msdu_length_bytes" yaml:"msdu_length_bytes"`
	MSDUMaxAgg     bool    `json:"msdu_max_agg" yaml:"msdu_max_agg"`
	MPDUMaxAgg     bool    `json:"mpdu_max_agg" yaml:"mpdu_max_agg"`
	SelfCTS        bool    `json:"self_cts" yaml:"self_cts"`
	Ack            bool    `json:"ack" yaml:"ack"`
	AllowedBER     float64 `json:"allowed_err" yaml:"allowed_err"`
	EnableRTXSS    bool    `json:"enable_r_txss" yaml:"enable_r_txss"`
	EnableSLS      bool    `json:"enable_sls" yaml:"enable_sls"`
	EbN0           float64 `json:"eb_n0" yaml:"eb_n0"`
	Mobility       string  `json:"mobility" yaml:"mobility"`
	UEAntennas     int     `json:"num_of_ue_antennas" yaml:"num_of_ue_antennas"`
	AntennaSectors int     `json:"num_of_antenna_sectors" yaml:"num_of_antenna_sectors"`
	Users          int     `json:"num_of_users" yaml:"num_of_users"`

	Arrival    string  `json:"arrival" yaml:"arrival"`
	Load       float64 `json:"load" yaml:"load"`
	BI         int64   `json:"bi_ns" yaml:"bi_ns"`
	ObservedBI int     `json:"observed_bi" yaml:"observed_bi"`
	MaxMSDU    int     `json:"max_msdu" yaml:"max_msdu"`
	MaxBacklog int     `json:"max_backlog" yaml:"max_backlog"`
	ErrorModel bool    `json:"error_model" yaml:"error_model"`
	Seed       uint64  `json:"seed" yaml:"seed"`
	Strategy   string  `json:"strategy" yaml:"strategy"`
	StoreRaw   bool    `json:"store_raw" yaml:"store_raw"`
}

// Columns is the config table header, in Record order.
var Columns = []string{
	"msdu_length_bytes", "msdu_max_agg", "mpdu_max_agg", "self_cts", "ack",
	"allowed_err", "enable_r_txss", "enable_sls", "eb_n0", "mobility",
	"num_of_ue_antennas", "num_of_antenna_sectors", "num_of_users",
	"arrival", "load", "bi_ns", "observed_bi", "max_msdu", "max_backlog",
	"error_model", "seed", "strategy", "store_raw",
}

// Record renders the combination as config table cells.
func (c Combination) Record() []string {
	b := strconv.FormatBool
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		strconv.Itoa(c.MSDULength), b(c.MSDUMaxAgg), b(c.MPDUMaxAgg), b(c.SelfCTS), b(c.Ack),
		f(c.AllowedBER), b(c.EnableRTXSS), b(c.EnableSLS), f(c.EbN0), c.Mobility,
		strconv.Itoa(c.UEAntennas), strconv.Itoa(c.AntennaSectors), strconv.Itoa(c.Users),
		c.Arrival, f(c.Load), strconv.FormatInt(c.BI, 10), strconv.Itoa(c.ObservedBI),
		strconv.Itoa(c.MaxMSDU), strconv.Itoa(c.MaxBacklog),
		b(c.ErrorModel), strconv.FormatUint(c.Seed, 10), c.Strategy, b(c.StoreRaw),
	}
}

// WithDefaults fills unset simulation knobs.
func (c Combination) WithDefaults() Combination {
	if c.Arrival == "" {
		c.Arrival = ArrivalSaturated
	}
	if c.Load <= 0 {
		c.Load = 1
	}
	if c.BI <= 0 {
		c.BI = dmg.DefaultBIDuration
	}
	if c.ObservedBI <= 0 {
		c.ObservedBI = dmg.DefaultObservedBI
	}
	if c.Users <= 0 {
		c.Users = 1
	}
	if c.UEAntennas <= 0 {
		c.UEAntennas = 1
	}
	if c.Mobility == "" {
		c.Mobility = "0"
	}
	if c.Strategy == "" {
		c.Strategy = FastName
	}
	return c
}

// Validate checks the ranges the simulation relies on.
func (c Combination) Validate() error {
	switch {
	case c.MSDULength <= 0 || c.MSDULength > dmg.MaxMSDULength:
		return fmt.Errorf("%w: msdu_length_bytes %d", ErrInvalidCombination, c.MSDULength)
	case !(c.AllowedBER > 0 && c.AllowedBER < 1):
		return fmt.Errorf("%w: allowed_err %g", ErrInvalidCombination, c.AllowedBER)
	case c.AntennaSectors <= 0 || c.UEAntennas <= 0:
		return fmt.Errorf("%w: antennas %d, sectors %d", ErrInvalidCombination, c.UEAntennas, c.AntennaSectors)
	case c.Users <= 0:
		return fmt.Errorf("%w: num_of_users %d", ErrInvalidCombination, c.Users)
	case c.BI <= 0 || c.ObservedBI <= 0:
		return fmt.Errorf("%w: bi_ns %d, observed_bi %d", ErrInvalidCombination, c.BI, c.ObservedBI)
	case c.MaxMSDU < 0 || c.MaxBacklog < 0:
		return fmt.Errorf("%w: negative bound", ErrInvalidCombination)
	}
	switch c.Arrival {
	case ArrivalSaturated, ArrivalPeriodic, ArrivalPoisson:
	default:
		return fmt.Errorf("%w: arrival %q", ErrInvalidCombination, c.Arrival)
	}
	m, err := ParseMobility(c.Mobility)
	if err != nil {
		return err
	}
	if p := m.BFTPeriod(c.AntennaSectors, c.ObservedBI, c.BI); p <= 0 {
		return fmt.Errorf("%w: %q gives a BFT period of %d ns", ErrBadMobility, c.Mobility, p)
	}
	return nil
}
