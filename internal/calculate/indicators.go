package calculate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Alias1177/TrendScreener/models"
)

// Kind is a moving average family
type Kind string

const (
	SMA Kind = "SMA"
	EMA Kind = "EMA"
	HMA Kind = "HMA"
)

// Kinds lists the families in report column order
var Kinds = []Kind{SMA, EMA, HMA}

// DisplayPlaces is the precision indicator values carry once attached to a bar
const DisplayPlaces = 2

// Key identifies one indicator series, e.g. 200SMA
type Key struct {
	Period int
	Kind   Kind
}

func (k Key) String() string {
	return strconv.Itoa(k.Period) + string(k.Kind)
}

// ParseKey parses keys of the form <period><kind>, e.g. "21HMA"
func ParseKey(s string) (Key, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, kind := range Kinds {
		if !strings.HasSuffix(s, string(kind)) {
			continue
		}
		period, err := strconv.Atoi(strings.TrimSuffix(s, string(kind)))
		if err != nil {
			return Key{}, models.InvalidParameter("indicator", "bad period in %q", s)
		}
		if period <= 0 {
			return Key{}, models.InvalidParameter("indicator", "period must be positive in %q", s)
		}
		return Key{Period: period, Kind: kind}, nil
	}
	return Key{}, models.InvalidParameter("indicator", "unknown indicator %q", s)
}

// Set is the configured periods per kind
type Set map[Kind][]int

// Keys returns every configured key, SMA then EMA then HMA, ascending period,
// without duplicates
func (s Set) Keys() []Key {
	var keys []Key
	for _, kind := range Kinds {
		periods := append([]int(nil), s[kind]...)
		sort.Ints(periods)
		for i, p := range periods {
			if i > 0 && periods[i-1] == p {
				continue
			}
			keys = append(keys, Key{Period: p, Kind: kind})
		}
	}
	return keys
}

// Has reports whether key is configured
func (s Set) Has(key Key) bool {
	for _, p := range s[key.Kind] {
		if p == key.Period {
			return true
		}
	}
	return false
}

// Validate rejects unknown kinds and non-positive periods
func (s Set) Validate() error {
	for kind, periods := range s {
		if kind != SMA && kind != EMA && kind != HMA {
			return models.InvalidParameter("indicator", "unknown kind %q", kind)
		}
		for _, p := range periods {
			if p <= 0 {
				return models.InvalidParameter(string(kind)+" period", "must be positive, got %d", p)
			}
		}
	}
	return nil
}

// Series maps an indicator key (its String form) to values aligned with bars
type Series map[string][]models.Value

// Compute calculates one kind for each period. Every returned sequence has
// len(closes) entries; positions without enough history are undefined.
func Compute(closes []float64, periods []int, kind Kind) (map[int][]models.Value, error) {
	for _, p := range periods {
		if p <= 0 {
			return nil, models.InvalidParameter(string(kind)+" period", "must be positive, got %d", p)
		}
	}

	var fn func([]models.Value, int) []models.Value
	switch kind {
	case SMA:
		fn = SMASeries
	case EMA:
		fn = EMASeries
	case HMA:
		fn = HMASeries
	default:
		return nil, models.InvalidParameter("indicator", "unknown kind %q", kind)
	}

	values := models.Values(closes)
	out := make(map[int][]models.Value, len(periods))
	for _, p := range periods {
		out[p] = fn(values, p)
	}
	return out, nil
}

// ComputeAll calculates every configured indicator and rounds it for display
func ComputeAll(closes []float64, set Set) (Series, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}

	series := make(Series)
	for _, kind := range Kinds {
		periods := set[kind]
		if len(periods) == 0 {
			continue
		}
		byPeriod, err := Compute(closes, periods, kind)
		if err != nil {
			return nil, fmt.Errorf("compute %s: %w", kind, err)
		}
		for p, values := range byPeriod {
			series[Key{Period: p, Kind: kind}.String()] = RoundSeries(values, DisplayPlaces)
		}
	}
	return series, nil
}

// Round rounds a defined value to places decimals, half away from zero
func Round(v models.Value, places int32) models.Value {
	x, ok := v.Get()
	if !ok {
		return models.Undefined
	}
	return models.Defined(decimal.NewFromFloat(x).Round(places).InexactFloat64())
}

func RoundSeries(values []models.Value, places int32) []models.Value {
	out := make([]models.Value, len(values))
	for i, v := range values {
		out[i] = Round(v, places)
	}
	return out
}
