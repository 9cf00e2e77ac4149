package isotope

import (
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
)

// DefaultCacheTTL is how long a predicted distribution stays memoized
const DefaultCacheTTL = 30 * time.Minute

// Predictor returns relative isotope intensities for a formula; index 0 is the
// monoisotopic peak and is always 1.
type Predictor interface {
	Predict(formula string, count int) ([]float64, error)
}

// Calculator predicts isotope distributions by convolving the per-element isotope patterns
type Calculator struct {
	table *ElementTable
	cache *cache.Cache
}

// NewCalculator creates a calculator for the given element table. A ttl <= 0 uses DefaultCacheTTL.
func NewCalculator(table *ElementTable, ttl time.Duration) *Calculator {
	if table == nil {
		table = DefaultElementTable()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Calculator{
		table: table,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Predict returns count relative intensities for formula
func (c *Calculator) Predict(formula string, count int) ([]float64, error) {
	if count <= 0 {
		return nil, &core.SpectrumParseError{Source: formula, Message: fmt.Sprintf("invalid isotope count %d", count)}
	}

	key := formula + "|" + strconv.Itoa(count)
	if cached, ok := c.cache.Get(key); ok {
		return append([]float64(nil), cached.([]float64)...), nil
	}

	f, err := core.ParseFormula(formula)
	if err != nil {
		return nil, &core.SpectrumParseError{Source: formula, Message: "cannot parse formula", Err: err}
	}

	dist := make([]float64, count)
	dist[0] = 1
	for _, symbol := range f.Elements() {
		n := f[symbol]
		if n == 0 {
			continue
		}
		if n < 0 {
			return nil, &core.SpectrumParseError{Source: formula, Message: fmt.Sprintf("negative atom count for %s", symbol)}
		}
		el, ok := c.table.Get(symbol)
		if !ok {
			return nil, &core.SpectrumParseError{Source: formula, Message: "no isotope data for element " + symbol}
		}
		dist = convolve(dist, power(pattern(el, count), n, count), count)
	}

	if dist[0] == 0 {
		return nil, &core.SpectrumParseError{Source: formula, Message: "monoisotopic intensity is zero"}
	}
	mono := dist[0]
	for i := range dist {
		dist[i] /= mono
	}

	c.cache.Set(key, dist, cache.DefaultExpiration)
	return append([]float64(nil), dist...), nil
}

// pattern bins an element's abundances by neutron offset; offsets outside [0,count) are dropped
func pattern(el *Element, count int) []float64 {
	p := make([]float64, count)
	for _, iso := range el.Isotopes {
		if iso.Offset >= 0 && iso.Offset < count {
			p[iso.Offset] += iso.Abundance
		}
	}
	return p
}

// power raises a pattern to the n-th convolution power by repeated squaring
func power(p []float64, n, count int) []float64 {
	result := make([]float64, count)
	result[0] = 1
	base := p
	for n > 0 {
		if n&1 == 1 {
			result = convolve(result, base, count)
		}
		n >>= 1
		if n > 0 {
			base = convolve(base, base, count)
		}
	}
	return result
}

func convolve(a, b []float64, count int) []float64 {
	out := make([]float64, count)
	for i, av := range a {
		if av == 0 {
			continue
		}
		for j := 0; i+j < count; j++ {
			out[i+j] += av * b[j]
		}
	}
	return out
}
