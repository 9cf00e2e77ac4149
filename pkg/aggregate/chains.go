package aggregate

import (
	"sort"

	"github.com/ChrisMcGann/lipidquant/pkg/chain"
)

// ChainArea is the area explained by one chain combination
type ChainArea struct {
	Name string
	Area float64
}

// ChainAreas is kept sorted by descending area; equal areas keep their insertion order
type ChainAreas []ChainArea

// Get returns the area of a combination
func (c ChainAreas) Get(name string) (float64, bool) {
	for _, ca := range c {
		if ca.Name == name {
			return ca.Area, true
		}
	}
	return 0, false
}

// Names returns the combination names, strongest first
func (c ChainAreas) Names() []string {
	names := make([]string, len(c))
	for i, ca := range c {
		names[i] = ca.Name
	}
	return names
}

func (c ChainAreas) add(name string, area float64) ChainAreas {
	for i := range c {
		if c[i].Name == name {
			c[i].Area += area
			return c
		}
	}
	return append(c, ChainArea{Name: name, Area: area})
}

func (c ChainAreas) sorted() ChainAreas {
	sort.SliceStable(c, func(i, j int) bool { return c[i].Area > c[j].Area })
	return c
}

// AddChainInformation adds chain combination areas detected for one modification to the
// per-modification and the total lists. Permuted names ("18:1_16:0", "16:0_18:1") count as one
// combination. It returns the highest number of chains of any combination. If a name cannot be
// decoded nothing is added.
func (r *ResultArea) AddChainInformation(mod string, areas map[string]float64) (int, error) {
	raw := make([]string, 0, len(areas))
	for name := range areas {
		raw = append(raw, name)
	}
	sort.Strings(raw)

	canonical := make([]string, len(raw))
	maxChains := 0
	for i, name := range raw {
		c, n, err := chain.Canonical(name)
		if err != nil {
			return 0, err
		}
		canonical[i] = c
		if n > maxChains {
			maxChains = n
		}
	}

	perMod := append(ChainAreas(nil), r.chainsPerMod[mod]...)
	for i, name := range raw {
		perMod = perMod.add(canonical[i], areas[name])
		r.chainsTotal = r.chainsTotal.add(canonical[i], areas[name])
	}
	r.chainsPerMod[mod] = perMod.sorted()
	r.chainsTotal = r.chainsTotal.sorted()
	return maxChains, nil
}

// ChainInformation returns a copy of the chain areas of one modification
func (r *ResultArea) ChainInformation(mod string) ChainAreas {
	return append(ChainAreas(nil), r.chainsPerMod[mod]...)
}

// ChainInformationTotal returns a copy of the chain areas summed over all modifications
func (r *ResultArea) ChainInformationTotal() ChainAreas {
	return append(ChainAreas(nil), r.chainsTotal...)
}

// StrongestChainIdentification returns the combination explaining the most area
func (r *ResultArea) StrongestChainIdentification() (string, bool) {
	if len(r.chainsTotal) == 0 {
		return "", false
	}
	return r.chainsTotal[0].Name, true
}
