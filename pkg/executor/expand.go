package executor

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ja7ad/spsim/pkg/config"
	"github.com/ja7ad/spsim/pkg/study"
)

// Expand returns the Cartesian product of the sweep in declared key order,
// the last key varying fastest. ProcessID is the index in the product.
// storeRaw applies unless the sweep sets store_raw itself.
func Expand(s config.Sweep, storeRaw bool) ([]study.Combination, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	n := s.Size()
	out := make([]study.Combination, n)
	idx := make([]int, len(s))
	for pid := range n {
		doc := &yaml.Node{Kind: yaml.MappingNode}
		for k, p := range s {
			doc.Content = append(doc.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key},
				p.Values[idx[k]],
			)
		}

		c := study.Combination{StoreRaw: storeRaw}
		if err := doc.Decode(&c); err != nil {
			return nil, fmt.Errorf("%w: combination %d: %v", ErrBadSweep, pid, err)
		}
		c.ProcessID = pid
		out[pid] = c.WithDefaults()

		// odometer, last key fastest
		for k := len(s) - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < len(s[k].Values) {
				break
			}
			idx[k] = 0
		}
	}
	return out, nil
}
