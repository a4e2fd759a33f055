package match

import (
	"strings"

	"hargalist/internal"
	"hargalist/internal/config"
	"hargalist/internal/util"
)

// Group collects the rows of one upload that describe the same product:
// same standardized name and unit after normalization. Representative holds
// the row whose price the group commits, the lowest positive one, and
// Confidence is that row's confidence: the committed price is only as
// trustworthy as the row it came from.
type Group struct {
	Key            string
	StdName        string
	StdUnit        string
	Rows           []internal.NormalizedRow
	Representative internal.NormalizedRow
	Confidence     int
}

// Decision says what the pipeline should do with one group.
type Decision struct {
	Group   Group
	Product *internal.ProductRecord // nil means create a new product
	ToQueue bool
}

type Matcher struct {
	cfg   config.Config
	byKey map[string]internal.ProductRecord
}

func NewMatcher(cfg config.Config, products []internal.ProductRecord) *Matcher {
	byKey := make(map[string]internal.ProductRecord, len(products))
	for _, p := range products {
		unit := ""
		if p.StdUnit != nil {
			unit = *p.StdUnit
		}
		byKey[GroupKey(p.StdName, unit)] = p
	}
	return &Matcher{cfg: cfg, byKey: byKey}
}

// GroupKey builds the canonical dedup key. Case and whitespace never split
// a group.
func GroupKey(stdName, stdUnit string) string {
	return util.NormalizeKey(stdName) + "|" + util.NormalizeKey(stdUnit)
}

// GroupRows partitions normalized rows by their canonical key, in first-seen
// order. Rows without a usable name are dropped; rows with invalid prices
// stay in their group but never become the representative. A group where no
// row has a positive price is dropped entirely.
func GroupRows(rows []internal.NormalizedRow) []Group {
	index := map[string]int{}
	var groups []Group

	for _, row := range rows {
		name := strings.TrimSpace(row.StdName)
		if name == "" {
			name = strings.TrimSpace(row.Raw.Name)
		}
		if name == "" {
			continue
		}
		key := GroupKey(name, row.StdUnit)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{
				Key:     key,
				StdName: name,
				StdUnit: row.StdUnit,
			})
		}
		g := &groups[i]
		g.Rows = append(g.Rows, row)
		if row.UnitPrice > 0 && (g.Representative.UnitPrice <= 0 || row.UnitPrice < g.Representative.UnitPrice) {
			g.Representative = row
			g.Confidence = row.Confidence
		}
	}

	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		if g.Representative.UnitPrice <= 0 {
			continue
		}
		out = append(out, g)
	}
	return out
}

// Decide matches one group against the known products. Low-confidence
// groups always go to the unmatched queue, even over an existing key: a
// shaky normalization must not silently update a real product's price.
func (m *Matcher) Decide(g Group) Decision {
	minConf := m.cfg.MatchMinConfidence
	if minConf <= 0 {
		minConf = 60
	}
	if g.Confidence < minConf {
		return Decision{Group: g, ToQueue: true}
	}
	if p, ok := m.byKey[g.Key]; ok {
		return Decision{Group: g, Product: &p}
	}
	return Decision{Group: g}
}

// DecideAll runs Decide over every group, preserving order.
func (m *Matcher) DecideAll(groups []Group) []Decision {
	out := make([]Decision, 0, len(groups))
	for _, g := range groups {
		out = append(out, m.Decide(g))
	}
	return out
}
