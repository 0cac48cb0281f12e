package audit

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Match pairs records between dataset A and dataset B in three passes:
// exact identifier, exact normalized name, then greedy fuzzy name similarity.
// Every record appears in at most one pair; the remainder is returned as the
// two unmatched lists in input order. Matched pairs are returned in dataset A
// order regardless of which pass established them.
func Match(a, b []*EmployeeRecord, cfg Config) ([]MatchedPair, []*EmployeeRecord, []*EmployeeRecord) {
	matchOf := make([]int, len(a)) // index into b, -1 when unmatched
	method := make([]MatchMethod, len(a))
	score := make([]float64, len(a))
	for i := range matchOf {
		matchOf[i] = -1
	}
	usedB := make([]bool, len(b))

	commit := func(ai, bi int, m MatchMethod, s float64) {
		matchOf[ai] = bi
		method[ai] = m
		score[ai] = s
		usedB[bi] = true
	}

	// Pass 1: exact identifier. Each identifier value is consumed at most
	// once per side; first occurrence wins.
	matchExact(a, b, matchOf, usedB, func(r *EmployeeRecord) string { return r.Identifier },
		func(ai, bi int) { commit(ai, bi, MatchExactID, 1.0) })

	// Pass 2: exact normalized name over what remains.
	matchExact(a, b, matchOf, usedB, func(r *EmployeeRecord) string { return r.FullName },
		func(ai, bi int) { commit(ai, bi, MatchExactName, 1.0) })

	// Pass 3: fuzzy name similarity, greedy by descending score.
	if cfg.FuzzyMatching {
		type candidate struct {
			ai, bi  int
			score   float64
			suppTie bool
		}
		var candidates []candidate
		for ai, ra := range a {
			if matchOf[ai] >= 0 {
				continue
			}
			for bi, rb := range b {
				if usedB[bi] {
					continue
				}
				s := NameSimilarity(ra.FullName, rb.FullName)
				if s < cfg.NameThreshold {
					continue
				}
				candidates = append(candidates, candidate{
					ai:      ai,
					bi:      bi,
					score:   s,
					suppTie: supplementaryMatch(ra, rb),
				})
			}
		}

		// Ties: prefer matching supplementary identifiers, then A input
		// order, then B input order, for determinism.
		sort.SliceStable(candidates, func(i, j int) bool {
			ci, cj := candidates[i], candidates[j]
			if ci.score != cj.score {
				return ci.score > cj.score
			}
			if ci.suppTie != cj.suppTie {
				return ci.suppTie
			}
			if ci.ai != cj.ai {
				return ci.ai < cj.ai
			}
			return ci.bi < cj.bi
		})

		for _, c := range candidates {
			if matchOf[c.ai] >= 0 || usedB[c.bi] {
				continue
			}
			commit(c.ai, c.bi, MatchFuzzyName, c.score)
		}
	}

	var pairs []MatchedPair
	var unmatchedA []*EmployeeRecord
	for ai, ra := range a {
		if matchOf[ai] < 0 {
			unmatchedA = append(unmatchedA, ra)
			continue
		}
		pairs = append(pairs, MatchedPair{
			A:      ra,
			B:      b[matchOf[ai]],
			Method: method[ai],
			Score:  score[ai],
		})
	}
	var unmatchedB []*EmployeeRecord
	for bi, rb := range b {
		if !usedB[bi] {
			unmatchedB = append(unmatchedB, rb)
		}
	}

	return pairs, unmatchedA, unmatchedB
}

// matchExact pairs unmatched records whose key strings are byte-equal,
// consuming each key occurrence at most once per side in input order.
func matchExact(a, b []*EmployeeRecord, matchOf []int, usedB []bool, key func(*EmployeeRecord) string, commit func(ai, bi int)) {
	pending := make(map[string][]int)
	for bi, rb := range b {
		if usedB[bi] {
			continue
		}
		k := key(rb)
		if k == "" {
			continue
		}
		pending[k] = append(pending[k], bi)
	}

	for ai, ra := range a {
		if matchOf[ai] >= 0 {
			continue
		}
		k := key(ra)
		if k == "" {
			continue
		}
		queue := pending[k]
		if len(queue) == 0 {
			continue
		}
		commit(ai, queue[0])
		pending[k] = queue[1:]
	}
}

// NameSimilarity scores two normalized names in [0,1]. It takes the better of
// the plain edit-distance ratio and a token-set ratio, so both typos
// ("Jon"/"John") and reordering ("Smith, John"/"John Smith") score high.
func NameSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	plain := editRatio(a, b)
	tokens := editRatio(tokenKey(a), tokenKey(b))
	if tokens > plain {
		return tokens
	}
	return plain
}

func editRatio(a, b string) float64 {
	longest := len([]rune(a))
	if lb := len([]rune(b)); lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

// tokenKey reduces a name to its sorted unique tokens.
func tokenKey(s string) string {
	fields := strings.Fields(strings.Map(stripPunct, s))
	seen := make(map[string]struct{}, len(fields))
	tokens := fields[:0]
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func stripPunct(r rune) rune {
	switch r {
	case ',', '.', ';', '\'':
		return -1
	default:
		return r
	}
}

// supplementaryMatch reports whether two records share a non-empty
// supplementary identifier (partial ID or department), used only to break
// fuzzy-score ties.
func supplementaryMatch(a, b *EmployeeRecord) bool {
	if a.Identifier != "" && a.Identifier == b.Identifier {
		return true
	}
	da, aok := a.Fields[FieldDepartment]
	db, bok := b.Fields[FieldDepartment]
	if aok && bok && da.Kind == ValueString && db.Kind == ValueString {
		return da.Str != "" && strings.EqualFold(da.Str, db.Str)
	}
	return false
}
