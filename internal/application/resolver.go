package application

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/akaul/splitgate/internal/domain/model"
)

// Match is one fuzzy-resolution candidate. Score is 0-100, higher is better.
type Match struct {
	ID    int64
	Name  string
	Score int
	Info  string
}

// ResolveFriends scores the user's friends against a free-text query and
// returns those at or above threshold, best first.
func ResolveFriends(friends []model.Friend, query string, threshold int) []Match {
	matches := make([]Match, 0, len(friends))
	for _, f := range friends {
		name := f.DisplayName()
		score := matchScore(query, name)
		if score < threshold {
			continue
		}
		matches = append(matches, Match{ID: f.ID, Name: name, Score: score, Info: f.Email})
	}
	sortMatches(matches)
	return matches
}

// ResolveGroups scores the user's groups against a free-text query.
func ResolveGroups(groups []model.Group, query string, threshold int) []Match {
	matches := make([]Match, 0, len(groups))
	for _, g := range groups {
		score := matchScore(query, g.Name)
		if score < threshold {
			continue
		}
		matches = append(matches, Match{
			ID:    g.ID,
			Name:  g.Name,
			Score: score,
			Info:  fmt.Sprintf("%d members", len(g.Members)),
		})
	}
	sortMatches(matches)
	return matches
}

// ResolveCategories scores the category tree against a free-text query.
// Subcategories are matched too, annotated with their parent.
func ResolveCategories(categories []model.Category, query string, threshold int) []Match {
	var matches []Match
	for _, c := range categories {
		if score := matchScore(query, c.Name); score >= threshold {
			matches = append(matches, Match{ID: c.ID, Name: c.Name, Score: score})
		}
		for _, sub := range c.Subcategories {
			if score := matchScore(query, sub.Name); score >= threshold {
				matches = append(matches, Match{ID: sub.ID, Name: sub.Name, Score: score, Info: c.Name})
			}
		}
	}
	sortMatches(matches)
	return matches
}

// matchScore rates how well candidate answers query, 0-100. Exact,
// prefix, and substring matches beat pure edit-distance similarity so a
// short query like "john" still finds "John Smith".
func matchScore(query, candidate string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	c := strings.ToLower(strings.TrimSpace(candidate))
	if q == "" || c == "" {
		return 0
	}

	if q == c {
		return 100
	}

	best := 0
	if strings.HasPrefix(c, q) {
		best = 90
	} else if strings.Contains(c, q) {
		best = 80
	}

	// Compare against the whole candidate and each of its words, keeping
	// the closest.
	for _, target := range append([]string{c}, strings.Fields(c)...) {
		if s := similarity(q, target); s > best {
			best = s
		}
	}
	return best
}

// similarity converts edit distance to a 0-100 scale.
func similarity(a, b string) int {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (longest - dist) * 100 / longest
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})
}
