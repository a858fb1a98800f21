// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Match is a record ranked by Search.
type Match struct {
	Record
	Score int
}

var initMatcher sync.Once

// Search ranks the most recent records against query and returns the
// matches, best first. An empty query returns the recent records
// unranked.
func (s *Store) Search(ctx context.Context, query string, options ListOptions) ([]Match, error) {
	limit := options.Limit
	if limit <= 0 {
		limit = 50
	}
	// Rank over a bounded window of recent records.
	candidates, err := s.List(ctx, ListOptions{Backend: options.Backend, Limit: 1000})
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		matches := make([]Match, 0, min(limit, len(candidates)))
		for _, record := range candidates[:min(limit, len(candidates))] {
			matches = append(matches, Match{Record: record})
		}
		return matches, nil
	}

	initMatcher.Do(func() { algo.Init("default") })
	pattern := []rune(strings.ToLower(query))
	slab := util.MakeSlab(100*1024, 2048)

	var matches []Match
	for _, record := range candidates {
		text := util.ToChars([]byte(searchText(record)))
		result, _ := algo.FuzzyMatchV2(false, true, true, &text, pattern, false, slab)
		if result.Start < 0 || result.Score <= 0 {
			continue
		}
		matches = append(matches, Match{Record: record, Score: result.Score})
	}
	// Stable keeps recency order among equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func searchText(record Record) string {
	return record.Source + " " + record.URL + " " + record.Path + " " + record.MimeType
}
