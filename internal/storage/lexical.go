package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/smartsearch/pkg/types"
)

// Keyword queries over the title and description columns (item tags and
// category slugs count as description). ?1 is the folded term, ?2 the limit.
// match_rank orders exact title matches, then title prefixes, then any other
// substring hit.
var lexicalQueries = map[types.EntityType]string{
	types.EntityItem: `
		SELECT i.id, i.title, i.created_at,
			CASE WHEN casefold(i.title) = ?1 THEN 0
			     WHEN instr(casefold(i.title), ?1) = 1 THEN 1
			     ELSE 2 END AS match_rank
		FROM items i
		WHERE i.is_active = 1 AND (
			instr(casefold(i.title), ?1) > 0
			OR instr(casefold(i.description), ?1) > 0
			OR EXISTS (
				SELECT 1 FROM item_tags t
				WHERE t.item_id = i.id AND instr(casefold(t.tag), ?1) > 0
			)
		)
		ORDER BY match_rank ASC, i.created_at DESC, i.id ASC
		LIMIT ?2`,
	types.EntityShop: `
		SELECT s.id, s.name, s.created_at,
			CASE WHEN casefold(s.name) = ?1 THEN 0
			     WHEN instr(casefold(s.name), ?1) = 1 THEN 1
			     ELSE 2 END AS match_rank
		FROM shops s
		WHERE s.is_approved = 1 AND (
			instr(casefold(s.name), ?1) > 0
			OR instr(casefold(s.description), ?1) > 0
		)
		ORDER BY match_rank ASC, s.created_at DESC, s.id ASC
		LIMIT ?2`,
	types.EntityCategory: `
		SELECT c.id, c.name, c.created_at,
			CASE WHEN casefold(c.name) = ?1 THEN 0
			     WHEN instr(casefold(c.name), ?1) = 1 THEN 1
			     ELSE 2 END AS match_rank
		FROM categories c
		WHERE c.is_active = 1 AND (
			instr(casefold(c.name), ?1) > 0
			OR instr(casefold(c.slug), ?1) > 0
		)
		ORDER BY match_rank ASC, c.created_at DESC, c.id ASC
		LIMIT ?2`,
}

var matchTypeByRank = [...]types.MatchType{types.MatchExact, types.MatchPrefix, types.MatchSubstring}

// searchLexicalWithQuerier runs a case-insensitive substring search over one type
func searchLexicalWithQuerier(ctx context.Context, q querier, t types.EntityType, query string, limit int) ([]LexicalResult, error) {
	sqlText, ok := lexicalQueries[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, t)
	}

	term := casefold(strings.TrimSpace(query))
	if term == "" || limit <= 0 {
		return []LexicalResult{}, nil
	}

	rows, err := q.QueryContext(ctx, sqlText, term, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute lexical search on %s: %w", t.Scope(), err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]LexicalResult, 0, limit)
	for rows.Next() {
		var (
			r         LexicalResult
			createdAt int64
			rank      int
		)
		if err := rows.Scan(&r.ID, &r.Title, &createdAt, &rank); err != nil {
			return nil, fmt.Errorf("failed to scan lexical result: %w", err)
		}
		if rank < 0 || rank >= len(matchTypeByRank) {
			rank = len(matchTypeByRank) - 1
		}
		r.MatchType = matchTypeByRank[rank]
		r.Score = LexicalScore
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lexical search on %s: %w", t.Scope(), err)
	}

	return results, nil
}
