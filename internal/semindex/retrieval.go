package semindex

import (
	"context"
	"database/sql"
	"math"
	"sort"
	"strings"
	"time"
)

// Result is one ranked retrieval hit.
type Result struct {
	Memory      Memory
	Lexical     float64
	Cosine      float64
	Fusion      float64
	FromGraph   bool
	GraphWeight float64
}

// Query parameterizes a retrieval call.
type Query struct {
	Text        string
	Limit       int
	CategoryCap int     // max results per category, 0 = unlimited
	MMRLambda   float64 // 0 uses the Index default
	MinFusion   float64 // strict gate; rescue-fallback relaxes this
	ProjectKey  string  // "" matches all projects
}

// Search runs the hybrid retrieval described in §4.4: lexical FTS (or
// keyword fallback) scored 1/(1+bm25), optional cosine similarity over
// the configured embedder, fused 0.6*lexical + 0.4*cosine, expanded
// through memory_edges, diversified with MMR, capped per category, and
// rescued if the strict gates would otherwise return nothing.
func (idx *Index) Search(ctx context.Context, q Query) ([]Result, error) {
	if q.Limit <= 0 {
		q.Limit = 10
	}
	lambda := q.MMRLambda
	if lambda == 0 {
		lambda = idx.cfg.MMRLambda
	}

	lexical, err := idx.lexicalCandidates(ctx, q.Text, q.ProjectKey, q.Limit*4)
	if err != nil {
		return nil, err
	}

	cosine := map[string]float64{}
	if idx.embedder != nil {
		if v, verr := idx.vectorCandidates(ctx, q.Text, q.Limit*4); verr == nil {
			cosine = v
		}
	}

	fused := map[string]*Result{}
	for id, score := range lexical {
		fused[id] = &Result{Memory: Memory{ID: id}, Lexical: score}
	}
	for id, score := range cosine {
		r, ok := fused[id]
		if !ok {
			r = &Result{Memory: Memory{ID: id}}
			fused[id] = r
		}
		r.Cosine = score
	}
	for _, r := range fused {
		r.Fusion = idx.cfg.LexicalWeight*r.Lexical + idx.cfg.VectorWeight*r.Cosine
	}

	candidates := filterFusion(fused, q.MinFusion)

	seeds := topIDs(candidates, q.Limit)
	if len(seeds) < q.Limit {
		if neighbors, gerr := idx.neighborScores(ctx, seeds); gerr == nil {
			for id, seedScore := range neighbors {
				if _, exists := candidates[id]; exists {
					continue
				}
				candidates[id] = &Result{Memory: Memory{ID: id}, Fusion: seedScore, FromGraph: true, GraphWeight: seedScore}
				if len(candidates) >= q.Limit*3 {
					break
				}
			}
		}
	}

	if len(candidates) == 0 {
		candidates, err = idx.rescueFallback(fused, q)
		if err != nil {
			return nil, err
		}
	}

	idx.hydrateCandidates(ctx, candidates)

	ranked := idx.diversify(candidates, lambda, q.Limit)
	return applyCategoryCap(ranked, q.CategoryCap), nil
}

func filterFusion(fused map[string]*Result, minFusion float64) map[string]*Result {
	out := map[string]*Result{}
	for id, r := range fused {
		if r.Fusion >= minFusion {
			out[id] = r
		}
	}
	return out
}

func topIDs(candidates map[string]*Result, n int) []string {
	type kv struct {
		id    string
		score float64
	}
	list := make([]kv, 0, len(candidates))
	for id, r := range candidates {
		list = append(list, kv{id, r.Fusion})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].score > list[j].score })
	if len(list) > n {
		list = list[:n]
	}
	ids := make([]string, len(list))
	for i, kv := range list {
		ids[i] = kv.id
	}
	return ids
}

// rescueFallback implements §4.4's "rescue-fallback when strict gates
// eliminate everything": first retry with a halved fusion threshold,
// then — if still empty — take the top-N candidates by fusion score
// regardless of threshold.
func (idx *Index) rescueFallback(fused map[string]*Result, q Query) (map[string]*Result, error) {
	relaxed := filterFusion(fused, q.MinFusion/2)
	if len(relaxed) > 0 {
		return relaxed, nil
	}
	if len(fused) == 0 {
		return map[string]*Result{}, nil
	}
	out := map[string]*Result{}
	for _, id := range topIDs(fused, q.Limit) {
		out[id] = fused[id]
	}
	return out, nil
}

// diversify applies Maximal Marginal Relevance: repeatedly picks the
// candidate maximizing lambda*relevance - (1-lambda)*maxSimilarityToChosen,
// using lexical token overlap of already-hydrated content as the
// similarity proxy between two candidates (a second embedding pass per
// pair is not worth it when fusion score already folds cosine in).
func (idx *Index) diversify(candidates map[string]*Result, lambda float64, limit int) []Result {
	type item struct {
		result Result
		tokens map[string]bool
	}
	items := make([]item, 0, len(candidates))
	for _, r := range candidates {
		if r.Memory.Content == "" {
			continue // failed to hydrate; drop rather than rank a phantom row
		}
		items = append(items, item{result: *r, tokens: stemAllWords(r.Memory.Content)})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].result.Fusion > items[j].result.Fusion })

	chosen := make([]item, 0, limit)
	remaining := items
	for len(chosen) < limit && len(remaining) > 0 {
		bestIdx := 0
		bestScore := math.Inf(-1)
		for i, cand := range remaining {
			maxSim := 0.0
			for _, c := range chosen {
				if sim := tokenJaccard(cand.tokens, c.tokens); sim > maxSim {
					maxSim = sim
				}
			}
			mmr := lambda*cand.result.Fusion - (1-lambda)*maxSim
			if mmr > bestScore {
				bestScore = mmr
				bestIdx = i
			}
		}
		chosen = append(chosen, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	out := make([]Result, len(chosen))
	for i, c := range chosen {
		out[i] = c.result
	}
	return out
}

func tokenJaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// hydrateCandidates loads the full Memory row for each candidate,
// leaving Memory.Content empty for ids whose row no longer exists (a
// stale vector or graph entry); diversify drops those.
func (idx *Index) hydrateCandidates(ctx context.Context, candidates map[string]*Result) {
	for id, r := range candidates {
		var m Memory
		var createdAt int64
		var meta sql.NullString
		row := idx.db.QueryRowContext(ctx, `
			SELECT id, content, scope, project_key, category, created_at, source, meta
			FROM memories WHERE id = ?`, id)
		if err := row.Scan(&m.ID, &m.Content, &m.Scope, &m.ProjectKey, &m.Category, &createdAt, &m.Source, &meta); err != nil {
			continue
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		r.Memory = m
	}
}

// applyCategoryCap enforces a max-per-category cap (§4.4) while
// preserving the MMR-decided order.
func applyCategoryCap(results []Result, cap int) []Result {
	if cap <= 0 {
		return results
	}
	out := make([]Result, 0, len(results))
	counts := map[string]int{}
	for _, r := range results {
		if counts[r.Memory.Category] >= cap {
			continue
		}
		counts[r.Memory.Category]++
		out = append(out, r)
	}
	return out
}

// lexicalCandidates scores memories via FTS5 bm25() when available,
// normalized 1/(1+bm25), or a plain keyword-overlap scan otherwise.
func (idx *Index) lexicalCandidates(ctx context.Context, query, projectKey string, limit int) (map[string]float64, error) {
	if strings.TrimSpace(query) == "" {
		return map[string]float64{}, nil
	}

	scores := map[string]float64{}
	if idx.ftsOK {
		rows, err := idx.db.QueryContext(ctx, `
			SELECT m.id, bm25(memories_fts) FROM memories_fts
			JOIN memories m ON m.id = memories_fts.id
			WHERE memories_fts MATCH ? AND (? = '' OR m.project_key = ?)
			ORDER BY bm25(memories_fts) LIMIT ?`,
			ftsQuery(query), projectKey, projectKey, limit)
		if err == nil {
			defer rows.Close()
			for rows.Next() {
				var id string
				var bm25 float64
				if err := rows.Scan(&id, &bm25); err == nil {
					scores[id] = 1 / (1 + math.Abs(bm25))
				}
			}
			return scores, nil
		}
	}

	// Keyword fallback: count query-token hits in content, normalized
	// the same way a low bm25 score would be.
	tokens := wordTokens(query)
	if len(tokens) == 0 {
		return scores, nil
	}
	rows, err := idx.db.QueryContext(ctx, `SELECT id, content FROM memories WHERE (? = '' OR project_key = ?)`, projectKey, projectKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, content string
		if err := rows.Scan(&id, &content); err != nil {
			continue
		}
		hits := 0
		lower := strings.ToLower(content)
		for _, t := range tokens {
			if strings.Contains(lower, t) {
				hits++
			}
		}
		if hits > 0 {
			scores[id] = float64(hits) / (float64(hits) + 1)
		}
	}
	return scores, nil
}

// ftsQuery escapes a free-text query into an FTS5 MATCH expression by
// quoting each token, so punctuation in user text cannot break the
// query syntax.
func ftsQuery(query string) string {
	tokens := strings.Fields(query)
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ReplaceAll(t, `"`, `""`)
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func (idx *Index) vectorCandidates(ctx context.Context, query string, limit int) (map[string]float64, error) {
	collection, err := idx.getOrCreateCollection()
	if err != nil {
		return nil, err
	}
	vec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := collection.QueryEmbedding(ctx, vec, limit, nil, nil)
	if err != nil {
		return nil, err
	}
	scores := map[string]float64{}
	for _, r := range results {
		scores[r.ID] = float64(r.Similarity)
	}
	return scores, nil
}

// wordTokens lowercases and splits on non-alphanumeric runs, dropping
// anything shorter than three characters. Kept local to this package
// rather than sharing cogstore's unexported tokenizer, since the two
// stores are deliberately decoupled (§4.3 vs §4.4).
func wordTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}

func stemAllWords(text string) map[string]bool {
	set := map[string]bool{}
	for _, w := range wordTokens(text) {
		set[w] = true
	}
	return set
}
