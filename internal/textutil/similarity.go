package textutil

import "sort"

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// Suggest returns up to limit candidates whose name fingerprint is at least
// threshold similar to input, most similar first. Ties keep candidate order.
func Suggest(input string, candidates []string, limit int, threshold float64) []string {
	if limit <= 0 {
		return nil
	}
	target := NewNameFingerprint(input)
	if target == nil {
		return nil
	}
	type scored struct {
		name  string
		score float64
	}
	var matches []scored
	for _, candidate := range candidates {
		score := CosineSimilarity(target, NewNameFingerprint(candidate))
		if score >= threshold {
			matches = append(matches, scored{name: candidate, score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}
