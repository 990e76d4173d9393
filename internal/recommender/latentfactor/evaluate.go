package latentfactor

import "math"

// Evaluation holds leave-one-out ranking metrics.
type Evaluation struct {
	HitRate float64
	NDCG    float64
	Users   int
}

// Evaluate ranks each held-out job among the jobs the user did not see in
// training. Users or jobs unknown to the model are skipped.
func Evaluate(m *Model, heldOut map[int64]int64, k int) Evaluation {
	var (
		ev    Evaluation
		hits  float64
		gains float64
	)
	if k <= 0 {
		return ev
	}
	for u, j := range heldOut {
		if !m.HasUser(u) || !m.HasItem(j) {
			continue
		}
		ev.Users++
		for rank, item := range m.TopK(u, k) {
			if item.JobID == j {
				hits++
				gains += 1 / math.Log2(float64(rank)+2)
				break
			}
		}
	}
	if ev.Users > 0 {
		ev.HitRate = hits / float64(ev.Users)
		ev.NDCG = gains / float64(ev.Users)
	}
	return ev
}
