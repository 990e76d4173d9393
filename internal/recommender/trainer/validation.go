package trainer

import (
	"math/rand"
	"sort"

	"job-recommender/internal/recommender/interactions"
)

// minValidationPositives is the history a user needs before one positive is
// held out for evaluation.
const minValidationPositives = 3

// LeaveOneOut picks one positive job per eligible user to hold out. A job is
// only held out while some other user keeps it in training, so the model
// still learns a vector for it.
func LeaveOneOut(snap *interactions.Snapshot, rng *rand.Rand) map[int64]int64 {
	remaining := make(map[int64]int)
	for _, j := range snap.Jobs() {
		remaining[j] = len(snap.JobUsers(j))
	}

	held := make(map[int64]int64)
	for _, u := range snap.Users() {
		jobs := snap.UserJobs(u)
		if len(jobs) < minValidationPositives {
			continue
		}
		var eligible []int64
		for j := range jobs {
			if remaining[j] > 1 {
				eligible = append(eligible, j)
			}
		}
		sort.Slice(eligible, func(a, b int) bool { return eligible[a] < eligible[b] })
		if len(eligible) == 0 {
			continue
		}
		j := eligible[rng.Intn(len(eligible))]
		held[u] = j
		remaining[j]--
	}
	return held
}
