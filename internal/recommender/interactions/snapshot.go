// Package interactions reads the feedback log and builds the in-memory
// structures used by collaborative filtering and training.
package interactions

import (
	"sort"

	"job-recommender/internal/models"
)

type recordKey struct {
	candidateID int64
	jobID       int64
	feedback    models.FeedbackType
}

// Snapshot is an immutable view of the feedback log at one point in time.
type Snapshot struct {
	// Records holds one interaction per (candidate, job, feedback type).
	Records []models.Interaction

	// positive maps candidate -> job -> strongest weighted signal. Zero-weight
	// feedback such as dislike never appears here.
	positive map[int64]map[int64]float64
	// jobUsers is the transpose of positive.
	jobUsers map[int64]map[int64]float64

	maxWeight float64
}

// BuildSnapshot collapses records into a Snapshot. Records must be ordered
// oldest first; a later record for the same (candidate, job, type) replaces
// the earlier one.
func BuildSnapshot(records []models.Interaction, weights models.FeedbackWeights) *Snapshot {
	latest := make(map[recordKey]int, len(records))
	deduped := make([]models.Interaction, 0, len(records))
	for _, in := range records {
		k := recordKey{in.CandidateID, in.JobID, in.FeedbackType}
		if idx, ok := latest[k]; ok {
			deduped[idx] = in
			continue
		}
		latest[k] = len(deduped)
		deduped = append(deduped, in)
	}

	s := &Snapshot{
		Records:  deduped,
		positive: make(map[int64]map[int64]float64),
		jobUsers: make(map[int64]map[int64]float64),
	}
	for _, in := range deduped {
		w := weights.Weight(in)
		if w <= 0 {
			continue
		}
		jobs, ok := s.positive[in.CandidateID]
		if !ok {
			jobs = make(map[int64]float64)
			s.positive[in.CandidateID] = jobs
		}
		if w > jobs[in.JobID] {
			jobs[in.JobID] = w
		}
		users, ok := s.jobUsers[in.JobID]
		if !ok {
			users = make(map[int64]float64)
			s.jobUsers[in.JobID] = users
		}
		if w > users[in.CandidateID] {
			users[in.CandidateID] = w
		}
		if w > s.maxWeight {
			s.maxWeight = w
		}
	}
	return s
}

// UserJobs returns the positive job weights of a candidate. The map must not
// be modified.
func (s *Snapshot) UserJobs(candidateID int64) map[int64]float64 {
	return s.positive[candidateID]
}

// JobUsers returns the candidates with positive feedback on a job.
func (s *Snapshot) JobUsers(jobID int64) map[int64]float64 {
	return s.jobUsers[jobID]
}

// Weight returns the positive weight of (candidate, job), or 0.
func (s *Snapshot) Weight(candidateID, jobID int64) float64 {
	return s.positive[candidateID][jobID]
}

// MaxWeight is the largest positive weight in the snapshot.
func (s *Snapshot) MaxWeight() float64 {
	return s.maxWeight
}

// Users returns candidates with positive feedback, ascending.
func (s *Snapshot) Users() []int64 {
	return sortedKeys(s.positive)
}

// Jobs returns jobs with positive feedback, ascending.
func (s *Snapshot) Jobs() []int64 {
	return sortedKeys(s.jobUsers)
}

// NumPositive counts distinct positive (candidate, job) pairs.
func (s *Snapshot) NumPositive() int {
	n := 0
	for _, jobs := range s.positive {
		n += len(jobs)
	}
	return n
}

// Breakdown counts records per feedback type, including zero-weight ones.
func (s *Snapshot) Breakdown() map[models.FeedbackType]int {
	out := make(map[models.FeedbackType]int, len(models.FeedbackTypes))
	for _, in := range s.Records {
		out[in.FeedbackType]++
	}
	return out
}

// Pair is one positive (candidate, job) observation.
type Pair struct {
	CandidateID int64
	JobID       int64
	Weight      float64
}

// Pairs lists positive observations ordered by candidate then job.
func (s *Snapshot) Pairs() []Pair {
	out := make([]Pair, 0, s.NumPositive())
	for _, u := range s.Users() {
		jobs := s.positive[u]
		for _, j := range sortedKeys(jobs) {
			out = append(out, Pair{CandidateID: u, JobID: j, Weight: jobs[j]})
		}
	}
	return out
}

// Without returns a copy of s lacking the given (candidate, job) pairs. It is
// used to hold out validation items before training.
func (s *Snapshot) Without(held map[int64]int64) *Snapshot {
	out := &Snapshot{
		Records:  make([]models.Interaction, 0, len(s.Records)),
		positive: make(map[int64]map[int64]float64, len(s.positive)),
		jobUsers: make(map[int64]map[int64]float64, len(s.jobUsers)),
	}
	for _, in := range s.Records {
		if j, ok := held[in.CandidateID]; ok && j == in.JobID {
			continue
		}
		out.Records = append(out.Records, in)
	}
	for u, jobs := range s.positive {
		for j, w := range jobs {
			if hj, ok := held[u]; ok && hj == j {
				continue
			}
			if out.positive[u] == nil {
				out.positive[u] = make(map[int64]float64)
			}
			out.positive[u][j] = w
			if out.jobUsers[j] == nil {
				out.jobUsers[j] = make(map[int64]float64)
			}
			out.jobUsers[j][u] = w
			if w > out.maxWeight {
				out.maxWeight = w
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
