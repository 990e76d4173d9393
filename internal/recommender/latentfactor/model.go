// Package latentfactor holds the trained user/job embedding tables and the
// BPR training loop that produces them.
package latentfactor

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"time"
)

// EntityKind selects the embedding table for EmbeddingOf.
type EntityKind string

const (
	EntityUser EntityKind = "user"
	EntityJob  EntityKind = "job"
)

// ModelType is reported in model stats and stored with each bundle.
const ModelType = "BPR"

// ScoredItem is one job with its unnormalized affinity.
type ScoredItem struct {
	JobID int64
	Score float64
}

// Model is an immutable trained embedding table. Exported fields are the
// persisted form; indexes are rebuilt on decode.
type Model struct {
	Version   int
	TrainedAt time.Time
	Params    Params

	UserIDs     []int64
	ItemIDs     []int64
	UserFactors [][]float64
	ItemFactors [][]float64

	// Seen holds each user's positive jobs from training, ascending.
	Seen map[int64][]int64

	NumInteractions int
	FinalLoss       float64

	userIndex map[int64]int
	itemIndex map[int64]int
	seenSet   map[int64]map[int64]struct{}
}

func (m *Model) index() {
	m.userIndex = make(map[int64]int, len(m.UserIDs))
	for i, id := range m.UserIDs {
		m.userIndex[id] = i
	}
	m.itemIndex = make(map[int64]int, len(m.ItemIDs))
	for i, id := range m.ItemIDs {
		m.itemIndex[id] = i
	}
	m.seenSet = make(map[int64]map[int64]struct{}, len(m.Seen))
	for u, jobs := range m.Seen {
		set := make(map[int64]struct{}, len(jobs))
		for _, j := range jobs {
			set[j] = struct{}{}
		}
		m.seenSet[u] = set
	}
}

// NumUsers is the number of users with an embedding.
func (m *Model) NumUsers() int { return len(m.UserIDs) }

// NumItems is the number of jobs with an embedding.
func (m *Model) NumItems() int { return len(m.ItemIDs) }

// Factors is the embedding dimensionality.
func (m *Model) Factors() int { return m.Params.Factors }

// HasUser reports whether the user was present in training.
func (m *Model) HasUser(candidateID int64) bool {
	_, ok := m.userIndex[candidateID]
	return ok
}

// HasItem reports whether the job was present in training.
func (m *Model) HasItem(jobID int64) bool {
	_, ok := m.itemIndex[jobID]
	return ok
}

// Predict returns dot(user, job). ok is false when either side is unknown;
// zero is a valid learned score and never signals cold start.
func (m *Model) Predict(candidateID, jobID int64) (float64, bool) {
	u, ok := m.userIndex[candidateID]
	if !ok {
		return 0, false
	}
	i, ok := m.itemIndex[jobID]
	if !ok {
		return 0, false
	}
	return Dot(m.UserFactors[u], m.ItemFactors[i]), true
}

// TopK ranks every job the user has not interacted with. Ties are broken by
// job id ascending. An unknown user yields nil.
func (m *Model) TopK(candidateID int64, k int) []ScoredItem {
	u, ok := m.userIndex[candidateID]
	if !ok || k <= 0 {
		return nil
	}
	seen := m.seenSet[candidateID]
	out := make([]ScoredItem, 0, len(m.ItemIDs))
	for i, jobID := range m.ItemIDs {
		if _, skip := seen[jobID]; skip {
			continue
		}
		out = append(out, ScoredItem{JobID: jobID, Score: Dot(m.UserFactors[u], m.ItemFactors[i])})
	}
	SortScored(out)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// IsSeen reports whether (user, job) was a training positive.
func (m *Model) IsSeen(candidateID, jobID int64) bool {
	_, ok := m.seenSet[candidateID][jobID]
	return ok
}

// EmbeddingOf returns a copy of the entity's vector.
func (m *Model) EmbeddingOf(kind EntityKind, id int64) ([]float64, bool) {
	var (
		idx   int
		ok    bool
		table [][]float64
	)
	switch kind {
	case EntityUser:
		idx, ok = m.userIndex[id]
		table = m.UserFactors
	case EntityJob:
		idx, ok = m.itemIndex[id]
		table = m.ItemFactors
	}
	if !ok {
		return nil, false
	}
	vec := make([]float64, len(table[idx]))
	copy(vec, table[idx])
	return vec, true
}

// modelGob carries Model's fields without its methods, so gob encodes the
// struct instead of calling back into MarshalBinary.
type modelGob Model

// MarshalBinary encodes the model for the bundle store.
func (m *Model) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode((*modelGob)(m)); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode restores a model written by MarshalBinary.
func Decode(data []byte) (*Model, error) {
	var m Model
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode((*modelGob)(&m)); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if len(m.UserIDs) != len(m.UserFactors) || len(m.ItemIDs) != len(m.ItemFactors) {
		return nil, fmt.Errorf("decode model: id and factor tables differ in length")
	}
	m.index()
	return &m, nil
}

// Dot is the inner product of two equal-length vectors.
func Dot(a, b []float64) float64 {
	var s float64
	for f := range a {
		s += a[f] * b[f]
	}
	return s
}

// SortScored orders by score descending, then job id ascending.
func SortScored(items []ScoredItem) {
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].Score != items[b].Score {
			return items[a].Score > items[b].Score
		}
		return items[a].JobID < items[b].JobID
	})
}
