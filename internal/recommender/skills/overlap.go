// Package skills compares candidate and job skill sets.
package skills

import (
	"math"
	"strings"
)

// Policy selects how overlap between two skill sets is measured.
type Policy int

const (
	// Recall scores |user ∩ job| / |job|. Extra candidate skills never hurt.
	Recall Policy = iota
	// F1 is the harmonic mean of recall against the job and precision
	// against the user.
	F1
)

func (p Policy) String() string {
	switch p {
	case Recall:
		return "recall"
	case F1:
		return "f1"
	default:
		return "unknown"
	}
}

// Normalize lowercases and trims a skill name.
func Normalize(skill string) string {
	return strings.ToLower(strings.TrimSpace(skill))
}

// NormalizeSet returns the set of normalized, non-blank skills.
func NormalizeSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		if n := Normalize(s); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Parse splits a comma separated skill string as stored in the vector index.
func Parse(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Score measures overlap under the given policy. Either side empty scores 0.
func Score(userSkills, jobSkills []string, policy Policy) float64 {
	if policy == F1 {
		return F1Score(userSkills, jobSkills)
	}
	return RecallScore(userSkills, jobSkills)
}

// RecallScore returns |user ∩ job| / |job|.
func RecallScore(userSkills, jobSkills []string) float64 {
	user := NormalizeSet(userSkills)
	job := NormalizeSet(jobSkills)
	if len(user) == 0 || len(job) == 0 {
		return 0
	}
	return float64(intersection(user, job)) / float64(len(job))
}

// F1Score returns the harmonic mean of recall and precision, rounded to
// three decimals.
func F1Score(userSkills, jobSkills []string) float64 {
	user := NormalizeSet(userSkills)
	job := NormalizeSet(jobSkills)
	if len(user) == 0 || len(job) == 0 {
		return 0
	}
	common := float64(intersection(user, job))
	if common == 0 {
		return 0
	}
	recall := common / float64(len(job))
	precision := common / float64(len(user))
	f1 := 2 * recall * precision / (recall + precision)
	return math.Round(f1*1000) / 1000
}

func intersection(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
