package models

import (
	"fmt"
	"strings"
	"time"
)

// FeedbackType is the closed set of interaction kinds recorded against a job.
type FeedbackType string

const (
	FeedbackView    FeedbackType = "view"
	FeedbackLike    FeedbackType = "like"
	FeedbackSave    FeedbackType = "save"
	FeedbackApply   FeedbackType = "apply"
	FeedbackDislike FeedbackType = "dislike"
)

// FeedbackTypes lists every valid feedback type in a stable order.
var FeedbackTypes = []FeedbackType{
	FeedbackView,
	FeedbackLike,
	FeedbackSave,
	FeedbackApply,
	FeedbackDislike,
}

// ParseFeedbackType normalizes a raw feedback string from storage.
func ParseFeedbackType(raw string) (FeedbackType, error) {
	ft := FeedbackType(strings.ToLower(strings.TrimSpace(raw)))
	switch ft {
	case FeedbackView, FeedbackLike, FeedbackSave, FeedbackApply, FeedbackDislike:
		return ft, nil
	default:
		return "", fmt.Errorf("unknown feedback type %q", raw)
	}
}

// Interaction is one feedback record. Score is nil when the source row had
// no explicit score.
type Interaction struct {
	CandidateID  int64        `json:"candidateId"`
	JobID        int64        `json:"jobId"`
	FeedbackType FeedbackType `json:"feedbackType"`
	Score        *float64     `json:"score,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// FeedbackWeights maps each feedback type to its implicit-feedback weight.
type FeedbackWeights map[FeedbackType]float64

// NewFeedbackWeights converts a config table keyed by raw names. Unknown
// names are rejected so a typo cannot silently zero out a signal.
func NewFeedbackWeights(raw map[string]float64) (FeedbackWeights, error) {
	out := make(FeedbackWeights, len(raw))
	for name, w := range raw {
		ft, err := ParseFeedbackType(name)
		if err != nil {
			return nil, err
		}
		if w < 0 {
			return nil, fmt.Errorf("feedback weight for %s must be non-negative", ft)
		}
		out[ft] = w
	}
	return out, nil
}

// Weight returns the implicit weight for an interaction. An explicit positive
// score scales the type weight.
func (fw FeedbackWeights) Weight(in Interaction) float64 {
	w := fw[in.FeedbackType]
	if in.Score != nil && *in.Score > 0 {
		return *in.Score * w
	}
	return w
}

// Max returns the largest configured weight.
func (fw FeedbackWeights) Max() float64 {
	var m float64
	for _, w := range fw {
		if w > m {
			m = w
		}
	}
	return m
}
