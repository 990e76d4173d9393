package latentfactor

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"job-recommender/internal/common/config"
	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/recommender/interactions"
)

const initStdDev = 0.1

// Params configures a BPR fit.
type Params struct {
	Factors         int
	LearningRate    float64
	Epochs          int
	Regularization  float64
	Seed            int64
	NegativeSamples int
}

// ParamsFromConfig copies the training section of the configuration.
func ParamsFromConfig(cfg config.TrainingConfig) Params {
	return Params{
		Factors:         cfg.EmbeddingSize,
		LearningRate:    cfg.LearningRate,
		Epochs:          cfg.Epochs,
		Regularization:  cfg.Regularization,
		Seed:            cfg.Seed,
		NegativeSamples: cfg.NegativeSamples,
	}
}

// Validate rejects parameters that cannot produce a model.
func (p Params) Validate() error {
	switch {
	case p.Factors <= 0:
		return apperrors.NewInvalidInputError("embedding size must be positive")
	case p.LearningRate <= 0 || math.IsNaN(p.LearningRate) || math.IsInf(p.LearningRate, 0):
		return apperrors.NewInvalidInputError("learning rate must be a positive number")
	case p.Epochs <= 0:
		return apperrors.NewInvalidInputError("epochs must be positive")
	case p.Regularization < 0:
		return apperrors.NewInvalidInputError("regularization must be non-negative")
	case p.NegativeSamples <= 0:
		return apperrors.NewInvalidInputError("negative sample attempts must be positive")
	}
	return nil
}

type trainingPair struct {
	user, item int
	confidence float64
}

// Fit trains a BPR model on the positive interactions of snap. Each epoch
// visits every positive pair in shuffled order, samples an unobserved job for
// the same user and takes one confidence-scaled SGD step.
func Fit(ctx context.Context, snap *interactions.Snapshot, p Params, log logger.Logger) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	users, jobs := snap.Users(), snap.Jobs()
	if len(users) < 2 || len(jobs) < 2 {
		return nil, apperrors.NewInsufficientDataError(len(users), len(jobs))
	}

	m := &Model{
		Params:  p,
		UserIDs: users,
		ItemIDs: jobs,
		Seen:    make(map[int64][]int64, len(users)),
	}
	m.index()

	maxWeight := snap.MaxWeight()
	positives := snap.Pairs()
	pairs := make([]trainingPair, len(positives))
	observed := make([]map[int]struct{}, len(users))
	for i, pos := range positives {
		u, it := m.userIndex[pos.CandidateID], m.itemIndex[pos.JobID]
		pairs[i] = trainingPair{user: u, item: it, confidence: pos.Weight / maxWeight}
		if observed[u] == nil {
			observed[u] = make(map[int]struct{})
		}
		observed[u][it] = struct{}{}
		m.Seen[pos.CandidateID] = append(m.Seen[pos.CandidateID], pos.JobID)
	}
	m.NumInteractions = len(pairs)
	m.index()

	rng := rand.New(rand.NewSource(p.Seed))
	m.UserFactors = initFactors(rng, len(users), p.Factors)
	m.ItemFactors = initFactors(rng, len(jobs), p.Factors)

	start := time.Now()
	for epoch := 0; epoch < p.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var (
			lossSum float64
			steps   int
		)
		for _, idx := range rng.Perm(len(pairs)) {
			pair := pairs[idx]
			neg, ok := sampleNegative(rng, observed[pair.user], len(jobs), p.NegativeSamples)
			if !ok {
				continue
			}
			lossSum += m.step(pair, neg, p)
			steps++
		}
		if steps > 0 {
			m.FinalLoss = lossSum / float64(steps)
		}

		log.Debug("bpr epoch finished", map[string]interface{}{
			"epoch": epoch + 1,
			"loss":  m.FinalLoss,
			"steps": steps,
		})
	}

	m.TrainedAt = time.Now().UTC()
	log.Info("bpr training finished", map[string]interface{}{
		"users":        len(users),
		"jobs":         len(jobs),
		"interactions": len(pairs),
		"factors":      p.Factors,
		"epochs":       p.Epochs,
		"finalLoss":    m.FinalLoss,
		"durationMs":   time.Since(start).Milliseconds(),
	})
	return m, nil
}

// step applies one update for (u, i, j) and returns the pair loss before it.
func (m *Model) step(pair trainingPair, neg int, p Params) float64 {
	uf := m.UserFactors[pair.user]
	pf := m.ItemFactors[pair.item]
	nf := m.ItemFactors[neg]

	x := Dot(uf, pf) - Dot(uf, nf)
	g := sigmoid(-x)
	lr := p.LearningRate * pair.confidence
	reg := p.Regularization

	for f := range uf {
		u, i, j := uf[f], pf[f], nf[f]
		uf[f] += lr * (g*(i-j) - reg*u)
		pf[f] += lr * (g*u - reg*i)
		nf[f] += lr * (-g*u - reg*j)
	}
	return softplus(-x)
}

func sampleNegative(rng *rand.Rand, observed map[int]struct{}, numItems, attempts int) (int, bool) {
	if len(observed) >= numItems {
		return 0, false
	}
	for t := 0; t < attempts; t++ {
		j := rng.Intn(numItems)
		if _, pos := observed[j]; !pos {
			return j, true
		}
	}
	return 0, false
}

func initFactors(rng *rand.Rand, rows, factors int) [][]float64 {
	out := make([][]float64, rows)
	for r := range out {
		vec := make([]float64, factors)
		for f := range vec {
			vec[f] = rng.NormFloat64() * initStdDev
		}
		out[r] = vec
	}
	return out
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Sigmoid maps a raw affinity into (0, 1).
func Sigmoid(x float64) float64 { return sigmoid(x) }

// softplus is log(1 + e^x) without overflow; softplus(-x) = -log σ(x).
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

func (p Params) String() string {
	return fmt.Sprintf("factors=%d lr=%g epochs=%d reg=%g seed=%d", p.Factors, p.LearningRate, p.Epochs, p.Regularization, p.Seed)
}
