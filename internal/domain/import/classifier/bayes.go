package classifier

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"github.com/jbrukh/bayesian"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/repository"
)

const (
	bayesHighThreshold   = 0.9
	bayesMediumThreshold = 0.6
	bayesTrainingLimit   = 5000
)

// TrainingSource lists the user's already categorized expenses.
type TrainingSource interface {
	ListLabeledDescriptions(ctx context.Context, userID uuid.UUID, limit int) ([]repository.LabeledDescription, error)
}

type bayesModel struct {
	classes []bayesian.Class
	cl      *bayesian.Classifier // nil when there is not enough data
}

// BayesStage learns from the user's own history with a TF-IDF naive Bayes
// model. Models are built on first use and cached until Invalidate.
type BayesStage struct {
	source TrainingSource

	mu     sync.Mutex
	models map[uuid.UUID]*bayesModel
}

// NewBayesStage creates the stage.
func NewBayesStage(source TrainingSource) *BayesStage {
	return &BayesStage{source: source, models: make(map[uuid.UUID]*bayesModel)}
}

// Name implements Stage.
func (*BayesStage) Name() string { return SourceBayes }

// Invalidate drops the cached model so the next call retrains.
func (b *BayesStage) Invalidate(userID uuid.UUID) {
	b.mu.Lock()
	delete(b.models, userID)
	b.mu.Unlock()
}

// Suggest implements Stage.
func (b *BayesStage) Suggest(ctx context.Context, userID uuid.UUID, in Input) (Suggestion, bool, error) {
	terms := classificationTerms(in.Description)
	if len(terms) == 0 {
		return Suggestion{}, false, nil
	}

	m, err := b.model(ctx, userID)
	if err != nil {
		return Suggestion{}, false, err
	}
	if m.cl == nil {
		return Suggestion{}, false, nil
	}

	b.mu.Lock()
	scores, best, strict := m.cl.ProbScores(terms)
	b.mu.Unlock()

	if !strict || best < 0 || best >= len(m.classes) {
		return Suggestion{}, false, nil
	}
	p := scores[best]
	if math.IsNaN(p) || p < bayesMediumThreshold {
		return Suggestion{}, false, nil
	}

	conf := common.ConfidenceMedium
	if p >= bayesHighThreshold {
		conf = common.ConfidenceHigh
	}
	category := string(m.classes[best])
	return Suggestion{
		Category:     category,
		Confidence:   conf,
		Reasoning:    fmt.Sprintf("Similar to your past %s expenses (%.0f%% match)", category, p*100),
		Alternatives: runnerUps(m.classes, scores, best),
	}, true, nil
}

func (b *BayesStage) model(ctx context.Context, userID uuid.UUID) (*bayesModel, error) {
	b.mu.Lock()
	m, ok := b.models[userID]
	b.mu.Unlock()
	if ok {
		return m, nil
	}

	examples, err := b.source.ListLabeledDescriptions(ctx, userID, bayesTrainingLimit)
	if err != nil {
		return nil, fmt.Errorf("load training data: %w", err)
	}
	m = train(examples)

	b.mu.Lock()
	b.models[userID] = m
	b.mu.Unlock()
	return m, nil
}

// train builds a TF-IDF classifier. The library needs at least two classes.
func train(examples []repository.LabeledDescription) *bayesModel {
	seen := make(map[string]bool)
	var classes []bayesian.Class
	for _, ex := range examples {
		if ex.Category == common.CategoryUncategorized || ex.Category == "" {
			continue
		}
		if !seen[ex.Category] {
			seen[ex.Category] = true
			classes = append(classes, bayesian.Class(ex.Category))
		}
	}
	if len(classes) < 2 {
		return &bayesModel{}
	}

	cl := bayesian.NewClassifierTfIdf(classes...)
	for _, ex := range examples {
		if !seen[ex.Category] {
			continue
		}
		if terms := classificationTerms(ex.Description); len(terms) > 0 {
			cl.Learn(terms, bayesian.Class(ex.Category))
		}
	}
	cl.ConvertTermsFreqToTfIdf()
	return &bayesModel{classes: classes, cl: cl}
}

// classificationTerms turns a description into lowercase word terms, without
// reference numbers and rail prefixes.
func classificationTerms(desc string) []string {
	var terms []string
	for _, f := range strings.Fields(normalizer.NormalizeMerchant(desc)) {
		if strings.IndexFunc(f, unicode.IsLetter) < 0 {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

func runnerUps(classes []bayesian.Class, scores []float64, best int) []string {
	var alts []string
	for i, s := range scores {
		if i != best && s >= 0.1 {
			alts = append(alts, string(classes[i]))
		}
	}
	return alts
}
