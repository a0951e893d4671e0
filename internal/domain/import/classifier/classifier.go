// Package classifier suggests an expense category for a statement line.
//
// Suggestions come from a chain of stages tried in order: income detection,
// the user's learned merchant rules, the keyword table, a per-user naive Bayes
// model, and optionally the Anthropic API. The first stage that accepts the
// transaction wins; when none does the result is Uncategorized with low
// confidence.
package classifier

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

// Stage names reported in Suggestion.Source.
const (
	SourceIncome   = "income"
	SourceRule     = "rule"
	SourceKeyword  = "keyword"
	SourceBayes    = "bayes"
	SourceAI       = "ai"
	SourceDefault  = "default"
	SourceFallback = "fallback"
)

// Input is what a stage sees of a transaction.
type Input struct {
	Description string
	Amount      decimal.Decimal
	Type        string
}

// Suggestion is a category proposal.
type Suggestion struct {
	Category     string
	Confidence   common.Confidence
	Reasoning    string
	Alternatives []string
	Source       string
}

// Classifier suggests a category for one transaction.
type Classifier interface {
	Classify(ctx context.Context, userID uuid.UUID, in Input) (Suggestion, error)
}

// Stage is one link of the chain. ok=false passes the transaction on.
type Stage interface {
	Name() string
	Suggest(ctx context.Context, userID uuid.UUID, in Input) (s Suggestion, ok bool, err error)
}

// Fallback is the suggestion used when no stage accepts a transaction.
func Fallback(reason string) Suggestion {
	if reason == "" {
		reason = "Could not categorize automatically"
	}
	return Suggestion{
		Category:   common.CategoryUncategorized,
		Confidence: common.ConfidenceLow,
		Reasoning:  reason,
		Source:     SourceFallback,
	}
}

// Chain runs stages in order.
type Chain struct {
	stages  []Stage
	workers int
	logger  *slog.Logger
}

// NewChain builds a chain. workers bounds ClassifyBatch concurrency; zero
// means GOMAXPROCS.
func NewChain(logger *slog.Logger, workers int, stages ...Stage) *Chain {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{stages: stages, workers: workers, logger: logger}
}

// Classify never fails on a stage error: the stage is logged and skipped.
// Only a cancelled context is returned as an error.
func (c *Chain) Classify(ctx context.Context, userID uuid.UUID, in Input) (Suggestion, error) {
	for _, st := range c.stages {
		if err := ctx.Err(); err != nil {
			return Fallback(""), err
		}
		s, ok, err := st.Suggest(ctx, userID, in)
		if err != nil {
			c.logger.WarnContext(ctx, "classifier stage failed",
				slog.String("stage", st.Name()),
				slog.Any("error", err))
			continue
		}
		if ok {
			if s.Source == "" {
				s.Source = st.Name()
			}
			return s, nil
		}
	}
	return Fallback(""), nil
}

// ClassifyBatch classifies every input on a bounded worker pool. The result
// has the same order and length as inputs; a cancelled context leaves the
// remaining entries at Fallback.
func (c *Chain) ClassifyBatch(ctx context.Context, userID uuid.UUID, inputs []Input) []Suggestion {
	out := make([]Suggestion, len(inputs))
	if len(inputs) == 0 {
		return out
	}

	workers := min(c.workers, len(inputs))
	jobs := make(chan int, workers*4)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				s, err := c.Classify(ctx, userID, inputs[idx])
				if err != nil {
					s = Fallback("")
				}
				out[idx] = s
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return out
}

// incomeStage files every credit under Income.
type incomeStage struct{}

// IncomeStage returns the stage that categorizes income transactions.
func IncomeStage() Stage { return incomeStage{} }

func (incomeStage) Name() string { return SourceIncome }

func (incomeStage) Suggest(_ context.Context, _ uuid.UUID, in Input) (Suggestion, bool, error) {
	if in.Type != common.TypeIncome {
		return Suggestion{}, false, nil
	}
	return Suggestion{
		Category:   common.CategoryIncome,
		Confidence: common.ConfidenceHigh,
		Reasoning:  "Money received is categorized as income",
	}, true, nil
}
