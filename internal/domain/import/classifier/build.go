package classifier

import "log/slog"

// Options wires the standard chain. Nil dependencies drop their stage.
type Options struct {
	Rules     RuleSource
	Bayes     *BayesStage
	Keywords  *KeywordTable
	Completer Completer
	Workers   int
}

// New builds the standard chain: income, learned rules, keywords, Bayes,
// AI (when configured) and the Other default for clear merchant names.
func New(logger *slog.Logger, opts Options) *Chain {
	stages := []Stage{IncomeStage()}
	if opts.Rules != nil {
		stages = append(stages, RuleStage(opts.Rules))
	}
	if opts.Keywords != nil {
		stages = append(stages, KeywordStage(opts.Keywords))
	}
	if opts.Bayes != nil {
		stages = append(stages, opts.Bayes)
	}
	if opts.Completer != nil {
		stages = append(stages, AIStage(opts.Completer))
	}
	stages = append(stages, DefaultStage())
	return NewChain(logger, opts.Workers, stages...)
}
