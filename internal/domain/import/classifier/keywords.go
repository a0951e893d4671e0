package classifier

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

//go:embed keywords.yaml
var defaultKeywords []byte

// KeywordGroup is one category with the keywords that select it.
type KeywordGroup struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type keywordFile struct {
	Categories []KeywordGroup `yaml:"categories"`
}

type keyword struct {
	text    string
	pattern *regexp.Regexp // set for short keywords that must match a whole word
}

type keywordGroup struct {
	category string
	keywords []keyword
}

// KeywordTable matches descriptions against an ordered keyword list.
type KeywordTable struct {
	groups []keywordGroup
}

// LoadKeywords reads a keyword table from path, or the embedded default when
// path is empty.
func LoadKeywords(path string) (*KeywordTable, error) {
	data := defaultKeywords
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read keyword file: %w", err)
		}
		data = b
	}
	return ParseKeywords(data)
}

// ParseKeywords builds a table from YAML. Every category must belong to the
// vocabulary.
func ParseKeywords(data []byte) (*KeywordTable, error) {
	var f keywordFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse keyword file: %w", err)
	}

	t := &KeywordTable{}
	for _, g := range f.Categories {
		category, ok := common.CanonicalCategory(g.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %q in keyword file", common.ErrInvalidCategory, g.Name)
		}
		group := keywordGroup{category: category}
		for _, kw := range g.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			k := keyword{text: kw}
			if len(kw) <= 3 && !strings.Contains(kw, " ") {
				k.pattern = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			}
			group.keywords = append(group.keywords, k)
		}
		t.groups = append(t.groups, group)
	}
	return t, nil
}

// Match returns the category of the first keyword found in description.
func (t *KeywordTable) Match(description string) (category, matched string, ok bool) {
	d := strings.ToLower(description)
	if strings.TrimSpace(d) == "" {
		return "", "", false
	}
	for _, g := range t.groups {
		for _, k := range g.keywords {
			if k.pattern != nil {
				if k.pattern.MatchString(d) {
					return g.category, k.text, true
				}
				continue
			}
			if strings.Contains(d, k.text) {
				return g.category, k.text, true
			}
		}
	}
	return "", "", false
}

type keywordStage struct {
	table *KeywordTable
}

// KeywordStage categorizes by the keyword table with high confidence.
func KeywordStage(table *KeywordTable) Stage { return &keywordStage{table: table} }

func (*keywordStage) Name() string { return SourceKeyword }

func (k *keywordStage) Suggest(_ context.Context, _ uuid.UUID, in Input) (Suggestion, bool, error) {
	category, kw, ok := k.table.Match(in.Description)
	if !ok {
		return Suggestion{}, false, nil
	}
	return Suggestion{
		Category:   category,
		Confidence: common.ConfidenceHigh,
		Reasoning:  fmt.Sprintf("Description mentions %q", kw),
	}, true, nil
}
