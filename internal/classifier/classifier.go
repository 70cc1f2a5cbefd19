// Package classifier maps free text onto an event category and a set of
// keyword tags using declarative, ordered rule tables.
package classifier

import (
	"strings"

	"chronicle/internal/models"
)

// CategoryRule fires when the lower-cased text contains any Keyword and
// none of Except. Refinements are checked in order once the rule fires and
// the first that matches replaces Category.
type CategoryRule struct {
	Category    string
	Keywords    []string
	Except      []string
	Refinements []CategoryRule
}

// TagRule adds Tag when any keyword appears as a substring.
type TagRule struct {
	Tag      string
	Keywords []string
}

// Hints carries structured context from the caller.
type Hints struct {
	// Fallback replaces the classifier fallback when no rule fires.
	Fallback string
}

type Result struct {
	Category string
	Tags     []string
}

type Classifier struct {
	Rules    []CategoryRule
	Tags     []TagRule
	Fallback string
}

// Classify never fails. An empty text yields the fallback category and no tags.
func (c Classifier) Classify(text string, hints Hints) Result {
	lower := strings.ToLower(text)
	return Result{
		Category: c.category(lower, hints),
		Tags:     c.tags(lower),
	}
}

// Category is Classify without tag derivation.
func (c Classifier) Category(text string, hints Hints) string {
	return c.category(strings.ToLower(text), hints)
}

// DeriveTags is Classify without category selection.
func (c Classifier) DeriveTags(text string) []string {
	return c.tags(strings.ToLower(text))
}

func (c Classifier) category(lower string, hints Hints) string {
	if lower != "" {
		for _, rule := range c.Rules {
			if !rule.matches(lower) {
				continue
			}
			for _, refinement := range rule.Refinements {
				if refinement.matches(lower) {
					return refinement.Category
				}
			}
			return rule.Category
		}
	}
	if hints.Fallback != "" {
		return hints.Fallback
	}
	if c.Fallback != "" {
		return c.Fallback
	}
	return models.CategoryInfrastructure
}

func (c Classifier) tags(lower string) []string {
	out := []string{}
	if lower == "" {
		return out
	}
	seen := map[string]struct{}{}
	for _, rule := range c.Tags {
		if !containsAny(lower, rule.Keywords) {
			continue
		}
		if _, ok := seen[rule.Tag]; ok {
			continue
		}
		seen[rule.Tag] = struct{}{}
		out = append(out, rule.Tag)
	}
	return out
}

func (r CategoryRule) matches(lower string) bool {
	return containsAny(lower, r.Keywords) && !containsAny(lower, r.Except)
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
