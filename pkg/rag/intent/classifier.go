package intent

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/rag/prompt"
	"study-assistant-be/pkg/workflow"
)

type Config struct {
	RuleConfidence     float64
	FallbackConfidence float64 // used when the model reports no confidence
	TieConfidence      float64
	EmptyConfidence    float64
	MinConfidence      float64
}

func DefaultConfig() Config {
	return Config{
		RuleConfidence:     0.95,
		FallbackConfidence: 0.6,
		TieConfidence:      0.5,
		EmptyConfidence:    0.3,
		MinConfidence:      0.0,
	}
}

// Classifier maps a query to an intent. It never returns an error: every failure path
// ends in a degraded default result.
type Classifier struct {
	rules       []RuleSet
	llmProvider llm.LLMProvider
	cfg         Config
	logger      logger.ILogger
}

func NewClassifier(rules []RuleSet, llmProvider llm.LLMProvider, cfg Config, log logger.ILogger) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules, llmProvider: llmProvider, cfg: cfg, logger: log}
}

func (c *Classifier) Classify(ctx context.Context, query string) workflow.IntentResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return workflow.IntentResult{
			Intent:     workflow.IntentDoubtClarification,
			Confidence: c.cfg.EmptyConfidence,
			Method:     workflow.MethodDefault,
			Degraded:   true,
			Reason:     "empty query",
		}
	}

	matched := c.ruleMatches(query)
	switch len(matched) {
	case 1:
		c.logger.Info("INTENT", "Rule match", map[string]interface{}{"intent": matched[0]})
		return workflow.IntentResult{
			Intent:     matched[0],
			Confidence: c.cfg.RuleConfidence,
			Method:     workflow.MethodRule,
		}
	case 0:
		return c.fallback(ctx, query, nil)
	default:
		c.logger.Info("INTENT", "Ambiguous rule match", map[string]interface{}{"candidates": matched})
		return c.fallback(ctx, query, matched)
	}
}

// ruleMatches returns the intents with the highest match count, in table order.
func (c *Classifier) ruleMatches(query string) []workflow.Intent {
	best := 0
	var top []workflow.Intent
	for _, rs := range c.rules {
		n := rs.Matches(query)
		switch {
		case n == 0:
		case n > best:
			best = n
			top = []workflow.Intent{rs.Intent}
		case n == best:
			top = append(top, rs.Intent)
		}
	}
	return top
}

func (c *Classifier) fallback(ctx context.Context, query string, candidates []workflow.Intent) workflow.IntentResult {
	if c.llmProvider == nil {
		return c.degraded(candidates, "no fallback model configured")
	}

	response, err := c.llmProvider.Generate(ctx, prompt.Classification(query, candidates), llm.WithTemperature(0.0))
	if err != nil {
		c.logger.Warn("INTENT", "Fallback classification failed", map[string]interface{}{"error": err.Error()})
		return c.degraded(candidates, "fallback unavailable: "+err.Error())
	}

	intent, confidence, reasoning, err := parseClassification(response)
	if err == nil && len(candidates) > 0 && !contains(candidates, intent) {
		err = fmt.Errorf("intent %s is not one of the tied candidates", intent)
	}
	if err != nil {
		c.logger.Warn("INTENT", "Fallback output unusable", map[string]interface{}{"error": err.Error(), "raw": response})
		return c.degraded(candidates, "fallback unparsable: "+err.Error())
	}

	if confidence < 0 {
		confidence = c.cfg.FallbackConfidence
	}
	return workflow.IntentResult{
		Intent:     intent,
		Confidence: confidence,
		Method:     workflow.MethodFallback,
		Reason:     reasoning,
		Candidates: candidates,
	}
}

func (c *Classifier) degraded(candidates []workflow.Intent, reason string) workflow.IntentResult {
	if len(candidates) > 0 {
		return workflow.IntentResult{
			Intent:     byPriority(candidates),
			Confidence: c.cfg.TieConfidence,
			Method:     workflow.MethodDefault,
			Degraded:   true,
			Reason:     reason,
			Candidates: candidates,
		}
	}
	return workflow.IntentResult{
		Intent:     workflow.IntentDoubtClarification,
		Confidence: c.cfg.MinConfidence,
		Method:     workflow.MethodDefault,
		Degraded:   true,
		Reason:     reason,
	}
}

// parseClassification reads INTENT/CONFIDENCE/REASONING lines. A bare intent token is
// also accepted. Confidence is -1 when the model did not report one.
func parseClassification(raw string) (workflow.Intent, float64, string, error) {
	var (
		intent    workflow.Intent
		found     bool
		reasoning string
	)
	confidence := -1.0

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(strings.Trim(scanner.Text(), "*"))
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			if !found {
				intent, found = workflow.ParseIntent(line)
			}
			continue
		}
		value = strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "*"))
		switch strings.ToUpper(strings.TrimSpace(strings.Trim(key, "*"))) {
		case "INTENT":
			if parsed, ok := workflow.ParseIntent(value); ok {
				intent, found = parsed, true
			}
		case "CONFIDENCE":
			if v, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64); err == nil {
				// Bare values of 2 or more are percentages; 1 < v < 2 is an
				// overshooting fraction and clamps to 1.
				if strings.HasSuffix(value, "%") || v >= 2 {
					v /= 100
				}
				confidence = clamp01(v)
			}
		case "REASONING":
			reasoning = value
		}
	}

	if !found {
		return "", 0, "", fmt.Errorf("no intent in response")
	}
	return intent, confidence, reasoning, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func contains(list []workflow.Intent, v workflow.Intent) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
