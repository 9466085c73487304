package evaluation

import (
	"fmt"
	"strings"
)

// The three metric variants. Each supplies required-input validation,
// the judgment prompt, and the mapping of variant-specific reply fields
// into the result details.

func faithfulnessVariant() variant {
	return variant{
		name: MetricFaithfulness,
		validate: func(in Input) string {
			if strings.TrimSpace(in.Context) == "" {
				return "empty context"
			}
			if strings.TrimSpace(in.Answer) == "" {
				return "empty answer"
			}
			return ""
		},
		buildPrompt: func(in Input) string {
			return fmt.Sprintf(`You are evaluating whether an answer is faithful to its source context.

An answer is faithful when every claim it makes is supported by the context.
Break the answer into individual claims and check each one against the context.

Context:
%s

Answer:
%s

Respond with JSON only, in this exact shape:
{"score": <0.0-1.0, fraction of claims supported>, "reasoning": "<brief explanation>", "claims": [{"claim": "<claim text>", "supported": <true|false>}]}`, in.Context, in.Answer)
		},
		mapFields: func(reply map[string]any, details Details) {
			details.Set("reasoning", stringField(reply, "reasoning"))
			if claims, ok := reply["claims"].([]any); ok {
				details.Set("claims", claims)
				supported := 0
				for _, c := range claims {
					if m, ok := c.(map[string]any); ok && boolField(m, "supported") {
						supported++
					}
				}
				details.Set("supported_claims", supported)
				details.Set("total_claims", len(claims))
			}
		},
	}
}

func relevancyVariant() variant {
	return variant{
		name: MetricRelevancy,
		validate: func(in Input) string {
			if strings.TrimSpace(in.Question) == "" {
				return "empty question"
			}
			if strings.TrimSpace(in.Answer) == "" {
				return "empty answer"
			}
			return ""
		},
		buildPrompt: func(in Input) string {
			var b strings.Builder
			b.WriteString(`You are evaluating how relevant an answer is to its question.

A relevant answer addresses the question directly and completely, without
drifting into unrelated material.

Question:
`)
			b.WriteString(in.Question)
			b.WriteString("\n\nAnswer:\n")
			b.WriteString(in.Answer)
			if strings.TrimSpace(in.Context) != "" {
				b.WriteString("\n\nContext (for reference):\n")
				b.WriteString(in.Context)
			}
			b.WriteString(`

Respond with JSON only, in this exact shape:
{"score": <0.0-1.0>, "reasoning": "<brief explanation>"}`)
			return b.String()
		},
		mapFields: func(reply map[string]any, details Details) {
			details.Set("reasoning", stringField(reply, "reasoning"))
		},
	}
}

func answerabilityVariant() variant {
	return variant{
		name: MetricAnswerability,
		validate: func(in Input) string {
			if strings.TrimSpace(in.Context) == "" {
				return "empty context"
			}
			if strings.TrimSpace(in.Question) == "" {
				return "empty question"
			}
			return ""
		},
		buildPrompt: func(in Input) string {
			return fmt.Sprintf(`You are evaluating whether a question can be answered from the given context alone.

Do not use outside knowledge. Judge only whether the context contains
enough information to answer the question.

Context:
%s

Question:
%s

Respond with JSON only, in this exact shape:
{"score": <0.0-1.0, confidence the context suffices>, "answerable": <true|false>, "evidence": "<the context passage that answers it, or empty>"}`, in.Context, in.Question)
		},
		mapFields: func(reply map[string]any, details Details) {
			details.Set("answerable", boolField(reply, "answerable"))
			details.Set("evidence", stringField(reply, "evidence"))
		},
	}
}
