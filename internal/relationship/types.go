// Package relationship discovers semantic relationships between corpus
// fragments via pairwise LLM analysis.
package relationship

import (
	"fmt"
	"strings"
)

// Type classifies the semantic relation between two fragments. The
// vocabulary is closed: the model is prompted with exactly these types
// and anything else in its reply is rejected.
type Type string

const (
	TypeSameTopic    Type = "same_topic"    // both fragments discuss the same subject
	TypeElaborates   Type = "elaborates"    // source adds detail to target
	TypeContradicts  Type = "contradicts"   // fragments make incompatible claims
	TypeSupports     Type = "supports"      // source provides evidence for target
	TypePrerequisite Type = "prerequisite"  // source must be understood before target
	TypeFollowUp     Type = "follow_up"     // target continues where source ends
	TypeExampleOf    Type = "example_of"    // source is a concrete instance of target
	TypeGeneralizes  Type = "generalizes"   // source abstracts over target
	TypeReferences   Type = "references"    // source explicitly mentions target
	TypeDuplicates   Type = "duplicates"    // fragments restate the same content
)

// AllTypes lists the full vocabulary in prompt order.
func AllTypes() []Type {
	return []Type{
		TypeSameTopic,
		TypeElaborates,
		TypeContradicts,
		TypeSupports,
		TypePrerequisite,
		TypeFollowUp,
		TypeExampleOf,
		TypeGeneralizes,
		TypeReferences,
		TypeDuplicates,
	}
}

// typeDescriptions is the rubric given to the model, one line per type.
var typeDescriptions = map[Type]string{
	TypeSameTopic:    "both fragments discuss the same subject",
	TypeElaborates:   "the first fragment adds detail to the second",
	TypeContradicts:  "the fragments make incompatible claims",
	TypeSupports:     "the first fragment provides evidence for the second",
	TypePrerequisite: "the first fragment must be understood before the second",
	TypeFollowUp:     "the second fragment continues where the first ends",
	TypeExampleOf:    "the first fragment is a concrete instance of the second",
	TypeGeneralizes:  "the first fragment abstracts over the second",
	TypeReferences:   "the first fragment explicitly mentions the second",
	TypeDuplicates:   "the fragments restate the same content",
}

// ParseType maps a model-reported type name onto the vocabulary. Names
// are matched case-insensitively ignoring underscores, so "SameTopic",
// "same_topic", and "sametopic" all resolve. Unknown names fail.
func ParseType(name string) (Type, bool) {
	needle := canonical(name)
	for _, t := range AllTypes() {
		if canonical(string(t)) == needle {
			return t, true
		}
	}
	return "", false
}

func canonical(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// Relationship is one discovered relation between two fragments.
// Immutable; rediscovery produces new values.
type Relationship struct {
	ID            string  `json:"id"`
	SourceID      string  `json:"source_id"`
	TargetID      string  `json:"target_id"`
	Type          Type    `json:"type"`
	Confidence    float64 `json:"confidence"`
	Explanation   string  `json:"explanation,omitempty"`
	Bidirectional bool    `json:"bidirectional"`
}

// Analysis is the outcome of analyzing one fragment against a candidate
// set. Success=false with partial relationships is a valid terminal
// state, not an error.
type Analysis struct {
	FragmentID    string         `json:"fragment_id"`
	Relationships []Relationship `json:"relationships"`
	Success       bool           `json:"success"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}

// pairKey derives a canonical key for an unordered fragment pair, so
// (a,b) and (b,a) collide in the dedup set.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%s\x00%s", a, b)
}
