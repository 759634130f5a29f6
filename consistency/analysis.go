// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package consistency

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/andmoredev/promptatron-3000-sub001/batch"
	"github.com/andmoredev/promptatron-3000-sub001/conversation"
)

// Blend weights when all responses invoked tools: the dominant
// tool-signature share against input-parameter agreement.
const (
	signatureWeight = 0.7
	inputWeight     = 0.3
)

// mixedUsageFloor bounds the tool-usage metric when responses disagree on
// whether to call tools at all.
const mixedUsageFloor = 0.1

// decisionDefault is the decision metric when no response contains a
// recognizable decision phrase.
const decisionDefault = 0.8

// analyze computes the local statistical report over valid responses.
func analyze(records []*batch.ResponseRecord) *Report {
	m := Metrics{
		ToolUsage:  toolUsageConsistency(records),
		Decision:   decisionConsistency(records),
		Semantic:   semanticSimilarity(records),
		Structural: structuralConsistency(records),
	}
	score := m.WeightedScore()
	return &Report{
		Grade:    GradeForScore(score),
		Score:    score,
		Metrics:  m,
		Notes:    analysisNotes(records, m),
		Analyzed: len(records),
		Source:   SourceStatistical,
	}
}

// trimText is the comparison form of a response text.
func trimText(s string) string {
	return strings.TrimSpace(s)
}

// toolSignature canonicalizes a set of tool calls to sorted tool names.
// Argument values are compared separately so reordered calls with the same
// shape still match.
func toolSignature(calls []conversation.ToolCallRecord) string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// fullSignature additionally serializes each call's input with sorted keys.
func fullSignature(calls []conversation.ToolCallRecord) string {
	parts := make([]string, 0, len(calls))
	for _, c := range calls {
		input, err := json.Marshal(c.Input)
		if err != nil {
			input = []byte(fmt.Sprintf("%v", c.Input))
		}
		parts = append(parts, c.Name+"("+string(input)+")")
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func toolUsageConsistency(records []*batch.ResponseRecord) float64 {
	n := len(records)
	if n == 0 {
		return 1.0
	}
	withTools := 0
	for _, r := range records {
		if len(r.ToolCalls) > 0 {
			withTools++
		}
	}
	switch withTools {
	case 0:
		// Unanimous: no response reached for a tool.
		return 1.0
	case n:
		return allToolsConsistency(records)
	default:
		// Mixed usage: penalize by distance from a unanimous split.
		share := float64(withTools) / float64(n)
		if inverse := 1 - share; inverse > share {
			share = inverse
		}
		return max(mixedUsageFloor, 2*share-1)
	}
}

// allToolsConsistency blends the dominant name-signature share with
// input-parameter agreement inside each signature group.
func allToolsConsistency(records []*batch.ResponseRecord) float64 {
	n := len(records)
	groups := make(map[string][]*batch.ResponseRecord)
	for _, r := range records {
		sig := toolSignature(r.ToolCalls)
		groups[sig] = append(groups[sig], r)
	}
	dominant := 0
	for _, g := range groups {
		if len(g) > dominant {
			dominant = len(g)
		}
	}
	dominantShare := float64(dominant) / float64(n)

	// Within each group sharing tool names, measure how many members also
	// agree on the serialized inputs.
	agreement := 0.0
	for _, g := range groups {
		inputs := make(map[string]int)
		for _, r := range g {
			inputs[fullSignature(r.ToolCalls)]++
		}
		best := 0
		for _, count := range inputs {
			if count > best {
				best = count
			}
		}
		agreement += float64(best) // weighted by group size via summation
	}
	inputAgreement := agreement / float64(n)

	return signatureWeight*dominantShare + inputWeight*inputAgreement
}

var decisionPhraseRe = regexp.MustCompile(`(?im)^.*\b(?:recommend|should|must|conclusion|therefore|overall|decision|the answer is|i suggest|approve|deny|reject)\b.*$`)

var normalizeRe = regexp.MustCompile(`[^a-z0-9 ]+`)

func normalizePhrase(s string) string {
	s = strings.ToLower(s)
	s = normalizeRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// decisionKey extracts and normalizes a response's decision phrases.
// Responses without any recognizable phrase return "".
func decisionKey(text string) string {
	matches := decisionPhraseRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return ""
	}
	normalized := make([]string, 0, len(matches))
	for _, m := range matches {
		if p := normalizePhrase(m); p != "" {
			normalized = append(normalized, p)
		}
	}
	sort.Strings(normalized)
	return strings.Join(normalized, "\n")
}

func decisionConsistency(records []*batch.ResponseRecord) float64 {
	n := len(records)
	if n == 0 {
		return 1.0
	}
	if identicalTexts(records) {
		// A unanimous response set is unanimously decided, phrase or not.
		return 1.0
	}
	keys := make([]string, 0, n)
	for _, r := range records {
		if k := decisionKey(r.Text); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return decisionDefault
	}
	if len(keys) == 1 {
		return 1.0
	}
	clusters := clusterPhrases(keys)
	score := 1 - float64(clusters-1)/float64(len(keys)-1)
	return max(mixedUsageFloor, score)
}

// clusterPhrases groups near-duplicate normalized phrases. Two phrases join
// a cluster when equal or when one contains the other.
func clusterPhrases(keys []string) int {
	var reps []string
	for _, k := range keys {
		matched := false
		for _, rep := range reps {
			if k == rep || strings.Contains(k, rep) || strings.Contains(rep, k) {
				matched = true
				break
			}
		}
		if !matched {
			reps = append(reps, k)
		}
	}
	return len(reps)
}

func identicalTexts(records []*batch.ResponseRecord) bool {
	if len(records) == 0 {
		return true
	}
	first := trimText(records[0].Text)
	for _, r := range records[1:] {
		if trimText(r.Text) != first {
			return false
		}
	}
	return true
}

// semanticSimilarity approximates textual similarity without embeddings:
// the share of distinct normalized texts beyond the first, inverted.
func semanticSimilarity(records []*batch.ResponseRecord) float64 {
	n := len(records)
	if n <= 1 {
		return 1.0
	}
	distinct := make(map[string]struct{}, n)
	for _, r := range records {
		distinct[trimText(r.Text)] = struct{}{}
	}
	return 1 - float64(len(distinct)-1)/float64(n-1)
}

// structural fingerprint buckets, coarse on purpose.
type structure struct {
	hasCode    bool
	hasList    bool
	paragraphs int
	sizeBucket int
}

var listItemRe = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s`)

func structureOf(text string) structure {
	s := structure{
		hasCode: strings.Contains(text, "```"),
		hasList: listItemRe.MatchString(text),
	}
	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) != "" {
			s.paragraphs++
		}
	}
	if s.paragraphs > 3 {
		s.paragraphs = 4
	}
	switch n := len(text); {
	case n < 200:
		s.sizeBucket = 0
	case n < 1000:
		s.sizeBucket = 1
	default:
		s.sizeBucket = 2
	}
	return s
}

func structuralConsistency(records []*batch.ResponseRecord) float64 {
	n := len(records)
	if n == 0 {
		return 1.0
	}
	counts := make(map[structure]int)
	for _, r := range records {
		counts[structureOf(r.Text)]++
	}
	dominant := 0
	for _, c := range counts {
		if c > dominant {
			dominant = c
		}
	}
	return float64(dominant) / float64(n)
}

func analysisNotes(records []*batch.ResponseRecord, m Metrics) []string {
	var notes []string
	withTools := 0
	sigs := make(map[string]struct{})
	for _, r := range records {
		if len(r.ToolCalls) > 0 {
			withTools++
			sigs[toolSignature(r.ToolCalls)] = struct{}{}
		}
	}
	if withTools > 0 && withTools < len(records) {
		notes = append(notes, fmt.Sprintf("%d of %d responses invoked tools", withTools, len(records)))
	}
	if len(sigs) > 1 {
		notes = append(notes, fmt.Sprintf("%d distinct tool signatures observed", len(sigs)))
	}
	if m.Semantic < 1 {
		distinct := make(map[string]struct{})
		for _, r := range records {
			distinct[trimText(r.Text)] = struct{}{}
		}
		notes = append(notes, fmt.Sprintf("%d distinct response texts across %d responses", len(distinct), len(records)))
	}
	return notes
}
