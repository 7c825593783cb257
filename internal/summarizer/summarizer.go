package summarizer

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"voice-summary-service/internal/domain/model"
)

const (
	maxBulletWords   = 22
	maxNextStepWords = 18
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "he": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "that": {}, "the": {}, "to": {},
	"was": {}, "were": {}, "will": {}, "with": {}, "we": {}, "you": {}, "your": {},
}

var fallbackBullets = []string{
	"No clear transcript content was captured.",
	"No reliable key points could be extracted.",
	"A fresh recording is recommended for better summarization.",
}

const (
	fallbackNextStep = "Record again in a quieter environment."
	genericNextStep  = "Review the transcript and choose one concrete follow-up action."
)

var actionKeywords = []string{"next", "follow up", "action", "todo", "need to", "plan", "should"}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	wordRe       = regexp.MustCompile(`[a-zA-Z']+`)
	clauseRe     = regexp.MustCompile(`[,;:.!?]+|\s+[-–—]+\s+`)
)

// Summarizer produces a deterministic extractive summary: identical input
// always yields identical bullets and next step. It performs no I/O.
type Summarizer struct {
	maxBullets int
}

// New clamps maxBullets to [3,5].
func New(maxBullets int) *Summarizer {
	if maxBullets < 3 {
		maxBullets = 3
	}
	if maxBullets > 5 {
		maxBullets = 5
	}
	return &Summarizer{maxBullets: maxBullets}
}

func (s *Summarizer) Summarize(transcript string) *model.Summary {
	cleaned := normalize(transcript)
	if cleaned == "" {
		return &model.Summary{
			Bullets:  append([]string(nil), fallbackBullets...),
			NextStep: fallbackNextStep,
		}
	}

	sentences := splitSentences(cleaned)
	bullets := s.finalizeBullets(s.selectCandidates(cleaned, sentences))
	return &model.Summary{
		Bullets:  bullets,
		NextStep: deriveNextStep(sentences, bullets),
	}
}

func normalize(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// splitSentences cuts after sentence-ending punctuation followed by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		if (text[i] == '.' || text[i] == '!' || text[i] == '?') && unicode.IsSpace(rune(text[i+1])) {
			if piece := strings.TrimSpace(text[start : i+1]); piece != "" {
				sentences = append(sentences, piece)
			}
			start = i + 1
		}
	}
	if piece := strings.TrimSpace(text[start:]); piece != "" {
		sentences = append(sentences, piece)
	}
	return sentences
}

func tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

func contentWords(text string) []string {
	var words []string
	for _, w := range tokenize(text) {
		if _, stop := stopWords[w]; !stop {
			words = append(words, w)
		}
	}
	return words
}

func scoreSentence(sentence string, freq map[string]int) float64 {
	words := contentWords(sentence)
	if len(words) == 0 {
		return 0
	}
	sum := 0
	for _, w := range words {
		sum += freq[w]
	}
	return float64(sum) / float64(len(words))
}

// selectCandidates picks raw bullet candidates in original order. Texts with
// at least three sentences go through frequency scoring; shorter texts are
// split into clauses instead.
func (s *Summarizer) selectCandidates(text string, sentences []string) []string {
	if len(sentences) >= 3 {
		freq := make(map[string]int)
		for _, w := range contentWords(text) {
			freq[w]++
		}

		type scored struct {
			index int
			text  string
			score float64
		}
		ranked := make([]scored, len(sentences))
		for i, sent := range sentences {
			ranked[i] = scored{index: i, text: sent, score: scoreSentence(sent, freq)}
		}
		sort.SliceStable(ranked, func(a, b int) bool {
			if ranked[a].score != ranked[b].score {
				return ranked[a].score > ranked[b].score
			}
			return ranked[a].index < ranked[b].index
		})

		target := min(s.maxBullets, len(sentences))
		target = min(s.maxBullets, max(3, target))
		top := ranked[:target]
		sort.Slice(top, func(a, b int) bool { return top[a].index < top[b].index })

		out := make([]string, len(top))
		for i, item := range top {
			out[i] = item.text
		}
		return out
	}

	var clauses []string
	for _, piece := range clauseRe.Split(text, -1) {
		clause := strings.TrimSpace(piece)
		if clause == "" || len(strings.Fields(clause)) < 4 {
			continue
		}
		clauses = append(clauses, clause)
		if len(clauses) == s.maxBullets {
			break
		}
	}
	return clauses
}

// finalizeBullets truncates, re-punctuates, deduplicates and pads so the
// result always holds between 3 and maxBullets non-empty entries.
func (s *Summarizer) finalizeBullets(candidates []string) []string {
	var bullets []string
	seen := make(map[string]struct{})
	add := func(candidate string) {
		bullet := ensureSentence(truncateWords(candidate, maxBulletWords))
		if bullet == "" {
			return
		}
		key := strings.ToLower(bullet)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		bullets = append(bullets, bullet)
	}

	for _, c := range candidates {
		add(c)
	}
	for _, fb := range fallbackBullets {
		if len(bullets) >= 3 {
			break
		}
		add(fb)
	}
	if len(bullets) > s.maxBullets {
		bullets = bullets[:s.maxBullets]
	}
	return bullets
}

func deriveNextStep(sentences, bullets []string) string {
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		for _, kw := range actionKeywords {
			if strings.Contains(lower, kw) {
				return ensureSentence(truncateWords(sentence, maxNextStepWords))
			}
		}
	}
	if len(bullets) > 0 {
		return ensureSentence(truncateWords("Take action on: "+bullets[0], maxNextStepWords))
	}
	return genericNextStep
}

func truncateWords(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) > limit {
		words = words[:limit]
	}
	return strings.Join(words, " ")
}

// ensureSentence strips trailing punctuation and commas, then re-attaches a
// terminal mark: the original's '!' or '?' if one was there, '.' otherwise.
func ensureSentence(text string) string {
	trimmed := strings.TrimSpace(text)
	mark := "."
	for len(trimmed) > 0 {
		last := trimmed[len(trimmed)-1]
		if !strings.ContainsRune(".,;:!?-", rune(last)) {
			break
		}
		if last == '!' || last == '?' {
			mark = string(last)
		}
		trimmed = strings.TrimSpace(trimmed[:len(trimmed)-1])
	}
	if trimmed == "" {
		return ""
	}
	return trimmed + mark
}
