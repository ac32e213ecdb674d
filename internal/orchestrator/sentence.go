package orchestrator

import "strings"

// sentenceTerminators are the ASCII and Chinese sentence-final runes spec
// §4.4.4 names. Whitespace is the fallback splitter when a chunk runs long
// without any of these.
var sentenceTerminators = map[rune]bool{
	'.': true, '!': true, '?': true, '…': true,
	'。': true, '！': true, '？': true, '；': true,
}

// maxAccumulatorRunes bounds how long the accumulator lets a sentence grow
// before falling back to a whitespace split, so a pathological run without
// punctuation doesn't stall TTS until the whole turn finishes.
const maxAccumulatorRunes = 220

// commonAbbreviations lists trailing-period tokens a '.' terminator must not
// split on, adapted from the teacher's voice.SentenceBuffer so a mid-turn
// "Dr." or "e.g." doesn't hand TTS a fragment sentence.
var commonAbbreviations = map[string]bool{}

func init() {
	for _, a := range []string{
		"Dr.", "Mr.", "Mrs.", "Ms.", "Jr.", "Sr.",
		"Prof.", "Rev.", "Gen.", "Col.", "Lt.", "Sgt.",
		"Inc.", "Ltd.", "Corp.", "Co.", "vs.", "etc.",
		"i.e.", "e.g.", "a.m.", "p.m.", "U.S.", "U.K.",
	} {
		commonAbbreviations[strings.ToLower(a)] = true
	}
}

// sentenceAccumulator consumes an LLM's text-delta stream and emits
// complete sentences in arrival order, splitting on sentence-terminal
// punctuation with a whitespace fallback (spec §4.4.4).
type sentenceAccumulator struct {
	buf strings.Builder
}

// Feed appends a text delta and returns zero or more complete sentences
// ready to hand to TTS, in order.
func (a *sentenceAccumulator) Feed(delta string) []string {
	var out []string
	for _, r := range delta {
		a.buf.WriteRune(r)
		if sentenceTerminators[r] {
			if r == '.' && a.endsInAbbreviation() {
				continue
			}
			if s := strings.TrimSpace(a.buf.String()); s != "" {
				out = append(out, s)
			}
			a.buf.Reset()
			continue
		}
		if a.buf.Len() >= maxAccumulatorRunes && isWhitespace(r) {
			if s := strings.TrimSpace(a.buf.String()); s != "" {
				out = append(out, s)
			}
			a.buf.Reset()
		}
	}
	return out
}

// endsInAbbreviation reports whether the buffer's trailing word (the one
// ending at the period just appended) is a known abbreviation rather than a
// genuine sentence end.
func (a *sentenceAccumulator) endsInAbbreviation() bool {
	s := a.buf.String()
	start := len(s) - 1
	for start > 0 && !isWhitespace(rune(s[start-1])) {
		start--
	}
	return commonAbbreviations[strings.ToLower(s[start:])]
}

// Flush returns any trailing partial sentence left in the buffer, for use
// once the LLM stream ends.
func (a *sentenceAccumulator) Flush() string {
	s := strings.TrimSpace(a.buf.String())
	a.buf.Reset()
	return s
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
