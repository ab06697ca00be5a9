// Package postprocess turns raw model output into chapter markup.
//
// Clean is applied to every model response before it is validated;
// ConvertNotes and AppendFootnotes run once per segment after the
// translation is complete.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes model artifacts from text and returns the trimmed result:
//  1. reasoning blocks (<think>, <thinking>, ...), closed or cut off
//  2. a markdown code fence wrapping the whole answer
//  3. a leading "Here is the translation:" style preamble
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeCodeFence(text)
	text = removeInstructionEchoes(text)
	return strings.TrimSpace(text)
}

// thinkingBlockRe matches complete reasoning blocks. Each tag variant is
// listed explicitly because RE2 has no backreferences.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened reasoning tag whose closing tag is
// missing.
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// codeFenceRe matches an answer wrapped in a single fenced block, with an
// optional language tag such as html or xhtml.
var codeFenceRe = regexp.MustCompile("(?s)^```[A-Za-z]*[ \t]*\r?\n(.*?)\r?\n?```$")

func removeCodeFence(text string) string {
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// echoPatterns match preambles models prepend even when told not to. Each is
// anchored at the start and requires a colon so markup is never touched.
var echoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:translated |full )?(?:translation|text|chapter|html)\s*:`),
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]? here(?:'s| is)(?: the)? (?:translated |full )?(?:translation|text|chapter|html)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:translation|translated text)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}
