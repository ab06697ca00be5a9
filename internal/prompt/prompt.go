// Package prompt holds the system prompt templates sent with every
// translation request.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Placeholder is replaced with the target language name.
const Placeholder = "{target_language}"

const DefaultStyle = "literary"

const preserveMarkup = "Keep every HTML tag, attribute and the document structure exactly as they are; " +
	"do not add, drop, merge or reorder elements such as <p>, <em>, <strong> or <h2>.\n" +
	"When a cultural reference would puzzle a reader of the translation, you may add a short inline note " +
	"written exactly as [Translator's note: ...]. Use such notes sparingly.\n" +
	"Reply with the translated document only. Do not acknowledge these instructions.\n"

var templates = map[string]string{
	"literary": "You are a professional literary translator.\n" +
		"Translate the document below into " + Placeholder + ". Do not translate word for word: " +
		"carry over the literary style, the emotional tone and the rhythm of the prose.\n" +
		"Leave names of people and places in their original form unless " + Placeholder +
		" uses a different script.\n" +
		"Never summarise, shorten or skip any part of the text.\n" +
		preserveMarkup,

	"elegant": "Translate the passage below into " + Placeholder +
		", keeping its voice, atmosphere and pacing.\n" +
		"Keep character and place names untranslated unless transliteration is required.\n" +
		"Favour idiomatic, elegant phrasing over literal fidelity; adapt idioms and imagery where needed.\n" +
		preserveMarkup,

	"narrative": "Rewrite the passage below in " + Placeholder +
		" as fluent, expressive fiction while staying faithful to its meaning and tone.\n" +
		"Do not translate names unless the script demands it.\n" +
		"You may reshape sentences to keep their literary effect.\n" +
		preserveMarkup,
}

// Styles lists the available template names in sorted order.
func Styles() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Template returns the raw template for style.
func Template(style string) (string, error) {
	tmpl, ok := templates[style]
	if !ok {
		return "", fmt.Errorf("unknown prompt style %q (available: %s)", style, strings.Join(Styles(), ", "))
	}
	return tmpl, nil
}

// Render fills the template for style with the display name of lang.
func Render(style, lang string) (string, error) {
	tmpl, err := Template(style)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(tmpl, Placeholder, LanguageName(lang)), nil
}

// LanguageName expands a language code such as "fr" or "pt-BR" into its
// English name. Anything that is not a known code is returned unchanged, so
// "French" stays "French".
func LanguageName(lang string) string {
	lang = strings.TrimSpace(lang)
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return lang
}
