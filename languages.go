package gotlex

import (
	"sort"
	"strings"
)

// LanguageNames maps the short codes used in directions to human-readable names.
var LanguageNames = map[string]string{
	"fr": "French",
	"en": "English",
}

// Direction is a translation direction such as "fr-en".
type Direction string

// Supported translation directions.
const (
	DirectionFrenchToEnglish Direction = "fr-en"
	DirectionEnglishToFrench Direction = "en-fr"
)

// DefaultDirection is used when a tool is not told otherwise.
const DefaultDirection = DirectionFrenchToEnglish

// directionAliases maps accepted spellings to directions. A single code
// names the source language.
var directionAliases = map[string]Direction{
	"fr-en": DirectionFrenchToEnglish,
	"fr_en": DirectionFrenchToEnglish,
	"fren":  DirectionFrenchToEnglish,
	"fr":    DirectionFrenchToEnglish,
	"en-fr": DirectionEnglishToFrench,
	"en_fr": DirectionEnglishToFrench,
	"enfr":  DirectionEnglishToFrench,
	"en":    DirectionEnglishToFrench,
}

// ParseDirection resolves a user-supplied direction. An empty string yields
// DefaultDirection.
func ParseDirection(s string) (Direction, error) {
	s = NormalizeKey(s)
	if s == "" {
		return DefaultDirection, nil
	}
	if d, ok := directionAliases[s]; ok {
		return d, nil
	}
	return "", &LookupError{Message: "unknown translation direction", Term: s}
}

// Source returns the code of the language translated from.
func (d Direction) Source() string {
	src, _, _ := strings.Cut(string(d), "-")
	return src
}

// Target returns the code of the language translated to.
func (d Direction) Target() string {
	_, dst, _ := strings.Cut(string(d), "-")
	return dst
}

// Compact returns the direction without separator (e.g., "fren"), the form
// used in dictionary site URLs.
func (d Direction) Compact() string {
	return d.Source() + d.Target()
}

// String returns a readable form such as "French → English".
func (d Direction) String() string {
	return GetLanguageName(d.Source()) + " → " + GetLanguageName(d.Target())
}

// GetLanguageName returns the human-readable name for a language code.
// Falls back to the code itself if not found.
func GetLanguageName(code string) string {
	if name, ok := LanguageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// Persons maps each grammatical person to the subject forms that select it.
var Persons = map[string][]string{
	"je":   {"je", "j'", "j"},
	"tu":   {"tu"},
	"il":   {"il", "elle", "on"},
	"nous": {"nous"},
	"vous": {"vous"},
	"ils":  {"ils", "elles"},
}

// Tenses maps each canonical tense name to its accepted aliases.
var Tenses = map[string][]string{
	// Indicatif
	"présent":          {"présent", "pres", "present", "p"},
	"imparfait":        {"imparfait", "imp", "imperfect"},
	"passé simple":     {"passé simple", "ps", "simple", "passé-simple"},
	"futur simple":     {"futur simple", "futur", "fut", "future", "futur-simple", "f"},
	"passé composé":    {"passé composé", "pc", "passe-compose", "passé-composé"},
	"plus-que-parfait": {"plus-que-parfait", "pqp", "pluperfect"},
	"passé antérieur":  {"passé antérieur", "pa", "passe-anterieur"},
	"futur antérieur":  {"futur antérieur", "fa", "futur-anterieur"},

	// Conditionnel
	"conditionnel présent": {"conditionnel présent", "cond", "conditionnel", "conditional"},
	"conditionnel passé":   {"conditionnel passé", "cond-passe", "conditionnel-passe"},

	// Subjonctif
	"subjonctif présent":          {"subjonctif présent", "subj", "subjonctif", "subjunctive"},
	"subjonctif imparfait":        {"subjonctif imparfait", "subj-imp"},
	"subjonctif passé":            {"subjonctif passé", "subj-passe"},
	"subjonctif plus-que-parfait": {"subjonctif plus-que-parfait", "subj-pqp"},

	// Impératif
	"impératif présent": {"impératif présent", "imp-pres", "imperatif", "imperative"},
	"impératif passé":   {"impératif passé", "imp-passe"},

	// Infinitif et participe
	"infinitif présent": {"infinitif présent", "inf", "infinitive"},
	"infinitif passé":   {"infinitif passé", "inf-passe"},
	"participe présent": {"participe présent", "part-pres", "participle"},
	"participe passé":   {"participe passé", "part-passe"},
	"gérondif":          {"gérondif", "ger", "gerund"},
}

// NormalizePerson resolves a subject form (e.g., "elle") to its person ("il").
func NormalizePerson(input string) (string, bool) {
	return resolveAlias(Persons, input)
}

// NormalizeTense resolves a tense alias (e.g., "fut") to its canonical name
// ("futur simple").
func NormalizeTense(input string) (string, bool) {
	return resolveAlias(Tenses, input)
}

// TenseNames returns the canonical tense names, sorted.
func TenseNames() []string {
	names := make([]string, 0, len(Tenses))
	for name := range Tenses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resolveAlias(table map[string][]string, input string) (string, bool) {
	input = NormalizeKey(input)
	if input == "" {
		return "", false
	}
	for canonical, aliases := range table {
		for _, alias := range aliases {
			if input == alias {
				return canonical, true
			}
		}
	}
	return "", false
}
