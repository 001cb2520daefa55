package prompts

import "fmt"

// DefaultLocale is used when the caller does not specify one.
const DefaultLocale = "en"

// localeInstructions holds the natural-language directive appended to the
// system prompt. String field values inside the JSON reply follow the
// patient's locale; the schema itself (keys, enums, structure) never varies.
var localeInstructions = map[string]string{
	"en":    "Write all free-text field values in English.",
	"pt-BR": "Escreva todos os valores de texto livre em português brasileiro.",
	"es":    "Escribe todos los valores de texto libre en español.",
}

// SupportedLocales returns the locale tags the builder accepts.
func SupportedLocales() []string {
	return []string{"en", "es", "pt-BR"}
}

// localeInstruction returns the directive for a locale tag.
func localeInstruction(locale string) (string, error) {
	instr, ok := localeInstructions[locale]
	if !ok {
		return "", fmt.Errorf("unsupported locale %q (supported: en, es, pt-BR)", locale)
	}
	return instr, nil
}
