package execution

// Judge0 language ids for the supported set.
var languageIDs = map[string]int{
	"javascript": 63,
	"typescript": 74,
	"python":     71,
	"c":          75,
	"cpp":        76,
	"java":       62,
	"csharp":     51,
	"go":         60,
	"rust":       73,
}

// LanguageID maps a language name to its Judge0 id.
func LanguageID(language string) (int, bool) {
	id, ok := languageIDs[language]
	return id, ok
}

// SupportedLanguages returns the supported language names.
func SupportedLanguages() []string {
	names := make([]string, 0, len(languageIDs))
	for name := range languageIDs {
		names = append(names, name)
	}
	return names
}
