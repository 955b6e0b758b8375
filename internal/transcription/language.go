package transcription

import (
	"strings"

	xlang "golang.org/x/text/language"

	"loom/internal/services"
)

// NormalizeLanguage converts a caller-supplied language hint into the
// lowercase ISO 639-1 base code the providers expect. An empty hint means
// auto-detect; an unparseable hint is a validation error.
func NormalizeLanguage(hint string) (string, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return "", nil
	}
	tag, err := xlang.Parse(hint)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "transcription", "language",
			"unrecognized language hint "+strings.ToLower(hint), err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}
