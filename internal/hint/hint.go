// Package hint derives a short keyword description of an initiative photo,
// used as the image's alt text and search hint.
package hint

import (
	"context"
	"strings"
	"unicode"
)

// Default is the hint stored when no backend is configured or the backend
// fails.
const Default = "encontro pessoas"

// Prompt is the shared instruction used by all model backends.
const Prompt = `Descreva esta foto em no máximo duas palavras em português,
em minúsculas, sem pontuação. Exemplo: "praia amigos".`

const maxWords = 2

type Hinter interface {
	Hint(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Static returns Default for every photo.
type Static struct{}

func (Static) Hint(context.Context, []byte, string) (string, error) {
	return Default, nil
}

// Normalize reduces a model reply to at most two lowercase words. It returns
// Default when nothing usable remains.
func Normalize(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		words := strings.FieldsFunc(strings.ToLower(line), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(words) == 0 {
			continue
		}
		if len(words) > maxWords {
			words = words[:maxWords]
		}
		return strings.Join(words, " ")
	}
	return Default
}
