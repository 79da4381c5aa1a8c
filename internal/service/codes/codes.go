package codes

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/open-builders/reward-rush-bot/internal/common/validation"
	"github.com/open-builders/reward-rush-bot/internal/utils/random"
)

const (
	alphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	groupSize   = 4
	groupCount  = 3
	maxAttempts = 64
)

// Pattern matches a well-formed redeem code anywhere it is typed by itself.
var Pattern = regexp.MustCompile(`^[a-zA-Z0-9-]+-([A-Z0-9]{4}-){2}[A-Z0-9]{4}$`)

// Generate returns PREFIX-XXXX-XXXX-XXXX with each X drawn from [A-Z0-9].
func Generate(prefix string) (string, error) {
	if err := validation.ValidatePrefix(prefix); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(prefix)
	for i := 0; i < groupCount; i++ {
		group, err := random.String(alphabet, groupSize)
		if err != nil {
			return "", err
		}
		b.WriteByte('-')
		b.WriteString(group)
	}
	return b.String(), nil
}

// GenerateUnique retries Generate until the code is not in taken.
// The new code is added to taken so bulk callers stay collision-free.
func GenerateUnique(prefix string, taken map[string]struct{}) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := Generate(prefix)
		if err != nil {
			return "", err
		}
		if _, exists := taken[code]; exists {
			continue
		}
		taken[code] = struct{}{}
		return code, nil
	}
	return "", fmt.Errorf("could not generate a unique code for prefix %q after %d attempts", prefix, maxAttempts)
}

// LooksLikeCode reports whether text is a bare redeem code.
func LooksLikeCode(text string) bool {
	return Pattern.MatchString(strings.TrimSpace(text))
}
