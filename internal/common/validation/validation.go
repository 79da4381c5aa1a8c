package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MaxPrefixLength = 32
	// MaxCallbackDataLength is Telegram's limit on inline button data, in bytes.
	MaxCallbackDataLength = 64
	// MaxGiveawayNameLength leaves room for the "join_" callback prefix.
	MaxGiveawayNameLength = MaxCallbackDataLength - len("join_")
	MaxPayloadLength      = 4096
)

var (
	prefixRegex       = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
	giveawayNameRegex = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// ValidatePrefix checks a redeem-code prefix: alphanumerics and hyphens only.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("prefix cannot be empty")
	}
	if len(prefix) > MaxPrefixLength {
		return fmt.Errorf("prefix cannot exceed %d characters", MaxPrefixLength)
	}
	if !prefixRegex.MatchString(prefix) {
		return fmt.Errorf("only alphanumeric characters and hyphens are allowed")
	}
	return nil
}

// NormalizeGiveawayName lowercases and validates a giveaway name.
func NormalizeGiveawayName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("giveaway name cannot be empty")
	}
	if len(name) > MaxGiveawayNameLength {
		return "", fmt.Errorf("giveaway name cannot exceed %d characters", MaxGiveawayNameLength)
	}
	if !giveawayNameRegex.MatchString(name) {
		return "", fmt.Errorf("giveaway name may contain only letters, digits and underscores")
	}
	return name, nil
}

// ParseUserID parses a numeric Telegram user id.
func ParseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}

// SplitLines returns the trimmed, non-empty lines of text.
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = truncate(line, MaxPayloadLength)
		out = append(out, line)
	}
	return out
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
