package stockbot

import (
	"regexp"
	"strings"
)

// commandPrefix introduces a stock command, e.g. "/stock=aapl.us".
const commandPrefix = "/stock="

// maxSymbolLength is the longest symbol accepted from a command.
const maxSymbolLength = 20

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.-]+$`)

// ExtractSymbol recognizes a stock command at the start of text and returns
// the validated, upper-cased symbol. The second return is false when text is
// not a stock command or the symbol is invalid.
func ExtractSymbol(text string) (string, bool) {
	if len(text) < len(commandPrefix) {
		return "", false
	}
	if !strings.EqualFold(text[:len(commandPrefix)], commandPrefix) {
		return "", false
	}

	symbol := strings.ToUpper(strings.TrimSpace(text[len(commandPrefix):]))
	if symbol == "" || len(symbol) > maxSymbolLength {
		return "", false
	}
	if !symbolPattern.MatchString(symbol) {
		return "", false
	}

	return symbol, true
}

// IsCommand reports whether text is a well-formed stock command.
func IsCommand(text string) bool {
	_, ok := ExtractSymbol(text)
	return ok
}

// HasCommandPrefix reports whether text starts with the stock command prefix,
// regardless of whether the symbol is valid. Used to distinguish a malformed
// command from an ordinary chat message.
func HasCommandPrefix(text string) bool {
	return len(text) >= len(commandPrefix) && strings.EqualFold(text[:len(commandPrefix)], commandPrefix)
}
