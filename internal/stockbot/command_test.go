package stockbot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSymbol(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "simple symbol", input: "/stock=AAPL", want: "AAPL", wantOK: true},
		{name: "symbol with suffix", input: "/stock=AAPL.US", want: "AAPL.US", wantOK: true},
		{name: "lowercase symbol upper-cased", input: "/stock=aapl.us", want: "AAPL.US", wantOK: true},
		{name: "mixed case prefix", input: "/STOCK=googl", want: "GOOGL", wantOK: true},
		{name: "symbol with hyphen", input: "/stock=BRK-B", want: "BRK-B", wantOK: true},
		{name: "digits allowed", input: "/stock=3M5", want: "3M5", wantOK: true},
		{name: "surrounding whitespace trimmed", input: "/stock=  msft  ", want: "MSFT", wantOK: true},
		{name: "max length symbol", input: "/stock=" + strings.Repeat("A", 20), want: strings.Repeat("A", 20), wantOK: true},

		{name: "empty symbol", input: "/stock=", wantOK: false},
		{name: "whitespace only symbol", input: "/stock=   ", wantOK: false},
		{name: "over max length", input: "/stock=" + strings.Repeat("A", 21), wantOK: false},
		{name: "invalid characters", input: "/stock=AA PL", wantOK: false},
		{name: "special characters", input: "/stock=AAPL$", wantOK: false},
		{name: "not a command", input: "hello world", wantOK: false},
		{name: "prefix not at start", input: "say /stock=AAPL", wantOK: false},
		{name: "empty input", input: "", wantOK: false},
		{name: "prefix only fragment", input: "/stock", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractSymbol(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestExtractSymbol_Deterministic(t *testing.T) {
	inputs := []string{"/stock=AAPL.US", "/stock=", "hello world", "/STOCK=tsla"}
	for _, input := range inputs {
		first, firstOK := ExtractSymbol(input)
		second, secondOK := ExtractSymbol(input)
		assert.Equal(t, first, second)
		assert.Equal(t, firstOK, secondOK)
	}
}

func TestIsCommand(t *testing.T) {
	assert.True(t, IsCommand("/stock=AAPL.US"))
	assert.True(t, IsCommand("/Stock=ibm"))
	assert.False(t, IsCommand("/stock="))
	assert.False(t, IsCommand("hello world"))
}

func TestHasCommandPrefix(t *testing.T) {
	assert.True(t, HasCommandPrefix("/stock=AAPL"))
	assert.True(t, HasCommandPrefix("/stock="))
	assert.True(t, HasCommandPrefix("/STOCK=!!"))
	assert.False(t, HasCommandPrefix("/stoc=AAPL"))
	assert.False(t, HasCommandPrefix("stock=AAPL"))
}
