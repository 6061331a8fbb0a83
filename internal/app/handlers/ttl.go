package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/arpanpaul-gh/InMemory-DB/internal/core/domain"
)

var jsonNull = []byte("null")

// parseTTL validates the raw ttl field of a set_with_ttl request. Clients
// send it as a JSON number or a decimal string; a fractional number is
// rejected rather than truncated. The distinct error values map onto the
// wire's error messages.
func parseTTL(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return 0, domain.ErrTTLMissing
	}

	var numeric float64
	if err := json.Unmarshal(raw, &numeric); err == nil {
		if numeric != math.Trunc(numeric) {
			return 0, domain.ErrTTLNotInteger
		}
		return positive(int64(numeric))
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return 0, domain.ErrTTLNotInteger
		}
		return positive(n)
	}

	return 0, domain.ErrTTLNotInteger
}

func positive(n int64) (int64, error) {
	if n < 1 {
		return 0, domain.ErrTTLNotPositive
	}
	return n, nil
}
