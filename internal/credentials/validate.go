package credentials

import (
	"fmt"
	"strings"

	"fieldagent/internal/common"
)

// MinTokenLength is the minimum accepted token length after trimming.
const MinTokenLength = 10

// ValidateToken trims raw and checks it against the token rules: printable
// ASCII only (0x20–0x7E) and at least MinTokenLength characters. The same
// rule runs before a token is persisted, before it is put on a request
// header, and again when a stored token is loaded back.
func ValidateToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if len(token) < MinTokenLength {
		return "", fmt.Errorf("%w: shorter than %d characters", common.ErrInvalidToken, MinTokenLength)
	}
	for i := 0; i < len(token); i++ {
		if token[i] < 0x20 || token[i] > 0x7E {
			return "", fmt.Errorf("%w: non-printable byte at position %d", common.ErrInvalidToken, i)
		}
	}
	return token, nil
}
