// Package tokencount estimates input token counts for logging only,
// grounded on the teacher's countInputTokens in internal/handlers/
// proxy.go. The estimate never feeds routing decisions.
package tokencount

import "github.com/pkoukk/tiktoken-go"

// EstimateTokens returns a cl100k_base token estimate for text, or 0 if
// the encoding can't be loaded.
func EstimateTokens(text string) int {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}
