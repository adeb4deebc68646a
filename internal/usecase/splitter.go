package usecase

import (
	"fmt"

	"optionsmagic-ai/internal/domain"
)

// DefaultMaxMessageLen is Telegram's hard per-message text limit.
const DefaultMaxMessageLen = 4096

// SplitMessage slices text into contiguous chunks of at most maxLen bytes.
// Chunks concatenate back to text exactly; boundaries are fixed-width and do
// not respect word or line breaks. Empty input yields no chunks.
func SplitMessage(text string, maxLen int) ([]string, error) {
	if maxLen <= 0 {
		return nil, domain.NewDomainError("split", domain.ErrInvalidInput,
			fmt.Sprintf("max length must be positive, got %d", maxLen))
	}

	if text == "" {
		return nil, nil
	}

	chunks := make([]string, 0, (len(text)+maxLen-1)/maxLen)
	for i := 0; i < len(text); i += maxLen {
		end := i + maxLen
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[i:end])
	}
	return chunks, nil
}
