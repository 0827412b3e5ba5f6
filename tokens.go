package main

import (
	"github.com/pkoukk/tiktoken-go"
)

// countTokens measures text against the model's tokenizer, falling back to
// cl100k_base for models tiktoken does not know, and to a rough
// chars/4 estimate if no encoding loads at all. Audit rows use this when the
// provider omitted usage numbers.
func countTokens(text, model string) int {
	if text == "" {
		return 0
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
