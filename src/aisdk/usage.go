package aisdk

import "fmt"

// TokenCounter accumulates token usage across calls. The zero value is ready to use.
type TokenCounter struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Add folds a response's usage into the counter. A nil usage is ignored.
func (c *TokenCounter) Add(u *Usage) {
	if u == nil {
		return
	}
	c.Input += u.PromptTokens
	c.Output += u.CompletionTokens
	c.Total += u.TotalTokens
}

// Plus returns the sum of two counters.
func (c TokenCounter) Plus(other TokenCounter) TokenCounter {
	return TokenCounter{
		Input:  c.Input + other.Input,
		Output: c.Output + other.Output,
		Total:  c.Total + other.Total,
	}
}

func (c TokenCounter) String() string {
	return fmt.Sprintf("input %d, output %d, total %d", c.Input, c.Output, c.Total)
}
