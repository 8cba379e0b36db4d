package deepseek

// chatCompletionChunk is one SSE data payload from the chat completions
// stream. Only the fields the relay consumes are mapped; everything
// else in the payload is ignored.
type chatCompletionChunk struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Delta        delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// delta carries the two optional text fields of a streamed choice.
// DeepSeek reasoner models emit the chain of thought in
// reasoning_content and the answer in content; either may be absent or
// null on any given chunk.
type delta struct {
	ReasoningContent string `json:"reasoning_content"`
	Content          string `json:"content"`
}
