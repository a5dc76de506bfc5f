package llm

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
)

// chunkIterator adapts the SDK's chunk stream to StreamIterator,
// skipping chunks that carry no text (role announcements, finish
// markers).
type chunkIterator struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
	delta  string
}

var _ StreamIterator = &chunkIterator{}

func (it *chunkIterator) Next() bool {
	for it.stream.Next() {
		chunk := it.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if text := chunk.Choices[0].Delta.Content; text != "" {
			it.delta = text
			return true
		}
	}
	return false
}

func (it *chunkIterator) Delta() string {
	return it.delta
}

func (it *chunkIterator) Err() error {
	return it.stream.Err()
}

func (it *chunkIterator) Close() error {
	return it.stream.Close()
}
