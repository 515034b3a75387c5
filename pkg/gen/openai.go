package gen

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// DefaultOpenAIModel is the model used when OpenAIClient.Model is empty.
const DefaultOpenAIModel = openai.ChatModelGPT4oMini

const (
	oaiFinishReasonStop          = "stop"
	oaiFinishReasonLength        = "length"
	oaiFinishReasonContentFilter = "content_filter"
)

var _ Client = (*OpenAIClient)(nil)

// OpenAIClient implements Client using the OpenAI chat completions API.
type OpenAIClient struct {
	Client *openai.Client

	Model string
}

// NewOpenAIClient builds a client with the given key.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("gen: openai api key is empty")
	}
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{Client: &c, Model: model}, nil
}

func (g *OpenAIClient) params(prompt string) openai.ChatCompletionNewParams {
	model := g.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
}

func (g *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.Client.Chat.Completions.New(ctx, g.params(prompt))
	if err != nil {
		return "", Transient(err)
	}
	if len(resp.Choices) == 0 {
		return "", Malformed("no choices")
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", Rejected(choice.Message.Refusal)
	}
	switch choice.FinishReason {
	case oaiFinishReasonStop, oaiFinishReasonLength:
	case oaiFinishReasonContentFilter:
		return "", Rejected("content filter")
	default:
		return "", Malformed("unexpected finish reason: %s", choice.FinishReason)
	}
	if choice.Message.Content == "" {
		return "", Empty()
	}
	return choice.Message.Content, nil
}

func (g *OpenAIClient) GenerateStream(ctx context.Context, prompt string) (Stream, error) {
	pipe := NewPipe(32)
	go func() {
		if err := oaiPull(pipe, g.Client.Chat.Completions.NewStreaming(ctx, g.params(prompt))); err != nil {
			pipe.Abort(err)
		}
	}()
	return pipe, nil
}

func oaiPull(pipe *Pipe, stream *ssestream.Stream[openai.ChatCompletionChunk]) error {
	var (
		index int64
		total int
	)
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		var sel *openai.ChatCompletionChunkChoice
		if index == 0 {
			index = chunk.Choices[0].Index
			sel = &chunk.Choices[0]
		} else {
			for i := range chunk.Choices {
				if chunk.Choices[i].Index == index {
					sel = &chunk.Choices[i]
					break
				}
			}
			if sel == nil {
				continue
			}
		}
		if s := sel.Delta.Content; s != "" {
			total += len(s)
			if err := pipe.Send(s); err != nil {
				return nil
			}
		}
		if s := sel.Delta.Refusal; s != "" {
			pipe.Abort(Rejected(s))
			return nil
		}
		switch sel.FinishReason {
		case oaiFinishReasonStop, oaiFinishReasonLength:
			if total == 0 {
				pipe.Abort(Empty())
				return nil
			}
			pipe.CloseSend()
			return nil
		case oaiFinishReasonContentFilter:
			pipe.Abort(Rejected("content filter"))
			return nil
		}
	}
	if err := stream.Err(); err != nil {
		return Transient(err)
	}
	return Malformed("stream ended without finish reason")
}
