package gen

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"
)

// DefaultGeminiModel is the model used when GeminiClient.Model is empty.
const DefaultGeminiModel = "gemini-2.0-flash-001"

var _ Client = (*GeminiClient)(nil)

// GeminiClient implements Client using the Google Gemini API.
type GeminiClient struct {
	Client *genai.Client

	// Model should not start with "models/". Empty means DefaultGeminiModel.
	Model string
}

// NewGeminiClient dials the Gemini API with the given key.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gen: gemini api key is empty")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gen: gemini client: %w", err)
	}
	return &GeminiClient{Client: c, Model: model}, nil
}

func (g *GeminiClient) model() string {
	if g.Model != "" {
		return g.Model
	}
	return DefaultGeminiModel
}

func geminiContents(prompt string) []*genai.Content {
	return []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{genai.NewPartFromText(prompt)},
	}}
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.Client.Models.GenerateContent(ctx, g.model(), geminiContents(prompt), nil)
	if err != nil {
		return "", geminiConvErr(err)
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return "", Rejected(fmt.Sprintf("prompt blocked: %s", fb.BlockReason))
	}
	if len(resp.Candidates) == 0 {
		return "", Malformed("no candidates")
	}
	cand := resp.Candidates[0]
	switch cand.FinishReason {
	case genai.FinishReasonStop, genai.FinishReasonMaxTokens:
		// Truncation still yields usable text; answers are length-bounded by
		// the prompt constraint anyway.
	case genai.FinishReasonSafety:
		return "", Rejected("blocked by " + geminiBlockedCategories(cand))
	default:
		return "", Malformed("unexpected finish reason: %s", cand.FinishReason)
	}
	var sb strings.Builder
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				sb.WriteString(p.Text)
			}
		}
	}
	if sb.Len() == 0 {
		return "", Empty()
	}
	return sb.String(), nil
}

func (g *GeminiClient) GenerateStream(ctx context.Context, prompt string) (Stream, error) {
	pipe := NewPipe(32)
	go func() {
		if err := geminiPull(pipe, g.Client.Models.GenerateContentStream(ctx, g.model(), geminiContents(prompt), nil)); err != nil {
			pipe.Abort(err)
		}
	}()
	return pipe, nil
}

// geminiPull drains the backend iterator into the pipe. A nil return means
// the pipe was terminated (success or classified failure) inside the loop.
func geminiPull(pipe *Pipe, itr iter.Seq2[*genai.GenerateContentResponse, error]) error {
	var (
		selIdx int32
		total  int
	)
	for chunk, err := range itr {
		if err != nil {
			return geminiConvErr(err)
		}
		if fb := chunk.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
			pipe.Abort(Rejected(fmt.Sprintf("prompt blocked: %s", fb.BlockReason)))
			return nil
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		// Stick to one candidate across chunks, like the first one seen.
		var sel *genai.Candidate
		if selIdx == 0 {
			selIdx = chunk.Candidates[0].Index
			sel = chunk.Candidates[0]
		} else {
			for _, c := range chunk.Candidates {
				if c.Index == selIdx {
					sel = c
					break
				}
			}
			if sel == nil {
				continue
			}
		}

		var sb strings.Builder
		if sel.Content != nil {
			for _, p := range sel.Content.Parts {
				if p.Text != "" {
					sb.WriteString(p.Text)
				}
			}
		}
		if sb.Len() > 0 {
			total += sb.Len()
			if err := pipe.Send(sb.String()); err != nil {
				// Reader went away; drop the rest of the generation.
				return nil
			}
		}

		switch sel.FinishReason {
		case genai.FinishReasonUnspecified:
			// keep pulling
		case genai.FinishReasonStop, genai.FinishReasonMaxTokens:
			if total == 0 {
				pipe.Abort(Empty())
				return nil
			}
			pipe.CloseSend()
			return nil
		case genai.FinishReasonSafety:
			pipe.Abort(Rejected("blocked by " + geminiBlockedCategories(sel)))
			return nil
		default:
			pipe.Abort(Malformed("unexpected finish reason: %s", sel.FinishReason))
			return nil
		}
	}
	return Malformed("stream ended without finish reason")
}

func geminiBlockedCategories(cand *genai.Candidate) string {
	var cats []string
	for _, sr := range cand.SafetyRatings {
		if sr.Blocked {
			cats = append(cats, string(sr.Category))
		}
	}
	if len(cats) == 0 {
		return "safety policy"
	}
	return strings.Join(cats, ", ")
}

func geminiConvErr(err error) error {
	if e, ok := err.(*apierror.APIError); ok {
		err = e.Unwrap()
	}
	return Transient(err)
}
