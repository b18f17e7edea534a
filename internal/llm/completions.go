package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// placeholderAPIKey is sent to local servers that don't check credentials.
const placeholderAPIKey = "sk-no-key-required"

// CompletionsSource streams raw text completions from an OpenAI-compatible
// /v1/completions endpoint (mlx_lm.server, llama.cpp server, vLLM).
type CompletionsSource struct {
	client openai.Client
	model  string
}

// NewCompletionsSource creates a source for the server at baseURL.
func NewCompletionsSource(baseURL, apiKey, model string, opts ...option.RequestOption) *CompletionsSource {
	if apiKey == "" {
		apiKey = placeholderAPIKey
	}
	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	all := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	}
	all = append(all, opts...)
	return &CompletionsSource{
		client: openai.NewClient(all...),
		model:  model,
	}
}

func (s *CompletionsSource) Name() string {
	return "completions:" + s.model
}

// Model returns the model identifier sent with each request.
func (s *CompletionsSource) Model() string {
	return s.model
}

func (s *CompletionsSource) Generate(ctx context.Context, req Request) (FragmentStream, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("empty prompt")
	}
	params := openai.CompletionNewParams{
		Model: openai.CompletionNewParamsModel(s.model),
		Prompt: openai.CompletionNewParamsPromptUnion{
			OfString: openai.String(req.Prompt),
		},
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Stop) > 0 {
		params.Stop = openai.CompletionNewParamsStopUnion{OfStringArray: req.Stop}
	}

	var reqOpts []option.RequestOption
	if req.Cache != nil && req.Cache.Enabled {
		// llama.cpp and mlx_lm.server keep the KV cache for shared prompt prefixes.
		reqOpts = append(reqOpts, option.WithJSONSet("cache_prompt", true))
	}

	stream := s.client.Completions.NewStreaming(ctx, params, reqOpts...)
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	return &completionStream{stream: stream}, nil
}

type completionStream struct {
	stream       *ssestream.Stream[openai.Completion]
	promptTokens int
	hasUsage     bool
	done         bool
}

func (c *completionStream) Recv() (Fragment, error) {
	if c.done {
		return Fragment{}, io.EOF
	}
	for c.stream.Next() {
		chunk := c.stream.Current()
		if chunk.Usage.PromptTokens > 0 {
			c.promptTokens = int(chunk.Usage.PromptTokens)
			c.hasUsage = true
		}
		// usage-only chunks carry no choices
		if len(chunk.Choices) == 0 || chunk.Choices[0].Text == "" {
			continue
		}
		return Fragment{Text: chunk.Choices[0].Text}, nil
	}
	c.done = true
	if err := c.stream.Err(); err != nil {
		return Fragment{}, fmt.Errorf("completion stream error: %w", err)
	}
	return Fragment{}, io.EOF
}

func (c *completionStream) Close() error {
	return c.stream.Close()
}

func (c *completionStream) PromptTokens() (int, bool) {
	return c.promptTokens, c.hasUsage
}
