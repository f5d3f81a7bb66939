package local

import (
	"encoding/json"
	"strings"

	"github.com/kbukum/quizgen/httpclient/sse"
	"github.com/kbukum/quizgen/llm"
)

// Dialect maps generation requests onto one inference server's HTTP wire
// format. Streams are always read as server-sent events.
type Dialect interface {
	// Name identifies the dialect in logs.
	Name() string
	// ChatPath is the completion endpoint, relative to the base URL.
	ChatPath() string
	// ModelsPath is the endpoint listing loaded models; it doubles as the
	// connectivity probe.
	ModelsPath() string
	// BuildRequest returns the JSON body for req.
	BuildRequest(req *llm.GenerationRequest, model string, sampling llm.Sampling, stream bool) (any, error)
	// ParseResponse extracts the text and token usage of a completion.
	ParseResponse(body []byte) (string, llm.Usage, error)
	// ParseStreamChunk extracts the text of one event's data. done marks the
	// end of the stream.
	ParseStreamChunk(data string) (text string, done bool, err error)
	// ParseModels lists model ids from the ModelsPath response.
	ParseModels(body []byte) ([]string, error)
}

// OpenAI is the chat completion dialect shared by LM Studio, the llama.cpp
// server, vLLM and Ollama's /v1 API.
type OpenAI struct{}

var _ Dialect = OpenAI{}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        *float64      `json:"top_p,omitempty"`
	Seed        *int          `json:"seed,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
	Delta   chatMessage `json:"delta"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (OpenAI) Name() string       { return "openai" }
func (OpenAI) ChatPath() string   { return "/chat/completions" }
func (OpenAI) ModelsPath() string { return "/models" }

// BuildRequest puts the request context into a system message. Sampling
// hints become the optional top_p, seed and stop fields.
func (OpenAI) BuildRequest(req *llm.GenerationRequest, model string, sampling llm.Sampling, stream bool) (any, error) {
	messages := make([]chatMessage, 0, 2)
	if req.Context() != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.Context()})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Instruction()})
	return chatRequest{
		Model:       model,
		Stream:      stream,
		Temperature: req.Temperature(),
		MaxTokens:   req.MaxTokens(),
		TopP:        sampling.TopP,
		Seed:        sampling.Seed,
		Stop:        sampling.Stop,
		Messages:    messages,
	}, nil
}

func (OpenAI) ParseResponse(body []byte) (string, llm.Usage, error) {
	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", llm.Usage{}, err
	}
	var text string
	if len(out.Choices) > 0 {
		text = out.Choices[0].Message.Content
	}
	var usage llm.Usage
	if out.Usage != nil {
		usage = llm.Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		}
	}
	return text, usage, nil
}

func (OpenAI) ParseStreamChunk(data string) (string, bool, error) {
	if strings.TrimSpace(data) == sse.DoneMarker {
		return "", true, nil
	}
	var chunk chatResponse
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", false, err
	}
	if len(chunk.Choices) == 0 {
		return "", false, nil
	}
	return chunk.Choices[0].Delta.Content, false, nil
}

func (OpenAI) ParseModels(body []byte) ([]string, error) {
	var list modelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
