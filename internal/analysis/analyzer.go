// Package analysis extracts a unit roll from a scanned attendance sheet or a
// PDF ownership list using an OpenAI vision model.
package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"prezence/api/internal/roster"
)

const (
	DefaultModel = "gpt-4o-mini"
	functionName = "extract_units"

	prompt = `Extract the owners' association roll from this document.

Return every ownership unit by calling extract_units(strict).
For each unit give:
- unitNumber: the unit (flat) number exactly as printed
- ownerName: the owner or owners as printed
- share: the co-ownership share as a number (percent, decimal point)
- block: the building or entrance number the unit belongs to

Skip headers, totals and signatures. Do not invent units that are not in the document.`
)

var (
	ErrDisabled         = errors.New("document analysis is not configured")
	ErrNothingExtracted = errors.New("no units could be read from the document")
	ErrUnsupportedMedia = errors.New("unsupported document type")
	errNoFunctionCall   = errors.New("openai: no function call returned")
)

// ExtractedUnit is one row as returned by the model.
type ExtractedUnit struct {
	UnitNumber string  `json:"unitNumber"`
	OwnerName  string  `json:"ownerName"`
	Share      float64 `json:"share"`
	Block      string  `json:"block"`
}

type extraction struct {
	Units []ExtractedUnit `json:"units"`
}

// Analyzer wraps the OpenAI client. A nil client means the feature is off.
type Analyzer struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

// New creates the analyzer. Pass an empty apiKey to disable it.
func New(apiKey, model string, opts ...option.RequestOption) *Analyzer {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	a := &Analyzer{model: model, now: time.Now}
	if apiKey == "" {
		return a
	}
	c := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	a.client = &c
	return a
}

func (a *Analyzer) Enabled() bool {
	return a != nil && a.client != nil
}

// Analyze sends the document to the model and maps the extracted rows into a
// fresh roll: everyone absent, no proxies, the extracted name as baseline.
func (a *Analyzer) Analyze(ctx context.Context, data []byte, mimeType string) ([]roster.Unit, error) {
	if !a.Enabled() {
		return nil, ErrDisabled
	}
	part, err := documentPart(data, mimeType)
	if err != nil {
		return nil, err
	}

	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart(prompt),
						part,
					},
				},
			},
		}},
		Tools: []openai.ChatCompletionToolParam{{
			Function: functionDefinition(),
		}},
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: functionName,
				},
			},
		},
	}

	resp, err := a.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, errNoFunctionCall
	}

	rows, err := parseArguments(resp.Choices[0].Message.ToolCalls[0].Function.Arguments)
	if err != nil {
		return nil, err
	}
	return toUnits(rows, a.now())
}

func functionDefinition() shared.FunctionDefinitionParam {
	row := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"unitNumber": map[string]string{"type": "string"},
			"ownerName":  map[string]string{"type": "string"},
			"share":      map[string]string{"type": "number"},
			"block":      map[string]string{"type": "string"},
		},
		"required":             []string{"unitNumber", "ownerName", "share", "block"},
		"additionalProperties": false,
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"units": map[string]any{
				"type":  "array",
				"items": row,
			},
		},
		"required":             []string{"units"},
		"additionalProperties": false,
	}
	return shared.FunctionDefinitionParam{
		Name:        functionName,
		Description: openai.String("Return the ownership units listed in the document."),
		Strict:      openai.Bool(true),
		Parameters:  schema,
	}
}

func documentPart(data []byte, mimeType string) (openai.ChatCompletionContentPartUnionParam, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if len(data) == 0 {
		return openai.ChatCompletionContentPartUnionParam{}, fmt.Errorf("%w: empty file", ErrUnsupportedMedia)
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    dataURL,
			Detail: "high",
		}), nil
	case mimeType == "application/pdf":
		return openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
			FileData: openai.String(dataURL),
			Filename: openai.String("document.pdf"),
		}), nil
	default:
		return openai.ChatCompletionContentPartUnionParam{}, fmt.Errorf("%w: %q", ErrUnsupportedMedia, mimeType)
	}
}

func parseArguments(args string) ([]ExtractedUnit, error) {
	var out extraction
	if err := json.Unmarshal([]byte(args), &out); err != nil {
		return nil, fmt.Errorf("unmarshal extraction: %w", err)
	}
	return out.Units, nil
}

// toUnits numbers the rows from the current time in milliseconds so the ids
// never collide with a sheet's small row ids.
func toUnits(rows []ExtractedUnit, now time.Time) ([]roster.Unit, error) {
	if len(rows) == 0 {
		return nil, ErrNothingExtracted
	}
	base := now.UnixMilli()
	units := make([]roster.Unit, len(rows))
	for i, r := range rows {
		present, proxy := false, false
		units[i] = roster.Unit{
			ID:                           roster.NumericID(float64(base + int64(i))),
			UnitNumber:                   r.UnitNumber,
			OwnerName:                    r.OwnerName,
			OriginalOwnerName:            r.OwnerName,
			Share:                        r.Share,
			Block:                        r.Block,
			LastSyncedIsPresent:          &present,
			LastSyncedHasPowerOfAttorney: &proxy,
		}
	}
	return units, nil
}
