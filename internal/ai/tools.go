package ai

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// ToolSpec describes one callable function offered to the model.
// Parameters is a JSON Schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a function call emitted by the model. Arguments is always valid
// JSON; malformed arguments from the model are replaced by an empty object.
type ToolCall struct {
	CallID    string
	Name      string
	Arguments []byte
}

// toOpenAITools converts tool specs to the Responses API tool format.
func toOpenAITools(specs []ToolSpec) []responses.ToolUnionParam {
	out := make([]responses.ToolUnionParam, 0, len(specs))
	for _, t := range specs {
		out = append(out, responses.ToolUnionParam{
			OfFunction: &responses.FunctionToolParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.Parameters,
				Strict:      openai.Bool(false),
			},
		})
	}
	return out
}
