package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/codr1/releaseboard/internal/theme"
)

// Router decides whether a turn asks for a theme change and produces the actions to apply.
type Router interface {
	Route(ctx context.Context, req Request) (Reply, error)
}

// NewRouter picks the strategy for the configured model once, not per request.
func NewRouter(model ChatModel, modelName string, registry *theme.Registry, supportsTools bool) Router {
	if supportsTools {
		return NewStructuredRouter(model, modelName, registry)
	}
	return NewFreeTextRouter(model, modelName, registry)
}

// StructuredRouter exposes update_theme and suggest_action as tools and handles
// every call the model returns, in order.
type StructuredRouter struct {
	model     ChatModel
	modelName string
	registry  *theme.Registry
	tools     []openai.Tool
}

func NewStructuredRouter(model ChatModel, modelName string, registry *theme.Registry) *StructuredRouter {
	return &StructuredRouter{
		model:     model,
		modelName: modelName,
		registry:  registry,
		tools:     structuredTools(registry),
	}
}

func structuredTools(registry *theme.Registry) []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolUpdateTheme,
				Description: "Replace the dashboard theme. Provide every field.",
				Parameters:  registry.FunctionSchema(true),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolSuggestAction,
				Description: "Offer the user a follow-up action as a clickable suggestion.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"prompt": {Type: jsonschema.String, Description: "Short text shown on the suggestion"},
						"action": {Type: jsonschema.String, Enum: []string{ActionRevert}, Description: "What accepting the suggestion does"},
					},
					Required: []string{"prompt", "action"},
				},
			},
		},
	}
}

func (r *StructuredRouter) Route(ctx context.Context, req Request) (Reply, error) {
	last, ok := lastUserMessage(req.Messages)
	if !ok {
		return Reply{}, ErrEmptyRequest
	}
	if isLightIdiom(last) {
		log.Ctx(ctx).Debug().Msg("Light-mode idiom matched")
		return Reply{
			Message: "Lights on.",
			Actions: []Action{updateSuccess(theme.FlashBang(), nil), revertSuggestion()},
		}, nil
	}

	messages := append([]openai.ChatCompletionMessage{systemMessage(structuredSystemPrompt(req.Theme))}, toChatMessages(req.Messages)...)
	msg, err := complete(ctx, r.model, openai.ChatCompletionRequest{
		Model:    r.modelName,
		Messages: messages,
		Tools:    r.tools,
	})
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{Message: msg.Content}
	for _, call := range msg.ToolCalls {
		reply.Actions = append(reply.Actions, r.handleCall(call))
	}
	reply.Actions = applySuggestionPolicy(reply.Actions)

	if reply.Message == "" && reply.HasThemeChange() {
		reply.Message = "Theme updated."
	}
	log.Ctx(ctx).Debug().
		Int("tool_calls", len(msg.ToolCalls)).
		Int("actions", len(reply.Actions)).
		Msg("Structured route complete")
	return reply, nil
}

func (r *StructuredRouter) handleCall(call openai.ToolCall) Action {
	switch call.Function.Name {
	case ToolUpdateTheme:
		patch, dropped, err := r.registry.ParseFromFunctionArgs(call.Function.Arguments)
		if err != nil {
			return updateFailure(err)
		}
		return updateSuccess(patch, dropped)
	case ToolSuggestAction:
		var args struct {
			Prompt string `json:"prompt"`
			Action string `json:"action"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return Action{Tool: ToolSuggestAction, Error: fmt.Sprintf("invalid suggestion: %v", err)}
		}
		if args.Prompt == "" || args.Action != ActionRevert {
			return Action{Tool: ToolSuggestAction, Error: fmt.Sprintf("unsupported suggestion %q", args.Action)}
		}
		return Action{Tool: ToolSuggestAction, OK: true, Prompt: args.Prompt, Suggestion: args.Action}
	default:
		return Action{Tool: call.Function.Name, Error: fmt.Sprintf("unknown tool %q", call.Function.Name)}
	}
}

// applySuggestionPolicy keeps the light-theme coupling one-directional: a turn
// ending on a light patch always carries one revert suggestion and any other turn carries none.
func applySuggestionPolicy(actions []Action) []Action {
	light := false
	for _, action := range actions {
		if action.Tool != ToolUpdateTheme || !action.OK || action.Patch == nil {
			continue
		}
		if isLight, known := theme.IsLight(*action.Patch); known {
			light = isLight
		}
	}

	kept := make([]Action, 0, len(actions)+1)
	suggested := false
	for _, action := range actions {
		if action.Tool == ToolSuggestAction && action.OK {
			if !light || suggested {
				continue
			}
			suggested = true
		}
		kept = append(kept, action)
	}
	if light && !suggested {
		kept = append(kept, revertSuggestion())
	}
	return kept
}

// FreeTextRouter runs two hops for models without tool calling: one call detects
// intent and describes the change, a second turns the description into theme JSON.
type FreeTextRouter struct {
	model     ChatModel
	modelName string
	registry  *theme.Registry
}

func NewFreeTextRouter(model ChatModel, modelName string, registry *theme.Registry) *FreeTextRouter {
	return &FreeTextRouter{model: model, modelName: modelName, registry: registry}
}

func (r *FreeTextRouter) Route(ctx context.Context, req Request) (Reply, error) {
	last, ok := lastUserMessage(req.Messages)
	if !ok {
		return Reply{}, ErrEmptyRequest
	}
	if isLightIdiom(last) {
		log.Ctx(ctx).Debug().Msg("Light-mode idiom matched")
		return Reply{
			Message: "Lights on.",
			Actions: []Action{updateSuccess(theme.FlashBang(), nil)},
		}, nil
	}

	intent, err := complete(ctx, r.model, openai.ChatCompletionRequest{
		Model:    r.modelName,
		Messages: append([]openai.ChatCompletionMessage{systemMessage(intentSystemPrompt(req.Theme))}, toChatMessages(req.Messages)...),
	})
	if err != nil {
		return Reply{}, err
	}

	description, isChange := parseIntent(intent.Content)
	if !isChange || description == "" {
		return Reply{Message: description}, nil
	}

	synthesis, err := complete(ctx, r.model, openai.ChatCompletionRequest{
		Model: r.modelName,
		Messages: []openai.ChatCompletionMessage{
			systemMessage(synthesisSystemPrompt(r.registry)),
			{Role: openai.ChatMessageRoleUser, Content: description},
		},
	})
	if err != nil {
		return Reply{}, err
	}

	patch, dropped, err := r.registry.ParseFromFreeText(synthesis.Content)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Theme synthesis did not parse")
		return Reply{Message: description, Actions: []Action{updateFailure(err)}}, nil
	}
	return Reply{Message: description, Actions: []Action{updateSuccess(patch, dropped)}}, nil
}
