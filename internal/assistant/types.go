// Package assistant turns chat messages into theme changes.
package assistant

import (
	"errors"

	"github.com/codr1/releaseboard/internal/theme"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation. ImageURL may be an https URL or a data URL.
type Message struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type Request struct {
	Messages []Message `json:"messages"`
	// Theme is the active theme, sent to the model as context.
	Theme theme.Theme `json:"theme"`
}

// Tool names the model can call.
const (
	ToolUpdateTheme   = "update_theme"
	ToolSuggestAction = "suggest_action"
)

// ActionRevert is the only follow-up action the assistant can suggest.
const ActionRevert = "revert"

// RevertPrompt is the fixed suggestion offered after a bright theme is applied.
const RevertPrompt = "Too bright? Switch back to the previous theme."

// Action is the outcome of one tool invocation, in the order the model returned them.
type Action struct {
	Tool string `json:"tool"`
	OK   bool   `json:"ok"`

	// update_theme
	Patch      *theme.Theme `json:"patch,omitempty"`
	Dropped    []string     `json:"dropped,omitempty"`
	Advisories []string     `json:"advisories,omitempty"`
	Applied    int          `json:"applied,omitempty"`

	// suggest_action
	Prompt     string `json:"prompt,omitempty"`
	Suggestion string `json:"action,omitempty"`

	Error string `json:"error,omitempty"`
}

type Reply struct {
	Message string   `json:"message"`
	Actions []Action `json:"actions"`
}

// HasThemeChange reports whether any action carries a patch to apply.
func (r Reply) HasThemeChange() bool {
	for _, action := range r.Actions {
		if action.Tool == ToolUpdateTheme && action.OK && action.Patch != nil {
			return true
		}
	}
	return false
}

var (
	ErrTurnInProgress  = errors.New("assistant: a turn is already in progress")
	ErrEmptyRequest    = errors.New("assistant: no user message")
	ErrNothingToRevert = errors.New("assistant: no previous theme to revert to")
)

func updateFailure(err error) Action {
	return Action{
		Tool:  ToolUpdateTheme,
		Error: "Couldn't update the theme: " + err.Error(),
	}
}

func updateSuccess(patch theme.Theme, dropped *theme.ValidationError) Action {
	action := Action{
		Tool:       ToolUpdateTheme,
		OK:         true,
		Patch:      &patch,
		Advisories: theme.Advisories(patch),
	}
	if dropped != nil {
		action.Dropped = dropped.Dropped
	}
	return action
}

func revertSuggestion() Action {
	return Action{
		Tool:       ToolSuggestAction,
		OK:         true,
		Prompt:     RevertPrompt,
		Suggestion: ActionRevert,
	}
}

func lastUserMessage(messages []Message) (Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i], true
		}
	}
	return Message{}, false
}
