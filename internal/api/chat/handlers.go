// internal/api/chat/handlers.go
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codr1/releaseboard/internal/api/apiutil"
	"github.com/codr1/releaseboard/internal/assistant"
	"github.com/codr1/releaseboard/internal/ratelimit"
	"github.com/codr1/releaseboard/internal/theme"
)

const maxMessages = 50

var (
	turns        turnRunner
	limiter      chatLimiter
	trustProxy   bool
	handlersOnce sync.Once
)

type turnRunner interface {
	Turn(ctx context.Context, req assistant.Request) (assistant.TurnResult, error)
	Revert(ctx context.Context) (theme.Theme, error)
}

type chatLimiter interface {
	CheckChat(ip string) ratelimit.LimitResult
	RecordChat(ip string)
}

type chatRequest struct {
	Messages []assistant.Message `json:"messages"`
}

type revertResponse struct {
	Theme theme.Theme `json:"theme"`
}

// InitHandlers must be called during server startup before handling requests.
// A nil limiter disables chat rate limiting.
func InitHandlers(runner turnRunner, l chatLimiter, trustForwardedFor bool) {
	if runner == nil {
		return
	}
	handlersOnce.Do(func() {
		turns = runner
		limiter = l
		trustProxy = trustForwardedFor
	})
}

// POST /api/v1/assistant/chat
func HandleChat(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	runner := loadRunner()
	if runner == nil {
		logger.Error().Msg("Assistant not initialized")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req chatRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateMessages(req.Messages); err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	ip := ratelimit.GetClientIP(r, trustProxy)
	if limiter != nil {
		if result := limiter.CheckChat(ip); !result.Allowed {
			ratelimit.LogRateLimitExceeded("chat", ip, result.Reason)
			apiutil.SetRetryAfter(w, result.RetryAfter)
			apiutil.WriteError(w, r, http.StatusTooManyRequests, "Too many messages. Please slow down.")
			return
		}
	}

	result, err := runner.Turn(r.Context(), assistant.Request{Messages: req.Messages})
	// Rejected turns never reached the model and do not count against the quota.
	if limiter != nil && !errors.Is(err, assistant.ErrTurnInProgress) && !errors.Is(err, assistant.ErrEmptyRequest) {
		limiter.RecordChat(ip)
	}
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrTurnInProgress):
			apiutil.WriteError(w, r, http.StatusConflict, "The assistant is still working on the previous message.")
		case errors.Is(err, assistant.ErrEmptyRequest):
			apiutil.WriteError(w, r, http.StatusBadRequest, "A user message is required.")
		default:
			apiutil.WriteHandlerError(w, r, err)
		}
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, result); err != nil {
		logger.Error().Err(err).Str("turn_id", result.TurnID).Msg("Failed to write chat response")
	}
}

// POST /api/v1/assistant/revert
func HandleRevert(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	runner := loadRunner()
	if runner == nil {
		logger.Error().Msg("Assistant not initialized")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	restored, err := runner.Revert(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrTurnInProgress):
			apiutil.WriteError(w, r, http.StatusConflict, "The assistant is still working on the previous message.")
		case errors.Is(err, assistant.ErrNothingToRevert):
			apiutil.WriteError(w, r, http.StatusConflict, "There is no previous theme to switch back to.")
		default:
			apiutil.WriteHandlerError(w, r, err)
		}
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, revertResponse{Theme: restored}); err != nil {
		logger.Error().Err(err).Msg("Failed to write revert response")
	}
}

func validateMessages(messages []assistant.Message) error {
	if len(messages) == 0 {
		return apiutil.FieldError{Field: "messages", Reason: "is required"}
	}
	if len(messages) > maxMessages {
		return apiutil.FieldError{Field: "messages", Reason: fmt.Sprintf("must contain at most %d entries", maxMessages)}
	}
	for i, message := range messages {
		switch message.Role {
		case assistant.RoleUser, assistant.RoleAssistant:
		default:
			return apiutil.FieldError{Field: fmt.Sprintf("messages[%d].role", i), Reason: "must be user or assistant"}
		}
		if strings.TrimSpace(message.Content) == "" && message.ImageURL == "" {
			return apiutil.FieldError{Field: fmt.Sprintf("messages[%d]", i), Reason: "needs content or an image"}
		}
		if message.ImageURL != "" && !isImageURL(message.ImageURL) {
			return apiutil.FieldError{Field: fmt.Sprintf("messages[%d].imageUrl", i), Reason: "must be an https or data:image URL"}
		}
	}
	return nil
}

func isImageURL(raw string) bool {
	return strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "data:image/")
}

func loadRunner() turnRunner {
	return turns
}
