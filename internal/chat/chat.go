// Package chat drives the two-phase tool-calling conversation protocol.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/placechat/placechat/internal/llm"
	"github.com/placechat/placechat/internal/session"
	"github.com/placechat/placechat/internal/telemetry"
)

const (
	historyWindow       = 12
	firstPhaseMaxTokens = 800
	finalPhaseMaxTokens = 900
	chatTemperature     = 0.2

	// A rate-limit hint above this ceiling is treated as terminal
	// instead of waited on.
	maxRetryAfterWait = 15 * time.Second
)

// ErrBlankMessage rejects a chat request whose message is empty after
// trimming.
var ErrBlankMessage = errors.New("message is required")

// ToolCallStatus is one caller-visible tool-call state transition.
type ToolCallStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"` // running, done, error
	Detail string `json:"detail,omitempty"`
}

// Reply is the outcome of one chat turn.
type Reply struct {
	SessionID        string           `json:"sessionId"`
	AssistantMessage string           `json:"assistantMessage"`
	MemorySummary    string           `json:"memorySummary"`
	ToolCalls        []ToolCallStatus `json:"toolCalls"`
}

// Orchestrator owns the conversation flow: context assembly, the two
// completion phases, tool dispatch, and all degradation paths.
type Orchestrator struct {
	client   llm.Client
	model    string
	router   *Router
	sessions *session.Store
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	// sleep is the backoff delay; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates a chat orchestrator.
func NewOrchestrator(client llm.Client, model string, router *Router, sessions *session.Store, metrics *telemetry.Metrics, logger *slog.Logger) *Orchestrator {
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:   client,
		model:    model,
		router:   router,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Converse runs one chat turn. It never returns an error for upstream
// failures: every degradation path still yields assistant-visible text.
// The only error is ErrBlankMessage for an empty user message.
func (o *Orchestrator) Converse(ctx context.Context, sessionID, message string, autoRun bool) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrBlankMessage
	}

	start := time.Now()
	sess := o.sessions.GetOrCreate(sessionID)
	logger := telemetry.RequestLogger(o.logger, ctx).With("session", sess.ID)

	messages := o.buildContext(sess, message)

	firstReq := llm.ChatRequest{
		Model:       o.model,
		Messages:    messages,
		System:      buildSystemPrompt(autoRun) + "\n\n" + sess.MemorySummary(),
		MaxTokens:   firstPhaseMaxTokens,
		Temperature: temperaturePtr(),
	}
	if autoRun {
		firstReq.Tools = []llm.ToolDefinition{searchToolDefinition()}
	}

	first, err := o.complete(ctx, firstReq)
	if err != nil {
		logger.Warn("first completion failed", "error", err)
		return o.finish(sess, message, degradedText(err), nil, start, "degraded"), nil
	}

	if !autoRun || len(first.ToolCalls) == 0 {
		text := strings.TrimSpace(first.Content)
		if text == "" {
			text = emptyReplyText
		}
		return o.finish(sess, message, text, nil, start, "ok"), nil
	}

	// Tool phase: replay the assistant's tool-call turn, then execute
	// each requested call in order and ground the second completion on
	// the results.
	messages = append(messages, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   first.Content,
		ToolCalls: first.ToolCalls,
	})

	var (
		statuses    []ToolCallStatus
		lastSummary *Summary
	)

	for _, call := range first.ToolCalls {
		statuses = append(statuses, ToolCallStatus{
			Name:   call.Name,
			Status: "running",
			Detail: describeArgs(call.Input),
		})

		summary, dispatchErr := o.router.Dispatch(ctx, call, sess)
		if dispatchErr != nil {
			logger.Warn("tool call failed", "tool", call.Name, "error", dispatchErr)
			o.metrics.RecordToolCall(call.Name, "error")
			statuses = append(statuses, ToolCallStatus{
				Name:   call.Name,
				Status: "error",
				Detail: dispatchErr.Error(),
			})
			messages = append(messages, toolResultMessage(call.ID, map[string]string{
				"error": dispatchErr.Error(),
			}))
			continue
		}

		lastSummary = summary
		o.metrics.RecordToolCall(call.Name, "done")
		statuses = append(statuses, ToolCallStatus{
			Name:   call.Name,
			Status: "done",
			Detail: fmt.Sprintf("%d results", summary.TotalCount),
		})
		messages = append(messages, toolResultMessage(call.ID, summary))
	}

	secondReq := llm.ChatRequest{
		Model:       o.model,
		Messages:    messages,
		System:      buildSystemPrompt(autoRun) + "\n\n" + sess.MemorySummary(),
		MaxTokens:   finalPhaseMaxTokens,
		Temperature: temperaturePtr(),
	}

	final := ""
	second, err := o.complete(ctx, secondReq)
	if err != nil {
		logger.Warn("second completion failed", "error", err)
	} else {
		final = strings.TrimSpace(second.Content)
	}

	if final == "" {
		final = synthesizeFallback(lastSummary)
	}

	return o.finish(sess, message, final, statuses, start, "ok"), nil
}

// complete issues one completion call with the bounded rate-limit
// retry: a usable wait hint is honored exactly once.
func (o *Orchestrator) complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := o.client.Chat(ctx, req)
	if err == nil {
		return resp, nil
	}

	var rle *llm.RateLimitError
	if !errors.As(err, &rle) {
		return nil, err
	}
	if rle.RetryAfter <= 0 || rle.RetryAfter > maxRetryAfterWait {
		return nil, err
	}

	o.metrics.RecordCompletionRetry()
	if serr := o.sleep(ctx, rle.RetryAfter); serr != nil {
		return nil, serr
	}
	return o.client.Chat(ctx, req)
}

func (o *Orchestrator) buildContext(sess *session.Session, message string) []llm.Message {
	recent := sess.RecentHistory(historyWindow)
	messages := make([]llm.Message, 0, len(recent)+1)
	for _, m := range recent {
		role := llm.RoleUser
		if m.Role == "assistant" {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: message})
}

func (o *Orchestrator) finish(sess *session.Session, userText, assistantText string, statuses []ToolCallStatus, start time.Time, outcome string) *Reply {
	sess.AppendTurn(userText, assistantText)
	o.metrics.RecordChatTurn(outcome, time.Since(start))

	if statuses == nil {
		statuses = []ToolCallStatus{}
	}
	return &Reply{
		SessionID:        sess.ID,
		AssistantMessage: assistantText,
		MemorySummary:    sess.MemorySummary(),
		ToolCalls:        statuses,
	}
}

// synthesizeFallback builds a deterministic answer from the captured
// tool summary when the final completion produced nothing.
func synthesizeFallback(summary *Summary) string {
	if summary == nil {
		return incompleteReplyText
	}
	if summary.TotalCount == 0 {
		return fmt.Sprintf("Mình không tìm thấy địa điểm nào ở %s. Bạn thử đổi khu vực hoặc từ khoá nhé.", summary.Area)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Mình tìm thấy %d địa điểm ở %s:\n", summary.TotalCount, summary.Area)
	for i, p := range summary.Places {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "%d. %s", i+1, p.Name)
		if p.Rating != nil {
			fmt.Fprintf(&b, " (%.1f★, %d đánh giá)", *p.Rating, p.UserRatingsTotal)
		}
		fmt.Fprintf(&b, " — %s\n", p.Address)
	}
	return strings.TrimRight(b.String(), "\n")
}

func degradedText(err error) string {
	var rle *llm.RateLimitError
	if errors.As(err, &rle) {
		return rateLimitedReplyText
	}
	return connectivityReplyText
}

func describeArgs(input map[string]interface{}) string {
	area, _ := input["area"].(string)
	keyword, _ := input["keyword"].(string)
	detail := "area=" + strings.TrimSpace(area)
	if k := strings.TrimSpace(keyword); k != "" {
		detail += ", keyword=" + k
	}
	return detail
}

func toolResultMessage(callID string, payload interface{}) llm.Message {
	content, err := json.Marshal(payload)
	if err != nil {
		content = []byte(`{"error":"failed to encode tool result"}`)
	}
	return llm.Message{
		Role: llm.RoleUser,
		ToolResult: &llm.ToolResult{
			ToolUseID: callID,
			Content:   string(content),
		},
	}
}

func temperaturePtr() *float64 {
	t := chatTemperature
	return &t
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
