package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/placechat/placechat/internal/llm"
	"github.com/placechat/placechat/internal/search"
	"github.com/placechat/placechat/internal/session"
)

// toolKind is a closed set of the tools this assistant supports.
// Routing on the kind instead of the raw provider name keeps the
// supported set checked at compile time.
type toolKind int

const (
	toolUnknown toolKind = iota
	toolSearchPlaces
)

const searchToolName = "search_places"

func parseToolKind(name string) toolKind {
	if strings.EqualFold(name, searchToolName) {
		return toolSearchPlaces
	}
	return toolUnknown
}

// searchToolDefinition is the single function exposed to the completion
// service.
func searchToolDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        searchToolName,
		Description: "Tìm địa điểm theo khu vực (area) và từ khoá (keyword).",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"area": map[string]interface{}{
					"type":        "string",
					"description": "Khu vực tìm kiếm, ví dụ: \"Quận 1\", \"Đà Lạt\", \"Thủ Đức\".",
				},
				"keyword": map[string]interface{}{
					"type":        "string",
					"description": "Từ khoá tuỳ chọn, ví dụ: \"bệnh viện\", \"cafe làm việc\", \"khách sạn 4 sao\".",
				},
			},
			"required": []string{"area"},
		},
	}
}

const (
	maxSummaryPlaces  = 10
	maxSummaryAddress = 120
)

// Summary is the compact projection of a search result fed back into
// the conversation. It must stay small: the whole payload re-enters the
// completion context.
type Summary struct {
	Area       string         `json:"area"`
	Keyword    string         `json:"keyword,omitempty"`
	TotalCount int            `json:"totalCount"`
	Places     []SummaryPlace `json:"places"`
}

// SummaryPlace is one truncated entry of a Summary.
type SummaryPlace struct {
	Name             string   `json:"name"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal int      `json:"userRatingsTotal"`
	Address          string   `json:"address"`
	MapsURL          string   `json:"googleMapsUrl,omitempty"`
}

// Searcher runs a place search. Satisfied by search.Orchestrator.
type Searcher interface {
	Run(ctx context.Context, q search.Query) (*search.Result, error)
}

// ToolError is a per-call failure surfaced as an error status on the
// conversation; it never aborts the chat turn.
type ToolError struct {
	Reason string
}

func (e *ToolError) Error() string { return e.Reason }

// Router validates and executes tool calls issued by the completion
// service.
type Router struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewRouter creates a tool router over the given searcher.
func NewRouter(searcher Searcher, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{searcher: searcher, logger: logger}
}

// Dispatch executes one tool call against the searcher and projects the
// result for the completion context. The resolved area/keyword are
// recorded on the session as "last used" context whenever argument
// parsing succeeds, regardless of the search outcome.
func (r *Router) Dispatch(ctx context.Context, call llm.ToolCall, sess *session.Session) (*Summary, error) {
	if parseToolKind(call.Name) != toolSearchPlaces {
		return nil, &ToolError{Reason: "unsupported tool"}
	}

	area, keyword, err := parseSearchArgs(call.Input)
	if err != nil {
		return nil, err
	}

	sess.SetLastSearch(area, keyword)

	result, err := r.searcher.Run(ctx, search.Query{Area: area, Keyword: keyword})
	if err != nil {
		r.logger.Error("tool execution failed", "tool", call.Name, "error", err)
		return nil, &ToolError{Reason: "tool execution failed: " + err.Error()}
	}
	if ctx.Err() != nil {
		return nil, &ToolError{Reason: "tool execution canceled"}
	}

	return summarize(result), nil
}

func parseSearchArgs(input map[string]interface{}) (area, keyword string, err error) {
	area, _ = input["area"].(string)
	area = strings.TrimSpace(area)
	if area == "" {
		return "", "", &ToolError{Reason: fmt.Sprintf("tool %s requires 'area'", searchToolName)}
	}

	keyword, _ = input["keyword"].(string)
	keyword = strings.TrimSpace(keyword)
	return area, keyword, nil
}

func summarize(result *search.Result) *Summary {
	s := &Summary{
		Area:       result.Area,
		Keyword:    result.Keyword,
		TotalCount: result.TotalCount,
		Places:     []SummaryPlace{},
	}

	for _, p := range result.Places {
		if len(s.Places) >= maxSummaryPlaces {
			break
		}
		sp := SummaryPlace{
			Name:             p.Name,
			Rating:           p.Rating,
			UserRatingsTotal: p.UserRatingsTotal,
			Address:          truncate(p.Address, maxSummaryAddress),
		}
		if p.PlaceID != "" {
			sp.MapsURL = "https://www.google.com/maps/place/?q=place_id:" + p.PlaceID
		}
		s.Places = append(s.Places, sp)
	}

	return s
}

// truncate caps s at max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
