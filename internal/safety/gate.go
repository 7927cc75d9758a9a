package safety

import (
	"context"
	"strings"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
)

// Reason kinds for unsafe outcomes.
const (
	ReasonEmpty      = "empty"
	ReasonGibberish  = "gibberish"
	ReasonHarassment = "harassment"
	ReasonHate       = "hate"
	ReasonSexual     = "sexual"
	ReasonViolence   = "violence"
	ReasonOffensive  = "offensive"
)

// categoryPriority maps provider category prefixes to reasons; first match
// wins, in this order.
var categoryPriority = []struct {
	prefix string
	reason string
}{
	{prefix: "harassment", reason: ReasonHarassment},
	{prefix: "hate", reason: ReasonHate},
	{prefix: "sexual", reason: ReasonSexual},
	{prefix: "violence", reason: ReasonViolence},
}

type Result struct {
	Safe       bool   `json:"safe"`
	ReasonKind string `json:"reason_kind,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

type ModerationResult struct {
	Flagged    bool
	Categories []string
}

// ModerationClient is the external safety-classification capability.
type ModerationClient interface {
	ModerateContent(ctx context.Context, message string) (*ModerationResult, error)
}

type Gate struct {
	log *logger.Logger
	mod ModerationClient
}

func NewGate(log *logger.Logger, mod ModerationClient) *Gate {
	return &Gate{log: log.With("service", "SafetyGate"), mod: mod}
}

// Evaluate decides whether a message triggers an instant loss. The gate never
// mutates round state; the caller acts on an unsafe result. Moderation
// provider failures fail open: the conversation is never blocked on an
// upstream outage.
func (g *Gate) Evaluate(ctx context.Context, message string) Result {
	if strings.TrimSpace(message) == "" {
		return Result{Safe: false, ReasonKind: ReasonEmpty, Detail: "empty message"}
	}

	if isGibberish(message) {
		return Result{Safe: false, ReasonKind: ReasonGibberish, Detail: "message looks like keyboard mashing"}
	}

	if g.mod == nil {
		return Result{Safe: true}
	}

	modRes, err := g.mod.ModerateContent(ctx, message)
	if err != nil {
		g.log.Warn("moderation call failed, failing open", "error", err)
		return Result{Safe: true}
	}
	if modRes == nil || !modRes.Flagged {
		return Result{Safe: true}
	}

	reason := moderationReason(modRes.Categories)
	return Result{Safe: false, ReasonKind: reason, Detail: strings.Join(modRes.Categories, ",")}
}

func moderationReason(categories []string) string {
	for _, cp := range categoryPriority {
		for _, cat := range categories {
			if strings.HasPrefix(strings.ToLower(cat), cp.prefix) {
				return cp.reason
			}
		}
	}
	return ReasonOffensive
}
