package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Action names an independently limited operation.
type Action string

const (
	ActionSendMessage        Action = "send_message"
	ActionCreateConversation Action = "create_conversation"
	ActionSearch             Action = "search"
)

// Rule is a quota over a rolling window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Prune the window, then record the attempt only when it fits.
// Returns {allowed, used, oldestScore}.
var slidingWindow = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
local used = redis.call('ZCARD', KEYS[1])
if used >= tonumber(ARGV[3]) then
	local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
	return {0, used, oldest[2] or ARGV[2]}
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {1, used + 1, ARGV[2]}
`)

// Limiter enforces per-user rolling windows using one sorted set per
// (action, user): members are individual attempts scored by their time in
// microseconds.
type Limiter struct {
	client *redis.Client
	rules  map[Action]Rule
	now    func() time.Time
}

func NewLimiter(client *redis.Client, rules map[Action]Rule) *Limiter {
	return &Limiter{client: client, rules: rules, now: time.Now}
}

// HourlyRules builds the rule set for the three limited actions.
func HourlyRules(messages, conversations, searches int) map[Action]Rule {
	return map[Action]Rule{
		ActionSendMessage:        {Limit: messages, Window: time.Hour},
		ActionCreateConversation: {Limit: conversations, Window: time.Hour},
		ActionSearch:             {Limit: searches, Window: time.Hour},
	}
}

func key(action Action, userID string) string {
	return fmt.Sprintf("ratelimit:%s:%s", action, userID)
}

// Allow records an attempt and reports whether it fits in the window.
// Rejected attempts are not recorded, so hammering a full window does not
// extend it. Actions without a rule are always allowed.
func (l *Limiter) Allow(ctx context.Context, action Action, userID string) (Decision, error) {
	rule, ok := l.rules[action]
	if !ok || rule.Limit <= 0 {
		return Decision{Allowed: true, Remaining: -1}, nil
	}

	now := l.now().UnixMicro()
	windowStart := now - rule.Window.Microseconds()

	res, err := slidingWindow.Run(ctx, l.client, []string{key(action, userID)},
		windowStart, now, rule.Limit, uuid.NewString(), rule.Window.Milliseconds(),
	).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}

	allowed, _ := res[0].(int64)
	used, _ := res[1].(int64)
	if allowed == 1 {
		return Decision{Allowed: true, Remaining: rule.Limit - int(used)}, nil
	}

	oldest, err := strconv.ParseFloat(fmt.Sprint(res[2]), 64)
	if err != nil {
		oldest = float64(now)
	}
	retry := time.Duration(int64(oldest)+rule.Window.Microseconds()-now) * time.Microsecond
	if retry < 0 {
		retry = 0
	}
	return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
}
