// Package presence tracks which users hold live connections. State lives
// only in the ephemeral store: a per-user connection counter plus a status
// record, both under TTL so a crashed node cannot leave users online forever.
package presence

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"marketplace-chat/internal/infrastructure/cache/port"
)

type Status string

const (
	StatusOnline  Status = "ONLINE"
	StatusAway    Status = "AWAY"
	StatusOffline Status = "OFFLINE"
)

const (
	OnlineWindow = 60 * time.Second
	AwayWindow   = 5 * time.Minute
)

const (
	countPrefix  = "presence:count:"
	statusPrefix = "presence:status:"
)

// Record is a user's presence as seen by clients. OFFLINE records are
// synthesized from key absence and never stored.
type Record struct {
	UserID          string    `json:"userId"`
	Status          Status    `json:"status"`
	LastSeen        time.Time `json:"lastSeen"`
	ConnectionCount int64     `json:"connectionCount"`
}

type storedStatus struct {
	Status   Status    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}

var ErrNoUser = errors.New("presence: user id is empty")

type Tracker struct {
	store port.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewTracker(store port.Store, log logrus.FieldLogger) *Tracker {
	return &Tracker{store: store, log: log, now: time.Now}
}

func countKey(userID string) string  { return countPrefix + userID }
func statusKey(userID string) string { return statusPrefix + userID }

func (t *Tracker) writeStatus(ctx context.Context, userID string, s Status, ttl time.Duration) error {
	b, err := json.Marshal(storedStatus{Status: s, LastSeen: t.now().UTC()})
	if err != nil {
		return err
	}
	return t.store.Set(ctx, statusKey(userID), string(b), ttl)
}

// SetOnline registers one more live connection for userID and returns the
// new connection count.
func (t *Tracker) SetOnline(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, ErrNoUser
	}
	n, err := t.store.IncrWithTTL(ctx, countKey(userID), OnlineWindow)
	if err != nil {
		return 0, err
	}
	if err := t.writeStatus(ctx, userID, StatusOnline, OnlineWindow); err != nil {
		return n, err
	}
	return n, nil
}

// SetOffline drops one connection and returns how many remain. At zero the
// whole record is deleted.
func (t *Tracker) SetOffline(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, ErrNoUser
	}
	n, err := t.store.DecrOrDelete(ctx, countKey(userID), OnlineWindow, statusKey(userID))
	if err != nil {
		return 0, err
	}
	if n == 0 {
		t.log.WithFields(logrus.Fields{"function": "SetOffline", "user_id": userID}).Debug("last connection closed")
	}
	return n, nil
}

// Heartbeat extends the record's TTL without touching status or count. It
// reports false when the user has no record; heartbeats never resurrect one.
func (t *Tracker) Heartbeat(ctx context.Context, userID string) (bool, error) {
	rec, ok, err := t.Get(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	ttl := OnlineWindow
	if rec.Status == StatusAway {
		ttl = AwayWindow
	}
	alive, err := t.store.Expire(ctx, countKey(userID), ttl)
	if err != nil || !alive {
		return false, err
	}
	if _, err := t.store.Expire(ctx, statusKey(userID), ttl); err != nil {
		return false, err
	}
	return true, nil
}

// Restore recreates a lapsed record for a user who still holds n live
// connections, so later SetOffline calls count down to zero exactly. It is a
// no-op on the count when another connection already restored it. Returns
// the count in effect.
func (t *Tracker) Restore(ctx context.Context, userID string, n int64) (int64, error) {
	if userID == "" {
		return 0, ErrNoUser
	}
	if n < 1 {
		n = 1
	}
	created, err := t.store.SetNX(ctx, countKey(userID), strconv.FormatInt(n, 10), OnlineWindow)
	if err != nil {
		return 0, err
	}
	if !created {
		if _, err := t.Heartbeat(ctx, userID); err != nil {
			return 0, err
		}
		rec, _, err := t.Get(ctx, userID)
		return rec.ConnectionCount, err
	}
	if err := t.writeStatus(ctx, userID, StatusOnline, OnlineWindow); err != nil {
		return n, err
	}
	return n, nil
}

// SetAway marks a connected user AWAY, keeping the count under the longer
// away window. It reports false when the user is not connected.
func (t *Tracker) SetAway(ctx context.Context, userID string) (bool, error) {
	alive, err := t.store.Expire(ctx, countKey(userID), AwayWindow)
	if err != nil || !alive {
		return false, err
	}
	if err := t.writeStatus(ctx, userID, StatusAway, AwayWindow); err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the user's record; ok is false (and Status OFFLINE) when the
// user has no live connection.
func (t *Tracker) Get(ctx context.Context, userID string) (Record, bool, error) {
	recs, err := t.BulkPresence(ctx, []string{userID})
	if err != nil {
		return Record{UserID: userID, Status: StatusOffline}, false, err
	}
	rec := recs[userID]
	return rec, rec.Status != StatusOffline, nil
}

// BulkPresence resolves many users in a single MGET round trip. Every
// requested id is present in the result.
func (t *Tracker) BulkPresence(ctx context.Context, userIDs []string) (map[string]Record, error) {
	out := make(map[string]Record, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	keys := make([]string, 0, 2*len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, countKey(id), statusKey(id))
	}
	vals, err := t.store.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	for _, id := range userIDs {
		rec := Record{UserID: id, Status: StatusOffline}
		raw, hasStatus := vals[statusKey(id)]
		count, _ := strconv.ParseInt(vals[countKey(id)], 10, 64)
		if hasStatus && count > 0 {
			var s storedStatus
			if err := json.Unmarshal([]byte(raw), &s); err != nil {
				t.log.WithFields(logrus.Fields{"function": "BulkPresence", "user_id": id}).WithError(err).Warn("corrupt presence record")
			} else {
				rec.Status = s.Status
				rec.LastSeen = s.LastSeen
				rec.ConnectionCount = count
			}
		}
		out[id] = rec
	}
	return out, nil
}

// OnlineCount counts users with a live record. It scans the keyspace and
// is meant for admin dashboards only.
func (t *Tracker) OnlineCount(ctx context.Context) (int, error) {
	keys, err := t.store.Scan(ctx, countPrefix+"*")
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// IsOnline is the notification-suppression check: true only for ONLINE.
func (t *Tracker) IsOnline(ctx context.Context, userID string) (bool, error) {
	rec, ok, err := t.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return ok && rec.Status == StatusOnline, nil
}
