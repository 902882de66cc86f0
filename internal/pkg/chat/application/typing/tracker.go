// Package typing keeps short-lived "is typing" markers per conversation.
package typing

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"marketplace-chat/internal/infrastructure/cache/port"
)

// Window is how long a marker survives without a refresh.
const Window = 10 * time.Second

// Markers live at typing:m:{conversation}:{user}. Two index sets, one per
// conversation and one per user, let ActiveTypers and ClearForUser avoid
// keyspace scans; entries whose marker expired are pruned lazily.
func markerKey(conversationID, userID string) string {
	return "typing:m:" + conversationID + ":" + userID
}
func conversationKey(conversationID string) string { return "typing:c:" + conversationID }
func userKey(userID string) string                 { return "typing:u:" + userID }

type Tracker struct {
	store port.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewTracker(store port.Store, log logrus.FieldLogger) *Tracker {
	return &Tracker{store: store, log: log, now: time.Now}
}

// StartTyping sets or refreshes the marker for userID in conversationID.
func (t *Tracker) StartTyping(ctx context.Context, conversationID, userID string) error {
	started := t.now().UTC().Format(time.RFC3339Nano)
	if err := t.store.Set(ctx, markerKey(conversationID, userID), started, Window); err != nil {
		return err
	}
	return t.index(ctx, conversationID, userID)
}

func (t *Tracker) index(ctx context.Context, conversationID, userID string) error {
	if err := t.store.SAdd(ctx, conversationKey(conversationID), Window, userID); err != nil {
		return err
	}
	return t.store.SAdd(ctx, userKey(userID), Window, conversationID)
}

// StopTyping removes the marker. It reports whether one existed.
func (t *Tracker) StopTyping(ctx context.Context, conversationID, userID string) (bool, error) {
	n, err := t.store.Del(ctx, markerKey(conversationID, userID))
	if err != nil {
		return false, err
	}
	if err := t.store.SRem(ctx, conversationKey(conversationID), userID); err != nil {
		return n > 0, err
	}
	if err := t.store.SRem(ctx, userKey(userID), conversationID); err != nil {
		return n > 0, err
	}
	return n > 0, nil
}

// ExtendTyping refreshes an existing marker. An expired marker stays
// expired: it reports false and creates nothing.
func (t *Tracker) ExtendTyping(ctx context.Context, conversationID, userID string) (bool, error) {
	ok, err := t.store.Expire(ctx, markerKey(conversationID, userID), Window)
	if err != nil || !ok {
		return false, err
	}
	return true, t.index(ctx, conversationID, userID)
}

// ActiveTypers lists users with an unexpired marker in conversationID.
func (t *Tracker) ActiveTypers(ctx context.Context, conversationID string) ([]string, error) {
	members, err := t.store.SMembers(ctx, conversationKey(conversationID))
	if err != nil || len(members) == 0 {
		return nil, err
	}
	keys := make([]string, len(members))
	for i, uid := range members {
		keys[i] = markerKey(conversationID, uid)
	}
	live, err := t.store.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	var active, stale []string
	for i, uid := range members {
		if _, ok := live[keys[i]]; ok {
			active = append(active, uid)
		} else {
			stale = append(stale, uid)
		}
	}
	if len(stale) > 0 {
		if err := t.store.SRem(ctx, conversationKey(conversationID), stale...); err != nil {
			t.log.WithFields(logrus.Fields{"function": "ActiveTypers", "conversation_id": conversationID}).WithError(err).Warn("prune stale typers")
		}
	}
	sort.Strings(active)
	return active, nil
}

// ClearForUser drops every marker held by userID and returns the
// conversations it was typing in.
func (t *Tracker) ClearForUser(ctx context.Context, userID string) ([]string, error) {
	convs, err := t.store.SMembers(ctx, userKey(userID))
	if err != nil || len(convs) == 0 {
		return nil, err
	}
	keys := make([]string, 0, len(convs)+1)
	for _, cid := range convs {
		keys = append(keys, markerKey(cid, userID))
	}
	keys = append(keys, userKey(userID))
	if _, err := t.store.Del(ctx, keys...); err != nil {
		return nil, err
	}
	for _, cid := range convs {
		if err := t.store.SRem(ctx, conversationKey(cid), userID); err != nil {
			t.log.WithFields(logrus.Fields{"function": "ClearForUser", "conversation_id": cid, "user_id": userID}).WithError(err).Warn("unindex typer")
		}
	}
	sort.Strings(convs)
	return convs, nil
}
