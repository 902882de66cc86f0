package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	users "marketplace-chat/internal/repository/port"
)

// resolveProfiles never fails: directory outages degrade to placeholder
// profiles rather than failing chat operations.
func resolveProfiles(ctx context.Context, dir users.UserDirectory, log logrus.FieldLogger, ids ...string) map[string]chat.Profile {
	out := make(map[string]chat.Profile, len(ids))
	var found map[string]chat.Profile
	if dir != nil && len(ids) > 0 {
		var err error
		found, err = dir.Profiles(ctx, ids...)
		if err != nil {
			log.WithFields(logrus.Fields{"function": "resolveProfiles"}).WithError(err).Warn("user directory lookup failed")
		}
	}
	for _, id := range ids {
		if p, ok := found[id]; ok {
			out[id] = p
		} else {
			out[id] = chat.UnknownProfile(id)
		}
	}
	return out
}
