package chat

// Profile is the public summary of a participant as provided by the user
// directory. It is attached to conversation listings and sent messages so
// clients can render them without a second lookup.
type Profile struct {
	UserID      string `db:"user_id" json:"userId"`
	DisplayName string `db:"display_name" json:"displayName"`
	AvatarURL   string `db:"avatar_url" json:"avatarUrl,omitempty"`
}

// UnknownProfile is used when the directory has no entry for a user.
func UnknownProfile(userID string) Profile {
	return Profile{UserID: userID, DisplayName: "Unknown user"}
}
