package models

// Group represents a set of users who share expenses. All balances and
// splits are scoped to a group; the same two users can hold independent
// debts in different groups.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string `json:"name"`

	// Description is an optional longer blurb about the group.
	Description string `json:"description,omitempty"`

	// JoinCode is the short uppercase code other users enter to join.
	// Unique across groups.
	JoinCode string `json:"join_code"`

	// CreatedBy is the user ID of the group's creator.
	CreatedBy string `json:"created_by"`

	// Members is the list of member user IDs, populated on detail reads.
	Members []string `json:"members,omitempty"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"created_at"`
}

// IsMember reports whether the given user belongs to the group. Members must
// be populated.
func (g *Group) IsMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}
