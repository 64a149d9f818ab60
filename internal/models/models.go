package models

import "time"

// User represents an account together with its friendship state.
//
// Friends, RequestsSent and RequestsInbox hold canonical user identifiers. They
// are sets: order carries no meaning and the relationships package keeps them
// sorted and free of duplicates.
type User struct {
	ID            string
	Username      string
	Password      string
	Friends       []string
	RequestsSent  []string
	RequestsInbox []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Clone returns a deep copy so callers can mutate the relation sets freely.
func (u User) Clone() User {
	out := u
	out.Friends = append([]string(nil), u.Friends...)
	out.RequestsSent = append([]string(nil), u.RequestsSent...)
	out.RequestsInbox = append([]string(nil), u.RequestsInbox...)
	return out
}

// Summary projects the user onto its public, display-relevant fields.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username}
}

// UserSummary is the identifier/username pair used when listing other users.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// SearchResult is a user matched by a username search, annotated with how the
// caller currently relates to them.
type SearchResult struct {
	UserSummary
	IsFriend        bool `json:"isFriend"`
	RequestSent     bool `json:"requestSent"`
	RequestReceived bool `json:"requestReceived"`
}

// Profile is the caller's own view of their account.
type Profile struct {
	ID            string        `json:"id"`
	Username      string        `json:"username"`
	Friends       []UserSummary `json:"friends"`
	RequestsSent  []string      `json:"requestsSent"`
	RequestsInbox []string      `json:"requestsInbox"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
