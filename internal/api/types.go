package api

import "time"

// UserProfile is the authenticated user's public identity.
type UserProfile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Notification is a single feed entry. Everything except Read is
// immutable once created.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	UserID    string    `json:"userId,omitempty"`
	PostID    string    `json:"postId,omitempty"`
	CommentID string    `json:"commentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NotificationPage is the result of listing notifications.
type NotificationPage struct {
	Items      []Notification `json:"notifications"`
	Pagination Pagination     `json:"pagination"`
}

// TokenPair carries the bearer credentials issued by the server.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	User         *UserProfile `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// RegisterPayload is the account-creation request body.
type RegisterPayload struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}
