package model

import "time"

// User is the persisted account record. PasswordHash and RefreshToken never
// leave the process: use Public before handing a user to a caller.
type User struct {
	ID           string        `json:"-"`
	Username     string        `json:"-"`
	Email        string        `json:"-"`
	FullName     string        `json:"-"`
	PasswordHash string        `json:"-"`
	RefreshToken string        `json:"-"`
	Avatar       string        `json:"-"`
	CoverImage   string        `json:"-"`
	WatchHistory []WatchedItem `json:"-"`
	CreatedAt    time.Time     `json:"-"`
	UpdatedAt    time.Time     `json:"-"`
}

// PublicUser is the sanitized projection of User.
type PublicUser struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	FullName     string        `json:"fullName"`
	Avatar       string        `json:"avatar"`
	CoverImage   string        `json:"coverImage"`
	WatchHistory []WatchedItem `json:"watchHistory"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func (u User) Public() PublicUser {
	history := u.WatchHistory
	if history == nil {
		history = []WatchedItem{}
	}

	return PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Avatar:       u.Avatar,
		CoverImage:   u.CoverImage,
		WatchHistory: history,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// ChannelProfile is what other users may see about an account.
type ChannelProfile struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"fullName"`
	Avatar     string `json:"avatar"`
	CoverImage string `json:"coverImage"`
}

type WatchedItem struct {
	ItemID    string    `json:"itemId"`
	WatchedAt time.Time `json:"watchedAt"`
}

// UserField names a column that can be cleared with UnsetField.
type UserField string

const (
	FieldRefreshToken UserField = "refresh_token"
	FieldAvatar       UserField = "avatar"
	FieldCoverImage   UserField = "cover_image"
)

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	FullName     *string
	Email        *string
	PasswordHash *string
	RefreshToken *string
	Avatar       *string
	CoverImage   *string
}

func (u UserUpdate) IsEmpty() bool {
	return u.FullName == nil && u.Email == nil && u.PasswordHash == nil &&
		u.RefreshToken == nil && u.Avatar == nil && u.CoverImage == nil
}

type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

type AuthClaims struct {
	UserID    string
	Type      TokenKind
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type LoginResult struct {
	User         PublicUser `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
}
