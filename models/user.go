package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
)

// RevokedTokenPrefix keys logged-out tokens in redis until they expire.
const RevokedTokenPrefix = "RevokedToken:"

var ErrInvalidCredentials = errors.New("invalid username or password")

// User logs in and owns the catalogue; every owned row carries the user's
// id as owner_id.
type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     *string   `gorm:"size:100;unique" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	IsActive  *bool     `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewUser struct {
	Username string  `json:"username" binding:"required,max=100"`
	Name     string  `json:"name" binding:"required,max=100"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password string  `json:"password" binding:"required,min=8"`
}

type LoginInfo struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

func (input *NewUser) validate(ctx context.Context) error {
	verr := &ValidationError{}
	username := strings.TrimSpace(input.Username)
	if username == "" {
		verr.Add("username", "is required")
	} else if err := utils.ValidateUnique[User](ctx, 0, "username", username, nil); err != nil {
		verr.Add("username", "is already taken")
	}
	if strings.TrimSpace(input.Name) == "" {
		verr.Add("name", "is required")
	}
	if len(input.Password) < 8 {
		verr.Add("password", "must be at least 8 characters")
	}
	if input.Email != nil && *input.Email != "" && !validEmail(*input.Email) {
		verr.Add("email", "must be a valid email address")
	}
	return verr.Err()
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := User{
		Username: strings.TrimSpace(input.Username),
		Name:     strings.TrimSpace(input.Name),
		Email:    input.Email,
		Password: string(hashed),
		IsActive: utils.NewTrue(),
	}
	if user.Email != nil && *user.Email == "" {
		user.Email = nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetUserPassword replaces the password of username; used by the admin CLI.
func SetUserPassword(ctx context.Context, username string, password string) (*User, error) {
	if len(password) < 8 {
		return nil, fieldError("password", "must be at least 8 characters")
	}
	var user User
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user.Password = string(hashed)
	if err := db.WithContext(ctx).Model(&user).Update("password", user.Password).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.IsActive != nil && !*user.IsActive {
		return nil, errors.New("user is disabled")
	}

	token, expiresAt, err := utils.JwtGenerate(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &LoginInfo{Token: token, ExpiresAt: expiresAt, User: &user}, nil
}

// Logout revokes the request's token until it would have expired. Without
// redis tokens stay valid until expiry.
func Logout(ctx context.Context, expiresAt time.Time) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, utils.ErrorUnauthorized
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return true, nil
	}
	if err := config.SetRedisValue(ctx, RevokedTokenPrefix+token, "1", ttl); err != nil {
		return false, err
	}
	return true, nil
}

// IsTokenRevoked reports whether Logout revoked token.
func IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	_, found, err := config.GetRedisValue(ctx, RevokedTokenPrefix+token)
	return found, err
}

func GetUser(ctx context.Context, id int) (*User, error) {
	var user User
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}

// GetActiveUserIds lists the owners background jobs iterate over.
func GetActiveUserIds(ctx context.Context) ([]int, error) {
	var ids []int
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&User{}).Where("is_active = ?", true).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
