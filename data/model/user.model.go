package model

import (
	"strings"
	"time"
)

type UserModel struct {
	ID           string       `json:"id" bson:"_id"`
	FirstName    string       `json:"firstname" bson:"firstname"`
	LastName     string       `json:"lastname" bson:"lastname"`
	Email        string       `json:"email" bson:"email"`
	ImagePath    string       `json:"img_path" bson:"img_path"`
	PasswordHash string       `json:"-" bson:"password_hash"`
	ActiveStatus ActiveStatus `json:"active_status" bson:"active_status"`
	LastOnlineAt time.Time    `json:"last_online_at" bson:"last_online_at"`
	CreatedAt    time.Time    `json:"created_at" bson:"created_at"`
}

// DisplayName joins the name parts, skipping whichever is unset.
func (u UserModel) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// ProfileSummary is a read projection of a user record, used only to
// populate the switch-profile listing. Never written back.
type ProfileSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	AvatarPath string `json:"avatar_path"`
}

func (u UserModel) ToSummary() ProfileSummary {
	return ProfileSummary{
		ID:         u.ID,
		Name:       u.DisplayName(),
		Email:      u.Email,
		AvatarPath: u.ImagePath,
	}
}
