package model

import "time"

type PageModel struct {
	ID                string    `json:"id" bson:"_id"`
	Name              string    `json:"name" bson:"name"`
	Categories        []string  `json:"categories" bson:"categories"`
	AllowAppointments bool      `json:"allow_appointments" bson:"allow_appointments"`
	Profile           string    `json:"profile" bson:"profile"`
	OwnerID           string    `json:"ownerId" bson:"ownerId"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
}

// PageSummary is the switch-listing projection of a page. Pages are listed
// alongside profiles but are not switch targets.
type PageSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	AvatarPath string `json:"avatar_path"`
	OwnerID    string `json:"owner_id"`
}

func (p PageModel) ToSummary() PageSummary {
	return PageSummary{
		ID:         p.ID,
		Name:       p.Name,
		AvatarPath: p.Profile,
		OwnerID:    p.OwnerID,
	}
}
