package model

import "time"

// ActiveStatus is the advisory online/offline fact kept on a user record.
type ActiveStatus string

const (
	ActiveStatusActive   ActiveStatus = "active"
	ActiveStatusInactive ActiveStatus = "inactive"
)

type PresenceModel struct {
	SubjectID    string       `json:"subject_id" bson:"subject_id"`
	ActiveStatus ActiveStatus `json:"active_status" bson:"active_status"`
	LastOnlineAt time.Time    `json:"last_online_at" bson:"last_online_at"`
}
