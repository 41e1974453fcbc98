package model

import "time"

type FavorStatus string

const (
	FavorStatusOpen      FavorStatus = "open"
	FavorStatusAccepted  FavorStatus = "accepted"
	FavorStatusCompleted FavorStatus = "completed"
	FavorStatusCanceled  FavorStatus = "canceled"
)

// Favor is the marketplace listing that anchors a chat room. Only the
// fields the chat subsystem needs live here; the full listing surface is
// owned by the marketplace collaborator.
type Favor struct {
	ID        uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string      `gorm:"size:120;not null" json:"title"`
	PosterUID string      `gorm:"column:poster_uid;size:128;index;not null" json:"posterUid"`
	HelperUID string      `gorm:"column:helper_uid;size:128;index" json:"helperUid"`
	Status    FavorStatus `gorm:"column:status;size:32;not null;default:open" json:"status"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Favor) TableName() string {
	return "favors"
}
