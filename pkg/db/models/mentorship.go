package models

import "time"

// Mentorship pairs one mentor with one mentee. The unique indexes enforce
// the one-to-one pairing rule at the store level.
type Mentorship struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	MentorID  uint      `gorm:"column:mentor_id;not null;uniqueIndex" json:"mentor_id"`
	Mentor    *Mentor   `gorm:"foreignKey:MentorID;constraint:OnDelete:CASCADE" json:"-"`
	MenteeID  uint      `gorm:"column:mentee_id;not null;uniqueIndex" json:"mentee_id"`
	Mentee    *Mentee   `gorm:"foreignKey:MenteeID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Mentorship) TableName() string { return "mentorships" }
