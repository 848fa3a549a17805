package models

import "time"

// Mentee is the profile a registered user fills in to request a mentor.
// One profile per user.
type Mentee struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	FirstName   string    `gorm:"column:first_name;not null" json:"first_name"`
	LastName    string    `gorm:"column:last_name;not null" json:"last_name"`
	Phone       *string   `gorm:"column:phone" json:"phone,omitempty"`
	Email       string    `gorm:"column:email;not null" json:"email"`
	WorkProfile *string   `gorm:"column:work_profile" json:"work_profile,omitempty"`
	ProfilePic  *string   `gorm:"column:profile_pic" json:"profile_pic,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Mentee) TableName() string { return "mentees" }
