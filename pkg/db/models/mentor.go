package models

import "time"

// Mentor is a mentoring volunteer managed by admins.
type Mentor struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FirstName   string    `gorm:"column:first_name;not null" json:"first_name"`
	LastName    string    `gorm:"column:last_name;not null" json:"last_name"`
	Phone       *string   `gorm:"column:phone" json:"phone,omitempty"`
	Email       string    `gorm:"column:email;not null" json:"email"`
	WorkProfile *string   `gorm:"column:work_profile" json:"work_profile,omitempty"`
	Bio         *string   `gorm:"column:bio" json:"bio,omitempty"`
	ProfilePic  *string   `gorm:"column:profile_pic" json:"profile_pic,omitempty"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Mentor) TableName() string { return "mentors" }
