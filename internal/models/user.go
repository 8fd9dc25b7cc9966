package models

import "time"

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account that can submit solutions.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;not null" json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:16;not null;default:user" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SolvedProblem is one entry of a user's solved set.
type SolvedProblem struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	ProblemID uint      `gorm:"primaryKey;autoIncrement:false" json:"problemId"`
	SolvedAt  time.Time `gorm:"not null" json:"solvedAt"`
	Problem   Problem   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}
