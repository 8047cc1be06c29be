package models

import "time"

// User is the weakly referenced actor of task actions
type User struct {
	ID        int64     `json:"user_id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}
