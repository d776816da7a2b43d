package models

import "time"

// IdempotencyKey caches the response of a completed mutating request so
// retries from mobile clients replay the original outcome instead of
// re-executing the operation.
type IdempotencyKey struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	Key          string    `json:"key" gorm:"uniqueIndex:idx_idem_key_route_user,priority:1;not null"`
	Route        string    `json:"route" gorm:"uniqueIndex:idx_idem_key_route_user,priority:2;not null"`
	UserID       string    `json:"user_id" gorm:"uniqueIndex:idx_idem_key_route_user,priority:3;not null"`
	ResponseBody []byte    `json:"response_body"`
	StatusCode   int       `json:"status_code"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}
