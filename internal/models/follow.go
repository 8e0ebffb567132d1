package models

import "time"

// Follow — направленное ребро подписки follower -> following.
// Для упорядоченной пары существует не более одного ребра.
type Follow struct {
	ID          string    `json:"id"`
	FollowerID  string    `json:"followerId"`
	FollowingID string    `json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
}
