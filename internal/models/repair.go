package models

// CounterRepair — результат пересчёта счётчиков подписок одного профиля.
type CounterRepair struct {
	UserID          string
	FollowersBefore int64
	FollowersAfter  int64
	FollowingBefore int64
	FollowingAfter  int64
}
