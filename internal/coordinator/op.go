package coordinator

import (
	"context"
	"sync"
)

// Kind — тип взаимодействия.
type Kind string

const (
	KindVideoLike   Kind = "video_like"
	KindCommentAdd  Kind = "comment_add"
	KindCommentLike Kind = "comment_like"
	KindFollow      Kind = "follow"
)

// State — состояние отложенной мутации: Optimistic -> {Reconciled | RolledBack}.
// Idle — мутация ещё не применена локально.
type State int

const (
	StateIdle State = iota
	StateOptimistic
	StateReconciled
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOptimistic:
		return "optimistic"
	case StateReconciled:
		return "reconciled"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// LikeState — локальное состояние лайка (видео или комментария).
type LikeState struct {
	Liked bool
	Likes int64
}

// FollowState — локальное состояние подписки на пользователя.
// Followers учитывается только при HasProfile.
type FollowState struct {
	Following  bool
	Followers  int64
	HasProfile bool
}

// Op — запись об отложенной мутации.
//   - Before — локальное состояние до оптимистичного применения (nil для нового комментария);
//   - After — оптимистичное состояние (для комментария — временный models.Comment).
//
// Терминальное состояние наступает ровно один раз; повторов нет.
type Op struct {
	ID       string
	Kind     Kind
	EntityID string
	Before   any
	After    any

	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

func newOp(id string, kind Kind, entityID string, before, after any) *Op {
	return &Op{
		ID:       id,
		Kind:     kind,
		EntityID: entityID,
		Before:   before,
		After:    after,
		state:    StateOptimistic,
		done:     make(chan struct{}),
	}
}

// State возвращает текущее состояние мутации.
func (o *Op) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err — ошибка удалённого вызова (nil до завершения и при Reconciled).
func (o *Op) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Done закрывается при переходе в терминальное состояние.
func (o *Op) Done() <-chan struct{} {
	return o.done
}

// Wait ждёт завершения мутации и возвращает её ошибку.
// Отмена ctx прерывает только ожидание, но не саму мутацию.
func (o *Op) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Op) finish(state State, err error) {
	o.mu.Lock()
	o.state = state
	o.err = err
	o.mu.Unlock()
	close(o.done)
}
