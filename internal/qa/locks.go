package qa

import (
	"sync"
	"time"
)

// keyedLocks 按指纹粒度的咨询锁
// 用于收敛同一新问题的并发生成，获取超时则放弃去重、继续执行
// 条目按引用计数回收，无持有者且无等待者时从表中删除
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// lockEntry 单个 key 的锁状态
// refs 统计持有者与等待者，归零即可安全删除
type lockEntry struct {
	ch   chan struct{}
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{
		locks: make(map[string]*lockEntry),
	}
}

// TryLock 在 timeout 内尝试获取 key 对应的锁
func (k *keyedLocks) TryLock(key string, timeout time.Duration) bool {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return true
	case <-time.After(timeout):
		k.release(key, e)
		return false
	}
}

// Unlock 释放 key 对应的锁
func (k *keyedLocks) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	k.mu.Unlock()

	if !ok {
		return
	}

	select {
	case <-e.ch:
	default:
	}
	k.release(key, e)
}

// release 归还一次引用，无引用的条目从表中删除
func (k *keyedLocks) release(key string, e *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs <= 0 {
		delete(k.locks, key)
	}
}
