package service

import "sync"

// ModuleLocks 按模块序列化“读进度 → 追加 → 整条写回”，
// 防止同一模块的两次快速作答互相覆盖对方追加的记录。
type ModuleLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewModuleLocks() *ModuleLocks {
	return &ModuleLocks{locks: make(map[uint]*sync.Mutex)}
}

func (l *ModuleLocks) For(moduleID uint) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[moduleID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[moduleID] = m
	}
	return m
}
