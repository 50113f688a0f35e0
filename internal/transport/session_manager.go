package transport

import (
	"sync"
)

// SessionManager 跟踪所有存活连接，用于容量控制与关闭时统一中断
type SessionManager struct {
	mu    sync.Mutex
	conns map[string]Conn
}

// NewSessionManager 创建会话管理器
func NewSessionManager() *SessionManager {
	return &SessionManager{conns: make(map[string]Conn)}
}

// TryAdd registers c under id unless limit live connections already exist.
// limit <= 0 means unlimited.
func (sm *SessionManager) TryAdd(id string, c Conn, limit int) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if limit > 0 && len(sm.conns) >= limit {
		return false
	}
	sm.conns[id] = c
	return true
}

// Remove 移除会话，重复调用无副作用
func (sm *SessionManager) Remove(id string) {
	sm.mu.Lock()
	delete(sm.conns, id)
	sm.mu.Unlock()
}

// Count 获取当前会话数量
func (sm *SessionManager) Count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.conns)
}

// CloseAll closes every tracked connection and returns how many were closed.
// Entries stay registered; each owner removes its own on exit.
func (sm *SessionManager) CloseAll() int {
	sm.mu.Lock()
	conns := make([]Conn, 0, len(sm.conns))
	for _, c := range sm.conns {
		conns = append(conns, c)
	}
	sm.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
	return len(conns)
}
