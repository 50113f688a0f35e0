package chat

import (
	"sort"
	"sync"

	"github.com/hongjun500/scp-chat/internal/observe"
	"github.com/hongjun500/scp-chat/internal/protocol"
	"github.com/hongjun500/scp-chat/pkg/logger"
)

// Peer 注册表中的一个在线成员，Session 是唯一的生产实现
type Peer interface {
	Send(m protocol.Message) error
}

// Registry is the process-wide username → peer directory and the only
// authority on username uniqueness.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]Peer
}

func NewRegistry() *Registry {
	return &Registry{peers: make(map[string]Peer)}
}

// Register 原子地占用用户名；已被占用时返回 false
func (r *Registry) Register(username string, p Peer) bool {
	r.mu.Lock()
	if _, exists := r.peers[username]; exists {
		r.mu.Unlock()
		return false
	}
	r.peers[username] = p
	r.mu.Unlock()

	observe.AddOnline(1)
	logger.L().Sugar().Infow("registry_registered", "user", username)
	return true
}

// Unregister 幂等移除
func (r *Registry) Unregister(username string) {
	r.mu.Lock()
	_, existed := r.peers[username]
	delete(r.peers, username)
	r.mu.Unlock()

	if existed {
		observe.AddOnline(-1)
		logger.L().Sugar().Infow("registry_unregistered", "user", username)
	}
}

// Get returns nil when username is not registered.
func (r *Registry) Get(username string) Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.peers[username]
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// ListUsernames 返回排序后的用户名快照
func (r *Registry) ListUsernames() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.peers))
	for name := range r.peers {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// snapshot 去重：改名期间同一个 peer 会短暂持有新旧两个用户名
func (r *Registry) snapshot() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[Peer]struct{}, len(r.peers))
	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Peers 返回当前所有在线成员的快照
func (r *Registry) Peers() []Peer { return r.snapshot() }

// Broadcast sends m to every registered peer except exclude (which may be nil)
// and returns the number of successful sends. The peer set is copied before
// sending, so no lock is held while writing; a failing or panicking peer does
// not stop the fan-out.
func (r *Registry) Broadcast(m protocol.Message, exclude Peer) int {
	targets := r.snapshot()
	delivered, attempted := 0, 0
	for _, p := range targets {
		if exclude != nil && p == exclude {
			continue
		}
		attempted++
		if safeSend(p, m) {
			delivered++
		}
	}
	observe.AddFanout(attempted)
	return delivered
}

func safeSend(p Peer, m protocol.Message) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.L().Sugar().Warnw("registry_send_panic", "type", m.Type(), "panic", rec)
			ok = false
		}
	}()
	return p.Send(m) == nil
}
