// Package hook 负责拦截器逻辑
// 注入的数据包在写出之前依次经过 Chain 中的每个 Hook
package hook

import (
	"log/slog"
	"sync"

	"github.com/Versifine/packetgate/internal/protocol"
	"github.com/Versifine/packetgate/internal/session"
)

// Direction 表示数据包的流向
type Direction int

const (
	// Clientbound 发往客户端
	Clientbound Direction = iota
	// Serverbound 发往后端服务器
	Serverbound
)

func (d Direction) String() string {
	if d == Serverbound {
		return "serverbound"
	}
	return "clientbound"
}

// Hook 定义拦截器接口
type Hook interface {
	// OnPacket 在数据包写出前被调用
	// 返回修改后的包，或返回 nil 表示丢弃该包
	OnPacket(s *session.Session, packet *protocol.Packet, dir Direction) *protocol.Packet
}

// Func 把普通函数适配为 Hook
type Func func(s *session.Session, packet *protocol.Packet, dir Direction) *protocol.Packet

func (f Func) OnPacket(s *session.Session, packet *protocol.Packet, dir Direction) *protocol.Packet {
	return f(s, packet, dir)
}

// LogHook 以 debug 级别记录经过的数据包
type LogHook struct{}

func (h *LogHook) OnPacket(s *session.Session, packet *protocol.Packet, dir Direction) *protocol.Packet {
	slog.Debug("Injected packet", "session", s, "direction", dir, "packet_id", packet.ID, "len", len(packet.Payload))
	return packet
}

// Chain 按注册顺序执行 Hook，任意一个返回 nil 即终止
type Chain struct {
	mu    sync.RWMutex
	hooks []Hook
}

func NewChain(hooks ...Hook) *Chain {
	return &Chain{hooks: hooks}
}

func (c *Chain) Add(h Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, h)
}

func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.hooks)
}

// Run 依次执行所有 Hook，返回最终的数据包，nil 表示被丢弃
func (c *Chain) Run(s *session.Session, packet *protocol.Packet, dir Direction) *protocol.Packet {
	if c == nil {
		return packet
	}
	c.mu.RLock()
	hooks := make([]Hook, len(c.hooks))
	copy(hooks, c.hooks)
	c.mu.RUnlock()

	for _, h := range hooks {
		if packet == nil {
			return nil
		}
		packet = h.OnPacket(s, packet, dir)
	}
	return packet
}
