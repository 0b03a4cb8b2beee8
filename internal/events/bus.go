// Package events 实现 driver 侧的心跳事件投递：worker 的一条自定义心跳
// 同时承载 fiber 状态与缓存统计两类载荷，按 Kind 分发给注册的监听器。
// 监听器按 Kind 唯一注册，重复注册报错。
package events

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Kind 标识心跳载荷的解释方式。
type Kind string

const (
	// KindFiberStatus 表示 CustomizedInfo 应按 fiber 状态批量载荷解码。
	KindFiberStatus Kind = "fiber_status"
	// KindCacheStats 表示 CustomizedInfo 应按缓存统计载荷解析。
	KindCacheStats Kind = "cache_stats"
)

// Heartbeat 是事件投递层与注册表之间的唯一事件类型。
type Heartbeat struct {
	Kind           Kind
	ExecutorID     string
	HostName       string
	CustomizedInfo []byte
}

// ErrDuplicateListener 表示某个 Kind 已注册过监听器。
var ErrDuplicateListener = errors.New("listener already registered for kind")

// ErrUnknownKind 表示事件的 Kind 没有任何监听器。
var ErrUnknownKind = errors.New("no listener registered for kind")

// ListenerFunc 处理一条心跳。返回的错误会原样传回 Publish 的调用方，
// 由各监听器自行决定哪些失败需要上抛（位置更新的解码错误）、哪些
// 就地消化（统计解析错误）。
type ListenerFunc func(Heartbeat) error

// Bus 按 Kind 分发心跳，注册与分发均为并发安全。
type Bus struct {
	listeners sync.Map // Kind → ListenerFunc
}

// NewBus 创建空事件总线。
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe 为指定 Kind 注册监听器，重复注册返回 ErrDuplicateListener。
func (b *Bus) Subscribe(kind Kind, fn ListenerFunc) error {
	normalized := normalizeKind(kind)
	if normalized == "" {
		return errors.New("event kind is required")
	}
	if fn == nil {
		return errors.New("listener func is required")
	}
	if _, loaded := b.listeners.LoadOrStore(normalized, fn); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateListener, normalized)
	}
	return nil
}

// MustSubscribe 在注册失败时 panic，适合启动阶段的固定接线。
func (b *Bus) MustSubscribe(kind Kind, fn ListenerFunc) {
	if err := b.Subscribe(kind, fn); err != nil {
		panic(err)
	}
}

// Publish 同步分发一条心跳，监听器的返回值即本次投递的结果。
func (b *Bus) Publish(event Heartbeat) error {
	normalized := normalizeKind(event.Kind)
	value, ok := b.listeners.Load(normalized)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, normalized)
	}
	return value.(ListenerFunc)(event)
}

// Kinds 返回已注册的 Kind 列表，供诊断输出，顺序不保证。
func (b *Bus) Kinds() []Kind {
	var result []Kind
	b.listeners.Range(func(key, _ any) bool {
		result = append(result, key.(Kind))
		return true
	})
	return result
}

func normalizeKind(kind Kind) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(string(kind))))
}
