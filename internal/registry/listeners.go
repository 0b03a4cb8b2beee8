package registry

import (
	"github.com/locality-hub/locality-hub/internal/events"
)

// Attach 把注册表的两个更新入口挂到事件总线上：
//   - fiber_status 心跳走 RecordLocationUpdate，解码错误回传给投递层；
//   - cache_stats 心跳走 RecordStatsUpdate，失败就地消化、永不回传。
//
// 应在启动阶段调用一次；重复挂载会因 Kind 冲突返回错误。
func (r *CacheLocationRegistry) Attach(bus *events.Bus) error {
	if err := bus.Subscribe(events.KindFiberStatus, func(hb events.Heartbeat) error {
		return r.RecordLocationUpdate(hb.HostName, hb.ExecutorID, hb.CustomizedInfo)
	}); err != nil {
		return err
	}
	return bus.Subscribe(events.KindCacheStats, func(hb events.Heartbeat) error {
		r.RecordStatsUpdate(hb.ExecutorID, hb.HostName, hb.CustomizedInfo)
		return nil
	})
}
