package fiberstatus

import (
	"math/bits"
)

// FiberBitSet 按位记录一个文件的每个 fiber 是否已缓存，位序与 fiber
// 序号一致（bit i = 第 i 个 fiber）。底层为定长字节切片，长度由上报方
// 决定，本包不强制与 GroupCount*FieldCount 对齐（上报数据默认可信）。
type FiberBitSet []byte

// Count 返回置位数量，即已缓存的 fiber 数。
func (b FiberBitSet) Count() int {
	total := 0
	for _, octet := range b {
		total += bits.OnesCount8(octet)
	}
	return total
}

// Len 返回位图可表达的 fiber 总数（字节数 * 8）。
func (b FiberBitSet) Len() int {
	return len(b) * 8
}

// Test 判断第 i 个 fiber 是否已缓存，越界返回 false。
func (b FiberBitSet) Test(i int) bool {
	if i < 0 || i >= b.Len() {
		return false
	}
	return b[i/8]&(1<<uint(i%8)) != 0
}

// Set 置位第 i 个 fiber，越界时忽略。仅供 worker 侧与测试构造位图使用，
// 进入注册表后的位图不允许再修改。
func (b FiberBitSet) Set(i int) {
	if i < 0 || i >= b.Len() {
		return
	}
	b[i/8] |= 1 << uint(i%8)
}

// Clone 返回位图副本，避免调用方与注册表共享底层数组。
func (b FiberBitSet) Clone() FiberBitSet {
	if b == nil {
		return nil
	}
	dup := make(FiberBitSet, len(b))
	copy(dup, b)
	return dup
}

// FileCacheStatus 描述某一时刻、某台 host 上单个文件的 fiber 缓存覆盖情况。
type FileCacheStatus struct {
	// File 是文件路径/标识，亦是注册表的主键。
	File string
	// Bitmask 逐 fiber 标记是否已缓存。
	Bitmask FiberBitSet
	// GroupCount/FieldCount 记录文件的 row group 数与每组 fiber 字段数，
	// 供调度与诊断换算覆盖率使用。
	GroupCount int
	FieldCount int
}

// CachedFiberCount 返回该状态中已缓存的 fiber 数量，是比较完整度的唯一依据。
func (s FileCacheStatus) CachedFiberCount() int {
	return s.Bitmask.Count()
}

// MoreCompleteThan 判断当前状态是否严格比 other 更完整。
// 相等视为"不更完整"，即平局保留已有记录。
func (s FileCacheStatus) MoreCompleteThan(other FileCacheStatus) bool {
	return s.CachedFiberCount() > other.CachedFiberCount()
}

// HostCacheRecord 把派生的 host 标识与其上报的状态绑定在一起。
// 记录只会被整体替换，持有者不得修改字段。
type HostCacheRecord struct {
	Host   string
	Status FileCacheStatus
}
