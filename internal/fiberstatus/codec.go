package fiberstatus

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// statusRecord 是 fiber 状态批量载荷的线上形态，bitmask 使用标准 base64。
type statusRecord struct {
	File       string `json:"file"`
	Bitmask    string `json:"bitmask"`
	GroupCount int    `json:"group_count"`
	FieldCount int    `json:"field_count"`
}

// DecodeStatusBatch 把原始载荷解成状态序列。任何一条记录非法都会让整包
// 失败并返回错误，调用方不应部分应用结果。空载荷解码为零条记录。
func DecodeStatusBatch(raw []byte) ([]FileCacheStatus, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var records []statusRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("解码 fiber 状态载荷失败: %w", err)
	}

	result := make([]FileCacheStatus, 0, len(records))
	for idx, rec := range records {
		if rec.File == "" {
			return nil, fmt.Errorf("fiber 状态记录 #%d 缺少 file 字段", idx)
		}
		mask, err := base64.StdEncoding.DecodeString(rec.Bitmask)
		if err != nil {
			return nil, fmt.Errorf("fiber 状态记录 #%d bitmask 非法: %w", idx, err)
		}
		result = append(result, FileCacheStatus{
			File:       rec.File,
			Bitmask:    FiberBitSet(mask),
			GroupCount: rec.GroupCount,
			FieldCount: rec.FieldCount,
		})
	}
	return result, nil
}

// EncodeStatusBatch 按线上格式序列化状态序列，供 worker 侧与测试使用。
func EncodeStatusBatch(statuses []FileCacheStatus) ([]byte, error) {
	records := make([]statusRecord, len(statuses))
	for i, status := range statuses {
		records[i] = statusRecord{
			File:       status.File,
			Bitmask:    base64.StdEncoding.EncodeToString(status.Bitmask),
			GroupCount: status.GroupCount,
			FieldCount: status.FieldCount,
		}
	}
	encoded, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("序列化 fiber 状态载荷失败: %w", err)
	}
	return encoded, nil
}
