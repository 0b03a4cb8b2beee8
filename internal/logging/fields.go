package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// ReportFields 提供 worker 上报相关字段，供注册表与路由层日志复用。
func ReportFields(kind, executorID, hostName string, payloadBytes int) logrus.Fields {
	return logrus.Fields{
		"kind":          kind,
		"executor_id":   executorID,
		"host":          hostName,
		"payload_bytes": payloadBytes,
	}
}

// QueryFields 提供调度器/监控查询日志字段。
func QueryFields(action, file string, hostCount int) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"file":       file,
		"host_count": hostCount,
	}
}
