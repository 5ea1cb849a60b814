// internal/adapter/logger/types.go
package logger

import "github.com/YelzhanWeb/kds/internal/domain"

type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Service   string                 `json:"service"`
	Hostname  string                 `json:"hostname"`
	RequestID string                 `json:"request_id"`
	Action    string                 `json:"action"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Error     *ErrorInfo             `json:"error,omitempty"`
}

type ErrorInfo struct {
	Msg  string `json:"msg"`
	Kind string `json:"kind"`
}

func kindOf(err error) string {
	return domain.Kind(err)
}
