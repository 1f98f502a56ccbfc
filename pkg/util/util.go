package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewTraceID 生成不带中划线的 UUID，用于串联一次入队批次的日志
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
