package node

import "strings"

// responseFormatMarkers 服务端拒绝 response_format 时错误信息中常见的片段
var responseFormatMarkers = []string{
	"response_format",
	"response_schema",
	"json_schema",
	"json_object",
}

// IsResponseFormatUnsupportedError 判断上游是否不支持 JSON 输出模式，
// 命中时改写链路降级为仅靠提示词约束格式（不算重试）
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range responseFormatMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
