package node

import (
	"strings"
	"unicode/utf8"
)

// TruncateByRunes 按字符截断，用于提示词摘录与日志
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if len(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// RuneLen 按字符计数，原文长度与段落数都以字符计
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// TrimmedRuneLen 去除首尾空白后的字符数
func TrimmedRuneLen(s string) int {
	return RuneLen(strings.TrimSpace(s))
}
