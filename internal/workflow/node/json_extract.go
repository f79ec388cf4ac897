package node

import "strings"

// ExtractFirstJSONObject 从模型输出中截取第一个完整的顶层 JSON 对象。
// 模型可能在 JSON 前后夹杂说明文字或代码块标记；扫描时跳过字符串字面量中的括号。
func ExtractFirstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		if end, ok := matchObject(s, start); ok {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchObject 返回与 start 处 '{' 配对的 '}' 下标
func matchObject(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
