package jsonutil

import (
	"encoding/json"
	"strings"
)

// ExtractObject 在模型输出中查找首个完整的 JSON 对象（允许前后有说明文字或 ``` 包裹）。
// 字符串内的花括号不计入深度；截取结果必须是合法 JSON。
func ExtractObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	for start != -1 {
		if end, ok := matchObject(s, start); ok {
			candidate := strings.TrimSpace(s[start : end+1])
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.Index(s[start+1:], "{")
		if next == -1 {
			break
		}
		start += next + 1
	}
	return "", false
}

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
