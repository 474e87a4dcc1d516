package jsonutil

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Pretty 缩进 JSON 供日志查看；保留模型输出的键顺序与数字写法，非法 JSON 原样返回。
func Pretty(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}
