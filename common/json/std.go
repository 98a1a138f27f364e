//go:build stdjson || !(amd64 && (linux || windows || darwin))

package json

import "encoding/json"

// Name 是有效的JSON 包名。
const Name = "encoding/json"

var (
	// Marshal 用于 JSON 编码而导出的标准库实现。
	Marshal = json.Marshal
	// MarshalIndent 用于编码为带缩进格式的 JSON 而导出的标准库实现。
	MarshalIndent = json.MarshalIndent
	// NewEncoder 用于写入 io.Writer 而导出的 JSON 编码器。
	NewEncoder = json.NewEncoder
)
