// Package logutil 提供日志相关的小工具：清洗调用方传入的字符串、同时输出到文件。
package logutil

import "strings"

// SanitizeForLog 去掉换行和控制字符，避免请求里的主机名、路径伪造日志行
func SanitizeForLog(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	return result.String()
}
