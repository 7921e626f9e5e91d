package resolver

import "strings"

// Wildcard 通配符
const Wildcard = "*"

// IsPattern 是否为通配模式
func IsPattern(s string) bool {
	return strings.Contains(s, Wildcard)
}

// Match 判断物料是否匹配模式；* 匹配任意长度字符，首尾锚定
func Match(pattern, item string) bool {
	parts := strings.Split(pattern, Wildcard)
	if len(parts) == 1 {
		return pattern == item
	}
	if !strings.HasPrefix(item, parts[0]) {
		return false
	}
	rest := item[len(parts[0]):]
	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(part):]
	}
	return len(rest) >= len(last) && strings.HasSuffix(rest, last)
}
