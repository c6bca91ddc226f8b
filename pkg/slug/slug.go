package slug

import "strings"

// Make 将名称转换为 URL 安全的 slug：小写字母、数字，其余字符折叠为单个连字符
func Make(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	b := make([]rune, 0, len(s))
	dash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b = append(b, r)
			dash = false
			continue
		}
		if !dash && len(b) > 0 {
			b = append(b, '-')
			dash = true
		}
	}
	return strings.TrimRight(string(b), "-")
}
