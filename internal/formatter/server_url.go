package formatter

import (
	"net"
	"net/http"
	"strings"
)

// ServerURL 推断对外访问地址
// 配置了 publicURL 时直接使用，否则依次参考 X-Forwarded-Proto、X-Forwarded-Host、X-Forwarded-Port 请求头，
// 端口为协议默认端口时省略
func ServerURL(r *http.Request, publicURL string) string {
	if publicURL != "" {
		return strings.TrimRight(publicURL, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := firstHeaderValue(r, "X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(proto)
	}

	host := r.Host
	if forwarded := firstHeaderValue(r, "X-Forwarded-Host"); forwarded != "" {
		host = forwarded
	}

	port := firstHeaderValue(r, "X-Forwarded-Port")
	if port == "" {
		return scheme + "://" + host
	}

	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	if isDefaultPort(scheme, port) {
		return scheme + "://" + hostname
	}
	return scheme + "://" + net.JoinHostPort(hostname, port)
}

// firstHeaderValue 多级代理时请求头可能是逗号分隔的列表，取第一个
func firstHeaderValue(r *http.Request, name string) string {
	value := r.Header.Get(name)
	if i := strings.IndexByte(value, ','); i >= 0 {
		value = value[:i]
	}
	return strings.TrimSpace(value)
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}
