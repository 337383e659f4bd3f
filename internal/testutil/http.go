// Package testutil 提供测试辅助工具
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"
)

// rewriteTransport 把所有出站请求重写到测试服务器
type rewriteTransport struct {
	base *url.URL
	next http.RoundTripper
}

// RoundTrip 实现 http.RoundTripper 接口
func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := *req
	u := *req.URL
	u.Scheme = t.base.Scheme
	u.Host = t.base.Host
	cloned.URL = &u
	return t.next.RoundTrip(&cloned)
}

// NewTestClient 创建测试用 HTTP 客户端，请求全部打到 mock 服务器
func NewTestClient(ts *httptest.Server) *http.Client {
	u, _ := url.Parse(ts.URL)
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &rewriteTransport{
			base: u,
			next: http.DefaultTransport,
		},
	}
}
