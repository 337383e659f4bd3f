// Package config 配置加载单元测试
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ========== 默认值测试 ==========

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Auth.SessionCookie != "bc_session" {
		t.Errorf("Auth.SessionCookie = %q", cfg.Auth.SessionCookie)
	}
	if cfg.Backend.BaseURL != "http://localhost:8099" {
		t.Errorf("Backend.BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.HistoryLimit != 12 {
		t.Errorf("Backend.HistoryLimit = %d, want 12", cfg.Backend.HistoryLimit)
	}
	if cfg.Backend.ChatDeadline() != 60*time.Second {
		t.Errorf("ChatDeadline = %v, want 60s", cfg.Backend.ChatDeadline())
	}
}

// ========== 超时归一化测试 ==========

// 服务器读/写超时必须罩住每一个后端客户端超时，否则 handler 还在
// 同步等后端时 net/http 就把连接掐断了，慢上传拿到的是 EOF 而非错误响应
func TestLoad_ServerTimeoutsCoverBackendDeadlines(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	backends := []struct {
		name    string
		timeout int
	}{
		{"chatTimeout", cfg.Backend.ChatTimeout},
		{"titleTimeout", cfg.Backend.TitleTimeout},
		{"uploadTimeout", cfg.Backend.UploadTimeout},
	}
	for _, b := range backends {
		if cfg.Server.WriteTimeout <= b.timeout {
			t.Errorf("Server.WriteTimeout %d must exceed backend.%s %d", cfg.Server.WriteTimeout, b.name, b.timeout)
		}
		if cfg.Server.ReadTimeout <= b.timeout {
			t.Errorf("Server.ReadTimeout %d must exceed backend.%s %d", cfg.Server.ReadTimeout, b.name, b.timeout)
		}
	}
}

// 配置文件把服务器超时写得比后端超时还短时会被抬高
func TestLoad_ShortServerTimeoutsRaised(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  readTimeout: 10\n  writeTimeout: 10\nbackend:\n  uploadTimeout: 600\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Server.WriteTimeout <= 600 {
		t.Errorf("Server.WriteTimeout = %d, want > uploadTimeout 600", cfg.Server.WriteTimeout)
	}
	if cfg.Server.ReadTimeout <= 600 {
		t.Errorf("Server.ReadTimeout = %d, want > uploadTimeout 600", cfg.Server.ReadTimeout)
	}
}

// 服务器超时本来就够长时不应被改动
func TestLoad_AmpleServerTimeoutsUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  readTimeout: 900\n  writeTimeout: 900\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Server.ReadTimeout != 900 || cfg.Server.WriteTimeout != 900 {
		t.Errorf("timeouts = %d/%d, want 900/900 untouched", cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9090\nbackend:\n  historyLimit: 5\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Backend.HistoryLimit != 5 {
		t.Errorf("Backend.HistoryLimit = %d, want 5", cfg.Backend.HistoryLimit)
	}
	// 文件没写的键仍取默认
	if cfg.Redis.Port != 6379 {
		t.Errorf("Redis.Port = %d, want 6379", cfg.Redis.Port)
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BRANDCHAT_SERVER_PORT", "7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070 from env", cfg.Server.Port)
	}
}

func TestGetAddr(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 8080}
	if got := s.GetAddr(); got != "0.0.0.0:8080" {
		t.Errorf("GetAddr() = %q", got)
	}
	r := RedisConfig{Host: "localhost", Port: 6379}
	if got := r.GetAddr(); got != "localhost:6379" {
		t.Errorf("GetAddr() = %q", got)
	}
}
