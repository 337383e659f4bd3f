// Package model 模型辅助方法单元测试
package model

import "testing"

func TestHasDefaultTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  bool
	}{
		{"default title", DefaultChatTitle, true},
		{"empty title", "", true},
		{"generated title", "Trip Planning", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Chat{Title: tt.title}
			if got := c.HasDefaultTitle(); got != tt.want {
				t.Errorf("HasDefaultTitle() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"placeholder", "temp-123e4567", true},
		{"durable", "123e4567", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Message{ID: tt.id}
			if got := m.IsPlaceholder(); got != tt.want {
				t.Errorf("IsPlaceholder() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProfileIsAdmin(t *testing.T) {
	if !(&Profile{Role: RoleAdmin}).IsAdmin() {
		t.Error("admin profile should be admin")
	}
	if (&Profile{Role: RoleUser}).IsAdmin() {
		t.Error("user profile should not be admin")
	}
}
