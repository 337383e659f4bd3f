// Package store 消息视图合并逻辑单元测试
package store

import (
	"strings"
	"testing"
	"time"

	"brandchat/internal/model"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func msg(id, role, content string, at time.Time) model.Message {
	return model.Message{
		ID:        id,
		ChatID:    "chat-1",
		Role:      role,
		Content:   content,
		CreatedAt: at,
	}
}

func ids(s *Store) []string {
	out := make([]string, 0, s.Len())
	for _, m := range s.Messages() {
		out = append(out, m.ID)
	}
	return out
}

func assertIDs(t *testing.T, s *Store, want []string) {
	t.Helper()
	got := ids(s)
	if len(got) != len(want) {
		t.Fatalf("got %d messages %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func assertNoDuplicateIDs(t *testing.T, s *Store) {
	t.Helper()
	seen := make(map[string]bool)
	for _, m := range s.Messages() {
		if seen[m.ID] {
			t.Fatalf("duplicate id %q in view %v", m.ID, ids(s))
		}
		seen[m.ID] = true
	}
}

// ========== 占位 ID 测试 ==========

func TestNewPlaceholderID(t *testing.T) {
	id := NewPlaceholderID()
	if !strings.HasPrefix(id, model.TempIDPrefix) {
		t.Errorf("placeholder id %q missing %q prefix", id, model.TempIDPrefix)
	}
	if id == NewPlaceholderID() {
		t.Error("placeholder ids must be unique")
	}
}

// ========== InsertOptimistic 测试 ==========

func TestInsertOptimistic_GeneratesID(t *testing.T) {
	s := New("chat-1")
	got := s.InsertOptimistic(model.Message{Role: model.RoleMessageUser, Content: "hi", CreatedAt: base})

	if !got.IsPlaceholder() {
		t.Errorf("expected generated placeholder id, got %q", got.ID)
	}
	if got.ChatID != "chat-1" {
		t.Errorf("ChatID = %q, want chat-1", got.ChatID)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestInsertOptimistic_SameTimestampKeepsInsertionOrder(t *testing.T) {
	s := New("chat-1")
	s.InsertOptimistic(msg("temp-a", model.RoleMessageUser, "question", base))
	s.InsertOptimistic(msg("temp-b", model.RoleMessageAssistant, "answer", base))

	assertIDs(t, s, []string{"temp-a", "temp-b"})
}

// ========== MergeRealtimeInsert 测试 ==========

func TestMergeRealtimeInsert_Idempotent(t *testing.T) {
	s := New("chat-1")
	m := msg("m1", model.RoleMessageUser, "hello", base)

	s.MergeRealtimeInsert(m)
	s.MergeRealtimeInsert(m)
	s.MergeRealtimeInsert(m)

	if s.Len() != 1 {
		t.Errorf("Len() = %d after duplicate pushes, want 1", s.Len())
	}
}

func TestMergeRealtimeInsert_ReplacesPlaceholderInPlace(t *testing.T) {
	s := New("chat-1")
	s.InsertOptimistic(msg("temp-a", model.RoleMessageUser, "hello", base))
	s.InsertOptimistic(msg("temp-b", model.RoleMessageAssistant, "world", base.Add(time.Second)))

	// 持久化行到达，时间戳是服务端的，但仍应接管占位的位置
	s.MergeRealtimeInsert(msg("m1", model.RoleMessageUser, "hello", base))

	assertIDs(t, s, []string{"m1", "temp-b"})
	assertNoDuplicateIDs(t, s)
}

func TestMergeRealtimeInsert_NoMatchAppends(t *testing.T) {
	s := New("chat-1")
	s.InsertOptimistic(msg("temp-a", model.RoleMessageUser, "hello", base))

	// 内容不同，不是同一逻辑消息
	s.MergeRealtimeInsert(msg("m1", model.RoleMessageUser, "different", base.Add(time.Second)))

	assertIDs(t, s, []string{"temp-a", "m1"})
}

func TestMergeRealtimeInsert_RoleMustMatch(t *testing.T) {
	s := New("chat-1")
	s.InsertOptimistic(msg("temp-a", model.RoleMessageUser, "hello", base))

	s.MergeRealtimeInsert(msg("m1", model.RoleMessageAssistant, "hello", base.Add(time.Second)))

	assertIDs(t, s, []string{"temp-a", "m1"})
}

func TestMergeRealtimeInsert_OtherChatIgnored(t *testing.T) {
	s := New("chat-1")
	other := msg("m1", model.RoleMessageUser, "hello", base)
	other.ChatID = "chat-2"

	s.MergeRealtimeInsert(other)

	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0 (event for another chat)", s.Len())
	}
}

func TestMergeRealtimeInsert_OrderedByCreatedAt(t *testing.T) {
	s := New("chat-1")
	s.MergeRealtimeInsert(msg("m2", model.RoleMessageAssistant, "second", base.Add(2*time.Second)))
	s.MergeRealtimeInsert(msg("m1", model.RoleMessageUser, "first", base))
	s.MergeRealtimeInsert(msg("m3", model.RoleMessageUser, "third", base.Add(3*time.Second)))

	assertIDs(t, s, []string{"m1", "m2", "m3"})
}

// ========== ReconcileFull 测试 ==========

func TestReconcileFull_ServerListIsAuthoritative(t *testing.T) {
	s := New("chat-1")
	s.MergeRealtimeInsert(msg("stale", model.RoleMessageUser, "gone", base))

	server := []model.Message{
		msg("m1", model.RoleMessageUser, "hello", base),
		msg("m2", model.RoleMessageAssistant, "hi there", base.Add(time.Second)),
	}
	s.ReconcileFull(server)

	assertIDs(t, s, []string{"m1", "m2"})
}

func TestReconcileFull_MatchedPlaceholderDropped(t *testing.T) {
	s := New("chat-1")
	s.InsertOptimistic(msg("temp-a", model.RoleMessageUser, "hello", base))

	server := []model.Message{msg("m1", model.RoleMessageUser, "hello", base)}
	s.ReconcileFull(server)

	assertIDs(t, s, []string{"m1"})
	assertNoDuplicateIDs(t, s)
}

func TestReconcileFull_PendingPlaceholderSurvives(t *testing.T) {
	s := New("chat-1")
	s.InsertOptimistic(msg("temp-a", model.RoleMessageUser, "still in flight", base.Add(5*time.Second)))

	// 服务端还没见到这条消息
	server := []model.Message{
		msg("m1", model.RoleMessageUser, "earlier", base),
	}
	s.ReconcileFull(server)

	assertIDs(t, s, []string{"m1", "temp-a"})
}

func TestReconcileFull_EmptyServerKeepsPending(t *testing.T) {
	s := New("chat-1")
	s.InsertOptimistic(msg("temp-a", model.RoleMessageUser, "hello", base))

	s.ReconcileFull(nil)

	assertIDs(t, s, []string{"temp-a"})
}

func TestReconcileFull_DurableLocalRowsRebuiltFromServer(t *testing.T) {
	s := New("chat-1")
	s.MergeRealtimeInsert(msg("m1", model.RoleMessageUser, "hello", base))

	// 全量列表里同一行带着修正过的内容
	server := []model.Message{msg("m1", model.RoleMessageUser, "hello (edited)", base)}
	s.ReconcileFull(server)

	got := s.Messages()
	if len(got) != 1 || got[0].Content != "hello (edited)" {
		t.Fatalf("view = %+v, want single server row", got)
	}
}

// ========== 交错场景测试 ==========

// 发送往返期间 realtime 先于响应到达：占位被推送替换后，
// 迟到的全量拉取不得造成重复
func TestInterleaving_PushBeforeRefetch(t *testing.T) {
	s := New("chat-1")

	userMsg := s.InsertOptimistic(model.Message{Role: model.RoleMessageUser, Content: "question", CreatedAt: base})
	durable := msg(strings.TrimPrefix(userMsg.ID, model.TempIDPrefix), model.RoleMessageUser, "question", base)

	s.MergeRealtimeInsert(durable)
	s.ReconcileFull([]model.Message{durable})
	s.MergeRealtimeInsert(durable)

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (same logical message everywhere)", s.Len())
	}
	assertNoDuplicateIDs(t, s)
}

// 完整一轮对话：两条乐观消息、两次推送、一次全量拉取，任意一步都不得翻倍
func TestInterleaving_FullSendRound(t *testing.T) {
	s := New("chat-1")

	user := s.InsertOptimistic(model.Message{Role: model.RoleMessageUser, Content: "question", CreatedAt: base})
	assistant := s.InsertOptimistic(model.Message{Role: model.RoleMessageAssistant, Content: "answer", CreatedAt: base.Add(time.Second)})

	durableUser := msg(strings.TrimPrefix(user.ID, model.TempIDPrefix), model.RoleMessageUser, "question", base)
	durableAssistant := msg(strings.TrimPrefix(assistant.ID, model.TempIDPrefix), model.RoleMessageAssistant, "answer", base.Add(time.Second))

	s.MergeRealtimeInsert(durableUser)
	s.ReconcileFull([]model.Message{durableUser, durableAssistant})
	s.MergeRealtimeInsert(durableAssistant)

	assertIDs(t, s, []string{durableUser.ID, durableAssistant.ID})
	assertNoDuplicateIDs(t, s)
}

// 两个内容相同的占位各自只吸收一条推送
func TestInterleaving_DuplicateContentPlaceholders(t *testing.T) {
	s := New("chat-1")
	s.InsertOptimistic(msg("temp-a", model.RoleMessageUser, "same", base))
	s.InsertOptimistic(msg("temp-b", model.RoleMessageUser, "same", base.Add(time.Second)))

	s.MergeRealtimeInsert(msg("m1", model.RoleMessageUser, "same", base))
	s.MergeRealtimeInsert(msg("m2", model.RoleMessageUser, "same", base.Add(time.Second)))

	assertIDs(t, s, []string{"m1", "m2"})
	assertNoDuplicateIDs(t, s)
}
