// Package store 维护单个会话的消息视图
//
// 同一份视图由三个没有先后顺序保证的写入方竞争更新：
// 本地乐观插入、realtime 推送、周期性全量拉取。
// 这里的合并逻辑保证任意交错下视图中不出现重复的持久化 ID，
// 且每个 (role, content) 的占位/持久化对至多保留一个代表。
package store

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"brandchat/internal/model"
)

// Store 单个会话的消息视图
type Store struct {
	mu       sync.RWMutex
	chatID   string
	messages []model.Message
	seq      int64 // 插入序号，created_at 相同时保持插入顺序
	order    map[string]int64
}

// New 创建空视图
func New(chatID string) *Store {
	return &Store{
		chatID: chatID,
		order:  make(map[string]int64),
	}
}

// ChatID 视图所属会话
func (s *Store) ChatID() string {
	return s.chatID
}

// NewPlaceholderID 生成占位消息 ID
func NewPlaceholderID() string {
	return model.TempIDPrefix + uuid.New().String()
}

// InsertOptimistic 追加一条占位消息，网络往返完成前立刻可见
// msg.ID 为空时自动生成占位 ID
func (s *Store) InsertOptimistic(msg model.Message) model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = NewPlaceholderID()
	}
	msg.ChatID = s.chatID
	s.append(msg)
	s.resort()
	return msg
}

// MergeRealtimeInsert 合并 realtime 推送的持久化消息
//
// 去重策略：
//  1. 相同持久化 ID 已存在 → 忽略（幂等）
//  2. 存在 (role, content) 匹配的占位消息 → 原位替换，保留列表位置
//  3. 否则追加
func (s *Store) MergeRealtimeInsert(msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ChatID != "" && msg.ChatID != s.chatID {
		return
	}

	for _, existing := range s.messages {
		if existing.ID == msg.ID {
			return
		}
	}

	for i, existing := range s.messages {
		if existing.IsPlaceholder() && existing.Role == msg.Role && existing.Content == msg.Content {
			// 占位和推送代表同一逻辑事件，持久化行接管占位的位置
			s.order[msg.ID] = s.order[existing.ID]
			delete(s.order, existing.ID)
			s.messages[i] = msg
			s.resort()
			return
		}
	}

	s.append(msg)
	s.resort()
}

// ReconcileFull 以服务端消息列表为权威基础重建视图
//
// 未被服务端列表按 (role, content) 匹配到的本地占位消息仍在途，
// 必须保留并追加，不允许被全量拉取冲掉
func (s *Store) ReconcileFull(serverMessages []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []model.Message
	for _, existing := range s.messages {
		if !existing.IsPlaceholder() {
			continue
		}
		matched := false
		for _, srv := range serverMessages {
			if srv.Role == existing.Role && srv.Content == existing.Content {
				matched = true
				break
			}
		}
		if !matched {
			pending = append(pending, existing)
		}
	}

	s.messages = nil
	s.order = make(map[string]int64, len(serverMessages)+len(pending))

	for _, srv := range serverMessages {
		s.append(srv)
	}
	for _, p := range pending {
		s.append(p)
	}

	s.resort()
}

// Messages 当前视图快照，按 created_at 升序
func (s *Store) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len 视图中的消息数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// append 追加消息并登记插入序号，调用方须持有写锁
func (s *Store) append(msg model.Message) {
	s.seq++
	s.order[msg.ID] = s.seq
	s.messages = append(s.messages, msg)
}

// resort 按 created_at 升序排序，时间相同按插入序号，调用方须持有写锁
func (s *Store) resort() {
	sort.SliceStable(s.messages, func(i, j int) bool {
		a, b := s.messages[i], s.messages[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return s.order[a.ID] < s.order[b.ID]
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
