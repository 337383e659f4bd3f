package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"brandchat/internal/backend"
	"brandchat/internal/model"
	"brandchat/internal/realtime"
	"brandchat/internal/store"
)

// ErrNotOwner 会话不属于当前用户
var ErrNotOwner = errors.New("chat: not the chat owner")

// ChatStore 会话存取
type ChatStore interface {
	Create(chat *model.Chat) error
	GetByID(id string) (*model.Chat, error)
	GetByIDWithMessages(id string) (*model.Chat, error)
	ListByUser(userID string, offset, limit int) ([]*model.Chat, error)
	ListAll(offset, limit int) ([]*model.Chat, int64, error)
	Update(chat *model.Chat) error
	UpdateTitle(id, title string) error
	Touch(id string) error
	Delete(id string) error
}

// MessageStore 消息存取
type MessageStore interface {
	Create(message *model.Message) error
	ListByChat(chatID string) ([]*model.Message, error)
	ListRecentByChat(chatID string, limit int) ([]*model.Message, error)
}

// Service 聊天服务
type Service struct {
	chats        ChatStore
	messages     MessageStore
	backend      *backend.Client
	hub          *realtime.Hub
	log          *logrus.Logger
	historyLimit int
}

// NewService 创建聊天服务
func NewService(chats ChatStore, messages MessageStore, backendClient *backend.Client, hub *realtime.Hub, log *logrus.Logger, historyLimit int) *Service {
	if historyLimit <= 0 {
		historyLimit = 12
	}
	return &Service{
		chats:        chats,
		messages:     messages,
		backend:      backendClient,
		hub:          hub,
		log:          log,
		historyLimit: historyLimit,
	}
}

// ========== 会话管理 ==========

// CreateChat 创建会话，标题为占位标题，首次对话后替换
func (s *Service) CreateChat(ctx context.Context, userID string) (*model.Chat, error) {
	chat := &model.Chat{
		ID:     uuid.New().String(),
		UserID: userID,
		Title:  model.DefaultChatTitle,
	}
	if err := s.chats.Create(chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

// ListChats 列出用户的会话，最近更新的在前
func (s *Service) ListChats(ctx context.Context, userID string, offset, limit int) ([]*model.Chat, error) {
	return s.chats.ListByUser(userID, offset, limit)
}

// GetChat 获取会话及其消息，校验归属
func (s *Service) GetChat(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	chat, err := s.chats.GetByIDWithMessages(chatID)
	if err != nil {
		return nil, fmt.Errorf("chat not found: %w", err)
	}
	if chat.UserID != userID {
		return nil, ErrNotOwner
	}
	return chat, nil
}

// RenameChat 重命名会话
func (s *Service) RenameChat(ctx context.Context, userID, chatID, title string) (*model.Chat, error) {
	chat, err := s.chats.GetByID(chatID)
	if err != nil {
		return nil, fmt.Errorf("chat not found: %w", err)
	}
	if chat.UserID != userID {
		return nil, ErrNotOwner
	}
	chat.Title = title
	if err := s.chats.Update(chat); err != nil {
		return nil, fmt.Errorf("failed to update chat: %w", err)
	}
	return chat, nil
}

// DeleteChat 删除会话及其全部消息
func (s *Service) DeleteChat(ctx context.Context, userID, chatID string) error {
	chat, err := s.chats.GetByID(chatID)
	if err != nil {
		return fmt.Errorf("chat not found: %w", err)
	}
	if chat.UserID != userID {
		return ErrNotOwner
	}
	if err := s.chats.Delete(chatID); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return nil
}

// ListMessages 获取会话消息，校验归属
func (s *Service) ListMessages(ctx context.Context, userID, chatID string) ([]*model.Message, error) {
	chat, err := s.chats.GetByID(chatID)
	if err != nil {
		return nil, fmt.Errorf("chat not found: %w", err)
	}
	if chat.UserID != userID {
		return nil, ErrNotOwner
	}
	return s.messages.ListByChat(chatID)
}

// ListAllChats 跨用户列出会话（管理端）
func (s *Service) ListAllChats(ctx context.Context, offset, limit int) ([]*model.Chat, int64, error) {
	return s.chats.ListAll(offset, limit)
}

// ========== 发送流程 ==========

// SendRequest 发送消息请求
type SendRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendResult 一次发送产生的两条消息
// Failed 为真时 Assistant 是合成的错误提示消息
type SendResult struct {
	UserMessage      model.Message `json:"user_message"`
	AssistantMessage model.Message `json:"assistant_message"`
	Failed           bool          `json:"failed"`
}

// Send 把一次用户发送推进到助手回复
//
// 持久化与界面响应解耦：乐观插入立即可见，落库尽力而为，
// 落库失败只记日志，不回滚用户已经看到的内容。
// view 为调用方连接的消息视图，没有活跃连接时可为 nil
func (s *Service) Send(ctx context.Context, userID, chatID string, req *SendRequest, view *store.Store) (*SendResult, error) {
	chat, err := s.chats.GetByID(chatID)
	if err != nil {
		return nil, fmt.Errorf("chat not found: %w", err)
	}
	if chat.UserID != userID {
		return nil, ErrNotOwner
	}

	// 乐观用户消息；占位 ID 去掉前缀后即是落库 ID，
	// 同一逻辑消息在端到端只有一个标识
	userMsg := model.Message{
		ID:        store.NewPlaceholderID(),
		ChatID:    chatID,
		UserID:    userID,
		Role:      model.RoleMessageUser,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}
	if view != nil {
		userMsg = view.InsertOptimistic(userMsg)
	}

	history, err := s.loadHistory(chatID)
	if err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Warn("failed to load history, sending without context")
		history = nil
	}

	reply, sendErr := s.backend.Chat(ctx, &backend.ChatRequest{
		Message: req.Content,
		UserID:  userID,
		ChatID:  chatID,
		History: history,
	})

	failed := sendErr != nil
	if failed {
		reply = errorReply(sendErr)
	}

	assistantMsg := model.Message{
		ID:        store.NewPlaceholderID(),
		ChatID:    chatID,
		UserID:    userID,
		Role:      model.RoleMessageAssistant,
		Content:   reply,
		CreatedAt: time.Now(),
	}
	if view != nil {
		assistantMsg = view.InsertOptimistic(assistantMsg)
	}

	// 两条消息落库、时间戳更新、标题生成都是尽力而为
	durableUser := s.persist(ctx, userMsg)
	durableAssistant := s.persist(ctx, assistantMsg)

	if err := s.chats.Touch(chatID); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("failed to touch chat")
	}

	if !failed && chat.HasDefaultTitle() {
		go s.generateTitle(chatID, req.Content)
	}

	return &SendResult{
		UserMessage:      durableUser,
		AssistantMessage: durableAssistant,
		Failed:           failed,
	}, nil
}

// loadHistory 取最近的历史消息作为上下文，时间升序
func (s *Service) loadHistory(chatID string) ([]backend.HistoryEntry, error) {
	messages, err := s.messages.ListRecentByChat(chatID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	history := make([]backend.HistoryEntry, 0, len(messages))
	for _, m := range messages {
		history = append(history, backend.HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return history, nil
}

// persist 落库并广播，失败只记日志
// 返回持久化后的消息（占位 ID 已换为持久化 ID）
func (s *Service) persist(ctx context.Context, msg model.Message) model.Message {
	durable := msg
	durable.ID = strings.TrimPrefix(msg.ID, model.TempIDPrefix)

	if err := s.messages.Create(&durable); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"chat_id": msg.ChatID,
			"role":    msg.Role,
		}).Error("failed to persist message")
		return msg
	}

	if s.hub != nil {
		s.hub.PublishInsert(ctx, &durable)
	}
	return durable
}

// generateTitle 异步生成标题，任何失败都吞掉
func (s *Service) generateTitle(chatID, firstMessage string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	title, err := s.backend.GenerateTitle(ctx, firstMessage, chatID)
	if err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Debug("title generation failed")
		return
	}

	if err := s.chats.UpdateTitle(chatID, title); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Debug("failed to save generated title")
		return
	}

	if s.hub != nil {
		s.hub.PublishTitle(ctx, chatID, title)
	}
}

// errorReply 按错误类别给出呈现在会话里的提示文案
func errorReply(err error) string {
	switch {
	case errors.Is(err, backend.ErrTimeout):
		return "The assistant took too long to respond. The request timed out, please try again."
	case errors.Is(err, backend.ErrUnreachable):
		return "The assistant is currently unreachable. Please check that the backend is running and try again."
	case errors.Is(err, backend.ErrMalformed):
		return "The assistant returned an unexpected response. Please try again."
	default:
		return "Something went wrong while generating a response. Please try again."
	}
}
