// Package admin 管理端功能：文档索引管理与全局设置
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"brandchat/internal/backend"
	"brandchat/internal/model"
)

const (
	systemPromptCacheKey = "settings:system_prompt"
	systemPromptCacheTTL = 10 * time.Minute
)

// DefaultSystemPrompt 未配置时使用的系统提示词
const DefaultSystemPrompt = "You are a helpful AI assistant."

// DocumentStore 文档元数据存取
type DocumentStore interface {
	Create(doc *model.Document) error
	GetByID(id string) (*model.Document, error)
	List(offset, limit int) ([]*model.Document, int64, error)
	Delete(id string) error
}

// SettingStore 全局设置存取
type SettingStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Service 管理服务
type Service struct {
	documents DocumentStore
	settings  SettingStore
	backend   *backend.Client
	redis     *redis.Client
	log       *logrus.Logger
}

// NewService 创建管理服务
func NewService(documents DocumentStore, settings SettingStore, backendClient *backend.Client, redisClient *redis.Client, log *logrus.Logger) *Service {
	return &Service{
		documents: documents,
		settings:  settings,
		backend:   backendClient,
		redis:     redisClient,
		log:       log,
	}
}

// ========== 文档管理 ==========

// IndexDocument 把文件交给后端切分索引，并登记元数据
func (s *Service) IndexDocument(ctx context.Context, uploadedBy, filename string, r io.Reader) (*model.Document, error) {
	result, err := s.backend.Upload(ctx, filename, r)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		ID:         uuid.New().String(),
		Filename:   result.Filename,
		FileSize:   result.FileSize,
		ChunkCount: result.ChunkCount,
		FileType:   result.FileType,
		UploadedBy: uploadedBy,
	}
	if err := s.documents.Create(doc); err != nil {
		// 索引已经完成，元数据登记失败只记日志
		s.log.WithError(err).WithField("filename", filename).Error("failed to record document")
	}
	return doc, nil
}

// ListDocuments 列出已索引文档
func (s *Service) ListDocuments(ctx context.Context, offset, limit int) ([]*model.Document, int64, error) {
	return s.documents.List(offset, limit)
}

// DeleteDocument 删除文档记录，并尽力让后端清掉向量
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.documents.GetByID(id)
	if err != nil {
		return fmt.Errorf("document not found: %w", err)
	}

	if err := s.documents.Delete(id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if err := s.backend.DeleteFile(ctx, doc.Filename); err != nil {
		s.log.WithError(err).WithField("filename", doc.Filename).Warn("failed to delete vectors from backend")
	}
	return nil
}

// ========== 全局设置 ==========

// GetSystemPrompt 获取系统提示词：Redis 缓存 → 数据库 → 默认值
func (s *Service) GetSystemPrompt(ctx context.Context) (string, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, systemPromptCacheKey).Result(); err == nil && cached != "" {
			return cached, nil
		}
	}

	prompt, err := s.settings.Get(model.SettingKeySystemPrompt)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DefaultSystemPrompt, nil
		}
		return "", fmt.Errorf("failed to load system prompt: %w", err)
	}

	s.cachePrompt(ctx, prompt)
	return prompt, nil
}

// UpdateSystemPrompt 更新系统提示词并推送给后端
// 后端推送失败只记日志，数据库是权威来源，后端下次启动会拉取
func (s *Service) UpdateSystemPrompt(ctx context.Context, prompt string) error {
	if prompt == "" {
		return errors.New("system prompt cannot be empty")
	}

	if err := s.settings.Set(model.SettingKeySystemPrompt, prompt); err != nil {
		return fmt.Errorf("failed to save system prompt: %w", err)
	}

	s.cachePrompt(ctx, prompt)

	if err := s.backend.UpdateSystemPrompt(ctx, prompt); err != nil {
		s.log.WithError(err).Warn("failed to push system prompt to backend")
	}
	return nil
}

func (s *Service) cachePrompt(ctx context.Context, prompt string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, systemPromptCacheKey, prompt, systemPromptCacheTTL).Err(); err != nil {
		s.log.WithError(err).Debug("failed to cache system prompt")
	}
}
