// Package admin 文档索引与全局设置单元测试
package admin

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"brandchat/internal/backend"
	"brandchat/internal/config"
	"brandchat/internal/model"
)

// fakeDocumentStore 内存文档元数据存储
type fakeDocumentStore struct {
	docs      map[string]*model.Document
	createErr error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[string]*model.Document)}
}

func (f *fakeDocumentStore) Create(doc *model.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocumentStore) GetByID(id string) (*model.Document, error) {
	if d, ok := f.docs[id]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDocumentStore) List(offset, limit int) ([]*model.Document, int64, error) {
	var out []*model.Document
	for _, d := range f.docs {
		out = append(out, d)
	}
	return out, int64(len(out)), nil
}

func (f *fakeDocumentStore) Delete(id string) error {
	delete(f.docs, id)
	return nil
}

// fakeSettingStore 内存设置存储
type fakeSettingStore struct {
	values map[string]string
}

func newFakeSettingStore() *fakeSettingStore {
	return &fakeSettingStore{values: make(map[string]string)}
}

func (f *fakeSettingStore) Get(key string) (string, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return "", gorm.ErrRecordNotFound
}

func (f *fakeSettingStore) Set(key, value string) error {
	f.values[key] = value
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService(ts *httptest.Server, docs *fakeDocumentStore, settings *fakeSettingStore) *Service {
	cfg := config.BackendConfig{
		BaseURL:       ts.URL,
		ChatTimeout:   2,
		TitleTimeout:  2,
		UploadTimeout: 2,
	}
	return NewService(docs, settings, backend.NewClient(cfg), nil, quietLogger())
}

// ========== 文档管理测试 ==========

func TestIndexDocument(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" {
			t.Errorf("path = %q, want /upload", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"filename":"guide.pdf","file_size":42,"chunk_count":7,"file_type":"pdf"}`))
	}))
	defer ts.Close()

	docs := newFakeDocumentStore()
	svc := newTestService(ts, docs, newFakeSettingStore())

	doc, err := svc.IndexDocument(context.Background(), "admin-1", "guide.pdf", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("IndexDocument() unexpected error: %v", err)
	}
	if doc.ChunkCount != 7 || doc.UploadedBy != "admin-1" {
		t.Errorf("doc = %+v", doc)
	}
	if len(docs.docs) != 1 {
		t.Errorf("recorded %d documents, want 1", len(docs.docs))
	}
}

func TestIndexDocument_RecordFailureStillReturnsDoc(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"filename":"guide.pdf","file_size":42,"chunk_count":7,"file_type":"pdf"}`))
	}))
	defer ts.Close()

	docs := newFakeDocumentStore()
	docs.createErr = errors.New("insert failed")
	svc := newTestService(ts, docs, newFakeSettingStore())

	// 索引已经发生在后端，登记失败不应报错给调用方
	doc, err := svc.IndexDocument(context.Background(), "admin-1", "guide.pdf", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("IndexDocument() unexpected error: %v", err)
	}
	if doc == nil {
		t.Fatal("expected document despite record failure")
	}
}

func TestIndexDocument_BackendErrorPropagates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnsupportedMediaType)
	}))
	defer ts.Close()

	svc := newTestService(ts, newFakeDocumentStore(), newFakeSettingStore())

	if _, err := svc.IndexDocument(context.Background(), "admin-1", "weird.bin", strings.NewReader("x")); err == nil {
		t.Fatal("expected error from backend")
	}
}

func TestDeleteDocument_BestEffortVectorCleanup(t *testing.T) {
	backendCalled := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			backendCalled = true
			w.WriteHeader(http.StatusInternalServerError) // 向量清理失败
		}
	}))
	defer ts.Close()

	docs := newFakeDocumentStore()
	docs.docs["d1"] = &model.Document{ID: "d1", Filename: "guide.pdf"}
	svc := newTestService(ts, docs, newFakeSettingStore())

	// 后端清理失败不阻止记录删除
	if err := svc.DeleteDocument(context.Background(), "d1"); err != nil {
		t.Fatalf("DeleteDocument() unexpected error: %v", err)
	}
	if !backendCalled {
		t.Error("backend file deletion never attempted")
	}
	if len(docs.docs) != 0 {
		t.Error("document record still present")
	}
}

// ========== 系统提示词测试 ==========

func TestGetSystemPrompt_DefaultWhenUnset(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	svc := newTestService(ts, newFakeDocumentStore(), newFakeSettingStore())

	prompt, err := svc.GetSystemPrompt(context.Background())
	if err != nil {
		t.Fatalf("GetSystemPrompt() unexpected error: %v", err)
	}
	if prompt != DefaultSystemPrompt {
		t.Errorf("prompt = %q, want default", prompt)
	}
}

func TestUpdateSystemPrompt_RoundTrip(t *testing.T) {
	pushed := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/settings/system-prompt" {
			pushed = true
		}
	}))
	defer ts.Close()

	settings := newFakeSettingStore()
	svc := newTestService(ts, newFakeDocumentStore(), settings)

	if err := svc.UpdateSystemPrompt(context.Background(), "answer briefly"); err != nil {
		t.Fatalf("UpdateSystemPrompt() unexpected error: %v", err)
	}
	if !pushed {
		t.Error("prompt never pushed to backend")
	}

	prompt, err := svc.GetSystemPrompt(context.Background())
	if err != nil {
		t.Fatalf("GetSystemPrompt() unexpected error: %v", err)
	}
	if prompt != "answer briefly" {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestUpdateSystemPrompt_EmptyRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	svc := newTestService(ts, newFakeDocumentStore(), newFakeSettingStore())

	if err := svc.UpdateSystemPrompt(context.Background(), ""); err == nil {
		t.Error("empty prompt must be rejected")
	}
}
