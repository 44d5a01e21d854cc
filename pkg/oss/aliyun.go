// Package oss 上传原始表格的对象存储归档
package oss

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// Archiver 原始表格归档接口
type Archiver interface {
	Archive(ctx context.Context, objectKey string, data []byte, meta map[string]string) (string, error)
	Delete(ctx context.Context, objectKey string) error
	GetURL(objectKey string) string
}

// AliyunConfig 阿里云 OSS 配置
type AliyunConfig struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	BucketName      string
	Domain          string // 自定义域名（可选）
	BasePath        string // 基础路径，如 "report-uploads/"
}

// AliyunArchiver 阿里云 OSS 归档
type AliyunArchiver struct {
	bucket *oss.Bucket
	config *AliyunConfig
}

// NewAliyunArchiver 创建阿里云 OSS 归档
func NewAliyunArchiver(config *AliyunConfig) (*AliyunArchiver, error) {
	client, err := oss.New(config.Endpoint, config.AccessKeyID, config.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("create oss client: %w", err)
	}

	bucket, err := client.Bucket(config.BucketName)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", config.BucketName, err)
	}

	return &AliyunArchiver{bucket: bucket, config: config}, nil
}

// Archive 上传表格，meta 写入对象自定义元数据
func (a *AliyunArchiver) Archive(ctx context.Context, objectKey string, data []byte, meta map[string]string) (string, error) {
	options := []oss.Option{
		oss.ContentType(GetContentType(objectKey)),
		oss.WithContext(ctx),
	}
	for k, v := range meta {
		options = append(options, oss.Meta(k, v))
	}

	if err := a.bucket.PutObject(a.getFullKey(objectKey), bytes.NewReader(data), options...); err != nil {
		return "", fmt.Errorf("put object %s: %w", objectKey, err)
	}
	return a.GetURL(objectKey), nil
}

// Delete 删除归档
func (a *AliyunArchiver) Delete(ctx context.Context, objectKey string) error {
	return a.bucket.DeleteObject(a.getFullKey(objectKey), oss.WithContext(ctx))
}

// GetURL 获取归档 URL
func (a *AliyunArchiver) GetURL(objectKey string) string {
	fullKey := a.getFullKey(objectKey)
	if a.config.Domain != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(a.config.Domain, "/"), fullKey)
	}
	return fmt.Sprintf("https://%s.%s/%s", a.config.BucketName, a.config.Endpoint, fullKey)
}

func (a *AliyunArchiver) getFullKey(objectKey string) string {
	if a.config.BasePath == "" {
		return objectKey
	}
	return path.Join(a.config.BasePath, objectKey)
}

// ArchiveKey 生成归档对象键：{prefix}/{yyyy/mm/dd}/{batchNo}{ext}
func ArchiveKey(prefix, batchNo, filename string, at time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("%s/%s%s", at.Format("2006/01/02"), batchNo, ext)
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}

// GetContentType 根据扩展名获取表格的 Content-Type
func GetContentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xlsm":
		return "application/vnd.ms-excel.sheet.macroEnabled.12"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

// MockArchiver 内存归档（用于开发/测试）
type MockArchiver struct {
	mu    sync.Mutex
	Files map[string][]byte
	Meta  map[string]map[string]string
}

// NewMockArchiver 创建内存归档
func NewMockArchiver() *MockArchiver {
	return &MockArchiver{
		Files: make(map[string][]byte),
		Meta:  make(map[string]map[string]string),
	}
}

// Archive 保存到内存
func (m *MockArchiver) Archive(_ context.Context, objectKey string, data []byte, meta map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files[objectKey] = append([]byte(nil), data...)
	m.Meta[objectKey] = meta
	return m.GetURL(objectKey), nil
}

// Delete 从内存删除
func (m *MockArchiver) Delete(_ context.Context, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Files, objectKey)
	delete(m.Meta, objectKey)
	return nil
}

// GetURL 获取模拟 URL
func (m *MockArchiver) GetURL(objectKey string) string {
	return fmt.Sprintf("https://mock-oss.example.com/%s", objectKey)
}

// Has 是否已归档
func (m *MockArchiver) Has(objectKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Files[objectKey]
	return ok
}
