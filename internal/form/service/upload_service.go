package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/formkite/formkite/internal/config"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// UploadService 文件与图片上传服务
type UploadService struct {
	minioClient   *minio.Client
	minioCfg      config.MinIOConfig
	publicBaseURL string
	localDir      string
}

// NewUploadService 创建上传服务。没有MinIO时回退到本地磁盘。
func NewUploadService(minioClient *minio.Client, minioCfg config.MinIOConfig, publicBaseURL string) *UploadService {
	return &UploadService{
		minioClient:   minioClient,
		minioCfg:      minioCfg,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		localDir:      "./uploads",
	}
}

// UploadedFile 上传结果
type UploadedFile struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Upload 保存一个上传文件并返回可访问的URL
func (s *UploadService) Upload(ctx context.Context, reader io.Reader, filename string, size int64, contentType string) (*UploadedFile, error) {
	fileID := uuid.New().String()[:32]
	objectName := fmt.Sprintf("uploads/%s/%s%s",
		time.Now().Format("2006/01"), fileID, filepath.Ext(filename))

	if s.minioClient != nil {
		_, err := s.minioClient.PutObject(ctx, s.minioCfg.Bucket, objectName, reader, size, minio.PutObjectOptions{
			ContentType: contentType,
		})
		if err != nil {
			return nil, fmt.Errorf("upload file: %w", err)
		}
		scheme := "http"
		if s.minioCfg.UseSSL {
			scheme = "https"
		}
		return &UploadedFile{
			ID:          fileID,
			URL:         fmt.Sprintf("%s://%s/%s/%s", scheme, s.minioCfg.Endpoint, s.minioCfg.Bucket, objectName),
			Filename:    filename,
			Size:        size,
			ContentType: contentType,
		}, nil
	}

	// 本地磁盘回退
	savePath := filepath.Join(s.localDir, objectName)
	if err := os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	dst, err := os.Create(savePath)
	if err != nil {
		return nil, fmt.Errorf("save file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, reader); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	return &UploadedFile{
		ID:          fileID,
		URL:         s.publicBaseURL + "/" + objectName,
		Filename:    filename,
		Size:        size,
		ContentType: contentType,
	}, nil
}
