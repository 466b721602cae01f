package service

import (
	"errors"

	"github.com/formkite/formkite/internal/config"
	"github.com/formkite/formkite/internal/form/repository"
	"github.com/formkite/formkite/internal/form/sse"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
)

// 服务层错误
var (
	ErrForbidden       = errors.New("not permitted")
	ErrAlreadyAssigned = errors.New("already assigned")
	ErrInvalidRole     = errors.New("invalid role")
)

// Services 服务集合
type Services struct {
	Auth       *AuthService
	Template   *TemplateService
	Submission *SubmissionService
	Assignment *AssignmentService
	Upload     *UploadService
	Hub        *sse.Hub
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config) *Services {
	hub := sse.NewHub()

	// 初始化MinIO客户端
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			// 无MinIO时回退到本地磁盘存储
			minioClient = nil
		}
	}

	assignment := NewAssignmentService(repos.Assignment, repos.User)

	return &Services{
		Auth:       NewAuthService(repos.User, assignment, rdb, cfg),
		Template:   NewTemplateService(repos.Template),
		Submission: NewSubmissionService(repos.Submission, repos.Template, repos.Assignment, repos.Note, hub),
		Assignment: assignment,
		Upload:     NewUploadService(minioClient, cfg.MinIO, cfg.Server.PublicBaseURL),
		Hub:        hub,
	}
}
