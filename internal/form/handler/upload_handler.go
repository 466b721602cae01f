package handler

import (
	"github.com/formkite/formkite/internal/form/service"
	"github.com/gin-gonic/gin"
)

// UploadHandler 文件上传处理器
type UploadHandler struct {
	uploadService *service.UploadService
}

// NewUploadHandler 创建文件上传处理器
func NewUploadHandler(uploadService *service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Upload 处理文件上传
// POST /api/v1/upload
func (h *UploadHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, "无法解析上传文件: "+err.Error())
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		// 也尝试获取单文件
		files = form.File["file"]
	}
	if len(files) == 0 {
		BadRequest(c, "没有上传文件")
		return
	}

	var uploaded []service.UploadedFile

	for _, fileHeader := range files {
		src, err := fileHeader.Open()
		if err != nil {
			InternalError(c, "读取上传文件失败: "+err.Error())
			return
		}

		file, err := h.uploadService.Upload(c.Request.Context(), src,
			fileHeader.Filename, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
		src.Close()
		if err != nil {
			InternalError(c, "保存文件失败: "+err.Error())
			return
		}
		uploaded = append(uploaded, *file)
	}

	Success(c, uploaded)
}
