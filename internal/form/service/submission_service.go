package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/formkite/formkite/internal/form/entity"
	"github.com/formkite/formkite/internal/form/repository"
	"github.com/formkite/formkite/internal/form/sse"
	"github.com/xuri/excelize/v2"
)

// ValidationError 提交时必填项缺失
type ValidationError struct {
	Missing []string `json:"missing_fields"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %v", e.Missing)
}

// SubmissionService 表单提交与审阅服务
type SubmissionService struct {
	submissionRepo *repository.SubmissionRepository
	templateRepo   *repository.TemplateRepository
	assignmentRepo *repository.AssignmentRepository
	noteRepo       *repository.NoteRepository
	hub            *sse.Hub
}

// NewSubmissionService 创建表单提交服务
func NewSubmissionService(submissionRepo *repository.SubmissionRepository, templateRepo *repository.TemplateRepository, assignmentRepo *repository.AssignmentRepository, noteRepo *repository.NoteRepository, hub *sse.Hub) *SubmissionService {
	return &SubmissionService{
		submissionRepo: submissionRepo,
		templateRepo:   templateRepo,
		assignmentRepo: assignmentRepo,
		noteRepo:       noteRepo,
		hub:            hub,
	}
}

// FormOverview 用户表单列表中的一项
type FormOverview struct {
	TemplateID   string     `json:"template_id"`
	TemplateName string     `json:"template_name"`
	IsPredefined bool       `json:"is_predefined"`
	Status       string     `json:"status"`
	LastUpdated  *time.Time `json:"last_updated,omitempty"`
}

// Overview 列出用户可填写的所有表单及各自进度
func (s *SubmissionService) Overview(ctx context.Context, userID string) ([]FormOverview, error) {
	templates, err := s.templateRepo.List(ctx, false)
	if err != nil {
		return nil, err
	}
	subs, err := s.submissionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byTemplate := make(map[string]*entity.Submission, len(subs))
	for i := range subs {
		byTemplate[subs[i].FormTemplateID] = &subs[i]
	}

	out := make([]FormOverview, 0, len(templates))
	for _, t := range templates {
		item := FormOverview{
			TemplateID:   t.ID,
			TemplateName: t.Name,
			IsPredefined: t.IsPredefined,
			Status:       "not_started",
		}
		if sub, ok := byTemplate[t.ID]; ok {
			item.Status = sub.Status
			item.LastUpdated = &sub.LastUpdated
		}
		out = append(out, item)
	}
	return out, nil
}

// FormView 单个表单的渲染结果
type FormView struct {
	TemplateID   string                 `json:"template_id"`
	TemplateName string                 `json:"template_name"`
	Status       string                 `json:"status"`
	Editable     bool                   `json:"editable"`
	Fields       []entity.RenderedField `json:"fields"`
	FormData     entity.JSONB           `json:"form_data"`
	LastUpdated  *time.Time             `json:"last_updated,omitempty"`
}

// RenderForm 为填写者渲染表单：字段定义合并已保存的数据
func (s *SubmissionService) RenderForm(ctx context.Context, userID, templateID string) (*FormView, error) {
	tmpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	sub, err := s.submissionRepo.FindByUserAndTemplate(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}

	view := &FormView{
		TemplateID:   tmpl.ID,
		TemplateName: tmpl.Name,
		Status:       "not_started",
		Editable:     true,
		FormData:     entity.JSONB{},
	}
	if sub != nil {
		view.Status = sub.Status
		view.Editable = !sub.Completed()
		view.FormData = sub.FormData
		view.LastUpdated = &sub.LastUpdated
	}
	view.Fields = tmpl.Fields.RenderPlan(view.FormData, view.Editable, false)
	return view, nil
}

// coerce 按字段定义校验并转换提交数据，未知字段键被拒绝
func coerce(fields entity.FieldList, formData map[string]interface{}) (entity.JSONB, error) {
	out := make(entity.JSONB, len(formData))
	for key, raw := range formData {
		idx := fields.Find(key)
		if idx < 0 {
			return nil, fmt.Errorf("unknown field %q", key)
		}
		v, err := fields[idx].CoerceValue(raw)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out[key] = v
		}
	}
	return out, nil
}

// SaveDraft 保存草稿，首次保存时创建提交记录
func (s *SubmissionService) SaveDraft(ctx context.Context, userID, templateID string, formData map[string]interface{}) (*entity.Submission, error) {
	tmpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	data, err := coerce(tmpl.Fields, formData)
	if err != nil {
		return nil, err
	}

	sub, created, err := s.submissionRepo.SaveDraft(ctx, &entity.Submission{
		ID:             generateID(),
		UserID:         userID,
		FormTemplateID: templateID,
		FormData:       data,
	})
	if err != nil {
		return nil, err
	}

	event := sse.EventSubmissionUpdated
	if created {
		event = sse.EventSubmissionCreated
	}
	s.hub.BroadcastChange(event, map[string]interface{}{
		"submission_id": sub.ID,
		"user_id":       sub.UserID,
		"template_id":   sub.FormTemplateID,
		"status":        sub.Status,
	})
	return sub, nil
}

// Submit 提交表单。必填项缺失返回 ValidationError，已完成的提交
// 返回 repository.ErrCompleted。
func (s *SubmissionService) Submit(ctx context.Context, userID, templateID string, formData map[string]interface{}) (*entity.Submission, error) {
	tmpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	data, err := coerce(tmpl.Fields, formData)
	if err != nil {
		return nil, err
	}
	if missing := tmpl.Fields.MissingRequired(data); len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	sub, _, err := s.submissionRepo.Complete(ctx, &entity.Submission{
		ID:             generateID(),
		UserID:         userID,
		FormTemplateID: templateID,
		FormData:       data,
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastChange(sse.EventSubmissionUpdated, map[string]interface{}{
		"submission_id": sub.ID,
		"user_id":       sub.UserID,
		"template_id":   sub.FormTemplateID,
		"status":        sub.Status,
	})
	return sub, nil
}

// ReviewList 审阅队列。管理员只看到名下用户的提交，敏感字段按
// 查看者的访问级别脱敏。
func (s *SubmissionService) ReviewList(ctx context.Context, viewer *entity.User, f repository.ReviewFilter) ([]repository.ReviewItem, int64, error) {
	if viewer.Role != entity.RoleSuperAdmin {
		f.AdminID = viewer.ID
	}
	items, total, err := s.submissionRepo.ListForReview(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	if !viewer.SeesSensitive() {
		fieldsByTemplate, err := s.templateFields(ctx, items)
		if err != nil {
			return nil, 0, err
		}
		for i := range items {
			if fields, ok := fieldsByTemplate[items[i].FormTemplateID]; ok {
				items[i].FormData = fields.Redact(items[i].FormData)
			}
		}
	}
	return items, total, nil
}

func (s *SubmissionService) templateFields(ctx context.Context, items []repository.ReviewItem) (map[string]entity.FieldList, error) {
	out := make(map[string]entity.FieldList)
	for _, item := range items {
		if _, ok := out[item.FormTemplateID]; ok {
			continue
		}
		tmpl, err := s.templateRepo.FindByID(ctx, item.FormTemplateID)
		if err != nil {
			return nil, err
		}
		out[item.FormTemplateID] = tmpl.Fields
	}
	return out, nil
}

// ReviewDetail 审阅单条提交的只读渲染
type ReviewDetail struct {
	Submission   *entity.Submission     `json:"submission"`
	TemplateName string                 `json:"template_name"`
	Fields       []entity.RenderedField `json:"fields"`
	Notes        []entity.AdminNote     `json:"notes"`
}

// GetReviewDetail 获取提交详情。管理员只能查看名下用户的提交。
func (s *SubmissionService) GetReviewDetail(ctx context.Context, viewer *entity.User, submissionID string) (*ReviewDetail, error) {
	sub, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkReviewAccess(ctx, viewer, sub.UserID); err != nil {
		return nil, err
	}

	tmpl, err := s.templateRepo.FindByID(ctx, sub.FormTemplateID)
	if err != nil {
		return nil, err
	}
	notes, err := s.noteRepo.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	redact := !viewer.SeesSensitive()
	return &ReviewDetail{
		Submission:   sub,
		TemplateName: tmpl.Name,
		Fields:       tmpl.Fields.RenderPlan(sub.FormData, false, redact),
		Notes:        notes,
	}, nil
}

// AddNote 为提交追加批注（批注只增不改）
func (s *SubmissionService) AddNote(ctx context.Context, viewer *entity.User, submissionID, text string) (*entity.AdminNote, error) {
	if text == "" {
		return nil, fmt.Errorf("note text is required")
	}
	sub, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkReviewAccess(ctx, viewer, sub.UserID); err != nil {
		return nil, err
	}

	note := &entity.AdminNote{
		ID:           generateID(),
		SubmissionID: submissionID,
		AdminID:      viewer.ID,
		Note:         text,
		CreatedAt:    time.Now(),
	}
	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	note.AdminName = viewer.Name

	s.hub.BroadcastChange(sse.EventNoteCreated, map[string]interface{}{
		"submission_id": submissionID,
		"note_id":       note.ID,
		"admin_id":      viewer.ID,
	})
	return note, nil
}

// ListNotes 获取提交的批注列表
func (s *SubmissionService) ListNotes(ctx context.Context, viewer *entity.User, submissionID string) ([]entity.AdminNote, error) {
	sub, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkReviewAccess(ctx, viewer, sub.UserID); err != nil {
		return nil, err
	}
	return s.noteRepo.ListBySubmission(ctx, submissionID)
}

func (s *SubmissionService) checkReviewAccess(ctx context.Context, viewer *entity.User, ownerID string) error {
	if viewer.Role == entity.RoleSuperAdmin {
		return nil
	}
	ok, err := s.assignmentRepo.Exists(ctx, viewer.ID, ownerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

var reviewExportHeaders = []string{
	"用户邮箱", "用户姓名", "表单模板", "状态", "最后更新", "表单内容",
}

// Export 导出审阅队列为xlsx，可见范围与脱敏规则和列表一致
func (s *SubmissionService) Export(ctx context.Context, viewer *entity.User, f repository.ReviewFilter) (*excelize.File, string, error) {
	f.Page = 0
	f.PageSize = 0
	items, _, err := s.ReviewList(ctx, viewer, f)
	if err != nil {
		return nil, "", err
	}

	xf := excelize.NewFile()
	sheet := "Submissions"
	xf.SetSheetName("Sheet1", sheet)

	boldStyle, _ := xf.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range reviewExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		xf.SetCellValue(sheet, cell, h)
		xf.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx, item := range items {
		row := rowIdx + 2
		xf.SetCellValue(sheet, fmt.Sprintf("A%d", row), item.UserEmail)
		xf.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.UserName)
		xf.SetCellValue(sheet, fmt.Sprintf("C%d", row), item.TemplateName)
		xf.SetCellValue(sheet, fmt.Sprintf("D%d", row), item.Status)
		xf.SetCellValue(sheet, fmt.Sprintf("E%d", row), item.LastUpdated.Format("2006-01-02 15:04:05"))
		data, _ := json.Marshal(item.FormData)
		xf.SetCellValue(sheet, fmt.Sprintf("F%d", row), string(data))
	}

	colWidths := []float64{24, 14, 20, 12, 20, 60}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		xf.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("submissions_%s.xlsx", time.Now().Format("20060102_150405"))
	return xf, filename, nil
}
