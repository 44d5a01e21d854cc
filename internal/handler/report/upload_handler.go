// Package report 提供周报上传与查询的 HTTP Handler
package report

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/weekly-report-backend/internal/common/errors"
	"github.com/dumeirei/weekly-report-backend/internal/middleware"
	reportService "github.com/dumeirei/weekly-report-backend/internal/service/report"
)

// UploadHandler 表格上传处理器
type UploadHandler struct {
	uploadService *reportService.UploadService
	maxFileSize   int64
}

// NewUploadHandler 创建表格上传处理器
func NewUploadHandler(uploadSvc *reportService.UploadService, maxFileSize int64) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadSvc,
		maxFileSize:   maxFileSize,
	}
}

// UploadErrorResponse 上传失败响应
type UploadErrorResponse struct {
	Error          string                     `json:"error"`
	Code           int                        `json:"code,omitempty"`
	Headers        []string                   `json:"headers,omitempty"`
	RowCount       *int                       `json:"rowCount,omitempty"`
	Dropped        map[string]int             `json:"dropped,omitempty"`
	WeeksProcessed *int                       `json:"weeksProcessed,omitempty"`
	Detail         []reportService.WeekDetail `json:"detail,omitempty"`
}

// Upload 上传销售流水表格
// @Summary 上传销售流水表格
// @Description 解析第一个工作表，按周写入流水并重新计算周营收统计。支持 xlsx/xlsm/csv
// @Tags 周报
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param file formData file true "表格文件"
// @Param report_id formData int false "目标周报 ID，仅导入该周流水"
// @Param format formData string false "表格格式" Enums(weekly, migration)
// @Success 200 {object} reportService.UploadResult
// @Failure 400 {object} UploadErrorResponse
// @Failure 500 {object} UploadErrorResponse
// @Router /api/v1/reports/upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, UploadErrorResponse{Error: "file is required"})
		return
	}
	if h.maxFileSize > 0 && fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, UploadErrorResponse{
			Error: fmt.Sprintf("file exceeds %d bytes", h.maxFileSize),
			Code:  errors.ErrFileTooLarge.Code,
		})
		return
	}

	req := &reportService.UploadRequest{
		FileName: fileHeader.Filename,
		Format:   c.PostForm("format"),
	}

	if raw := c.PostForm("report_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, UploadErrorResponse{Error: "invalid report_id"})
			return
		}
		req.ReportID = &id
	}
	if operatorID := middleware.GetOperatorID(c); operatorID > 0 {
		req.OperatorID = &operatorID
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, UploadErrorResponse{Error: "cannot open uploaded file"})
		return
	}
	defer file.Close()

	req.Content, err = io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, UploadErrorResponse{Error: "cannot read uploaded file"})
		return
	}

	result, err := h.uploadService.Upload(c.Request.Context(), req)
	if err != nil {
		status, body := uploadError(result, err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, result)
}

// uploadError 批次级错误返回 400 及诊断信息，存储失败返回 500 及逐周结果
func uploadError(result *reportService.UploadResult, err error) (int, UploadErrorResponse) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError, UploadErrorResponse{Error: err.Error()}
	}

	body := UploadErrorResponse{Error: appErr.Error(), Code: appErr.Code}
	if appErr.Code == errors.ErrWeekIngestFailed.Code || appErr.Code == errors.ErrDatabaseError.Code {
		if result != nil {
			body.WeeksProcessed = &result.WeeksProcessed
			body.Detail = result.Detail
		}
		return http.StatusInternalServerError, body
	}

	body.Error = appErr.Message
	if result != nil && result.Parse != nil {
		body.Headers = result.Parse.Headers
		body.RowCount = &result.Parse.RowCount
		body.Dropped = result.Parse.Dropped
	}
	return http.StatusBadRequest, body
}
