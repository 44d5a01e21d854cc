package report

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/weekly-report-backend/internal/common/handler"
	"github.com/dumeirei/weekly-report-backend/internal/common/response"
	"github.com/dumeirei/weekly-report-backend/internal/repository"
	reportService "github.com/dumeirei/weekly-report-backend/internal/service/report"
)

// Handler 周报查询处理器
type Handler struct {
	queryService *reportService.QueryService
}

// NewHandler 创建周报查询处理器
func NewHandler(querySvc *reportService.QueryService) *Handler {
	return &Handler{queryService: querySvc}
}

// List 周报列表
// @Summary 周报列表
// @Tags 周报
// @Produce json
// @Security Bearer
// @Param year query int false "年份"
// @Param month query int false "月份"
// @Param status query string false "状态" Enums(draft, published)
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/reports [get]
func (h *Handler) List(c *gin.Context) {
	year, ok := handler.ParseQueryInt(c, "year")
	if !ok {
		return
	}
	month, ok := handler.ParseQueryInt(c, "month")
	if !ok {
		return
	}
	p := handler.BindPagination(c)

	filter := &repository.WeeklyReportFilter{
		Year:   year,
		Month:  month,
		Status: c.Query("status"),
	}
	list, total, err := h.queryService.ListReports(c.Request.Context(), filter, p)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// Get 周报看板
// @Summary 周报看板
// @Description 返回周报、毛/净营收统计和商品结构
// @Tags 周报
// @Produce json
// @Security Bearer
// @Param id path int true "周报 ID"
// @Success 200 {object} response.Response{data=reportService.Dashboard}
// @Router /api/v1/reports/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "report")
	if !ok {
		return
	}
	dashboard, err := h.queryService.GetDashboard(c.Request.Context(), id)
	handler.MustSucceed(c, err, dashboard)
}

// UpdateStatusRequest 更新状态请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=draft published"`
}

// UpdateStatus 更新周报状态
// @Summary 更新周报状态
// @Tags 周报
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "周报 ID"
// @Param request body UpdateStatusRequest true "状态"
// @Success 200 {object} response.Response
// @Router /api/v1/reports/{id}/status [put]
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := handler.ParseID(c, "report")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status must be draft or published")
		return
	}
	err := h.queryService.UpdateStatus(c.Request.Context(), id, req.Status)
	handler.MustSucceed(c, err, nil)
}

// ListTransactions 某周流水
// @Summary 某周销售流水
// @Tags 周报
// @Produce json
// @Security Bearer
// @Param id path int true "周报 ID"
// @Param status query string false "流水状态（결/환）"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/reports/{id}/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	id, ok := handler.ParseID(c, "report")
	if !ok {
		return
	}
	p := handler.BindPagination(c)
	list, total, err := h.queryService.ListTransactions(c.Request.Context(), id, c.Query("status"), p)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// ListUploads 上传记录
// @Summary 表格上传记录
// @Tags 周报
// @Produce json
// @Security Bearer
// @Param status query string false "结果" Enums(success, partial, failed)
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/uploads [get]
func (h *Handler) ListUploads(c *gin.Context) {
	p := handler.BindPagination(c)
	list, total, err := h.queryService.ListUploads(c.Request.Context(), c.Query("status"), p)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}
