// Package handler 汇集各 Handler 共用的参数解析和错误响应
package handler

import (
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/weekly-report-backend/internal/common/errors"
	"github.com/dumeirei/weekly-report-backend/internal/common/logger"
	"github.com/dumeirei/weekly-report-backend/internal/common/response"
	"github.com/dumeirei/weekly-report-backend/internal/common/utils"
)

// HandleError 写出错误响应，返回 true 时调用方应直接 return
// 业务错误按错误码返回，其余错误记录日志后返回 500
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		logger.Error("unhandled error",
			logger.RequestID(c.GetString("request_id")),
			logger.Path(c.FullPath()),
			logger.Err(err),
		)
		response.InternalError(c, err.Error())
		return true
	}

	response.Error(c, appErr.Code, appErr.Message)
	return true
}

// MustSucceed 无错误时返回 data
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if !HandleError(c, err) {
		response.Success(c, data)
	}
}

// MustSucceedPage 无错误时返回分页列表
func MustSucceedPage(c *gin.Context, err error, list interface{}, total int64, page, pageSize int) {
	if !HandleError(c, err) {
		response.SuccessPage(c, list, total, page, pageSize)
	}
}

// ParseID 读取路径参数 id，必须为正整数
// 失败时已写出 400 响应
func ParseID(c *gin.Context, resourceName string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err == nil && id > 0 {
		return id, true
	}
	response.BadRequest(c, "invalid "+resourceName+" id")
	return 0, false
}

// ParseQueryInt 读取可选整数查询参数，缺省时返回 nil
func ParseQueryInt(c *gin.Context, name string) (*int, bool) {
	raw, present := c.GetQuery(name)
	raw = strings.TrimSpace(raw)
	if !present || raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return nil, false
	}
	return &v, true
}

// BindPagination 读取 page/page_size，非法值按默认处理
func BindPagination(c *gin.Context) utils.Pagination {
	p := utils.Pagination{
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}
	p.Normalize()
	return p
}

func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}
