// Package handler 按业务拆分的 HTTP Handler，具体实现位于子包中
//
// 保留本文件使 `swag init --dir ./internal/handler` 能把该目录识别为合法包。
package handler
