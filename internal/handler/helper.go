package handler

import (
	stderrors "errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/bingooyong/apphub/internal/formatter"
	"github.com/bingooyong/apphub/internal/middleware"
	"github.com/bingooyong/apphub/internal/service"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/bingooyong/apphub/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// multipartMemory 解析 multipart 时保留在内存中的上限，超出部分写入临时文件
const multipartMemory = 8 << 20

// parseIntQuery 解析整数查询参数
func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// parseUUIDParam 解析URL路径参数为UUID，失败时写入400响应
func parseUUIDParam(c *gin.Context, key string) (uuid.UUID, bool) {
	value, err := uuid.Parse(c.Param(key))
	if err != nil {
		response.Error(c, errors.ErrInvalidParamsMsg.WithDetails("invalid "+key))
		return uuid.Nil, false
	}
	return value, true
}

// requireActor 获取已认证的调用者，未认证时写入401响应
func requireActor(c *gin.Context) (*service.Actor, bool) {
	actor := middleware.GetActor(c)
	if actor == nil {
		response.Error(c, errors.ErrUnauthorizedMsg)
		return nil, false
	}
	return actor, true
}

// handleError 将服务层错误写入响应，服务器错误额外记录日志
func handleError(c *gin.Context, logger *zap.Logger, err error) {
	if apiErr, ok := errors.As(err); ok {
		if apiErr.GetHTTPStatus() >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}
		response.Error(c, apiErr)
		return
	}

	logger.Error("unexpected error",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	response.Error(c, errors.ErrInternalServerMsg)
}

// bindError 请求体解析失败
func bindError(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		response.Error(c, errors.ErrPayloadTooLargeMsg)
		return
	}
	response.BadRequest(c, "参数错误: "+err.Error())
}

// parseMultipart 解析 multipart 表单
func parseMultipart(c *gin.Context) (*multipart.Form, bool) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		bindError(c, err)
		return nil, false
	}
	return c.Request.MultipartForm, true
}

// readFormFile 读取上传的文件内容
func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// readRequiredFile 读取必填的上传文件，缺失或读取失败时写入错误响应
func readRequiredFile(c *gin.Context, files []*multipart.FileHeader) ([]byte, bool) {
	if len(files) == 0 {
		response.Error(c, errors.ErrInvalidParamsMsg.WithDetails("file is required"))
		return nil, false
	}
	data, err := readFormFile(files[0])
	if err != nil {
		bindError(c, err)
		return nil, false
	}
	return data, true
}

// formatOptions 构造格式化参数
func formatOptions(c *gin.Context, publicURL string) formatter.Options {
	return formatter.Options{ServerURL: formatter.ServerURL(c.Request, publicURL)}
}
