package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode 错误码
type ErrorCode int

const (
	// 0: 成功
	Success ErrorCode = 0

	// 1xxx: 客户端错误
	ErrInvalidParams      ErrorCode = 1001 // 参数错误
	ErrUnauthorized       ErrorCode = 1002 // 未授权
	ErrForbidden          ErrorCode = 1003 // 禁止访问
	ErrNotFound           ErrorCode = 1004 // 资源不存在
	ErrConflict           ErrorCode = 1005 // 资源冲突
	ErrTooManyRequests    ErrorCode = 1006 // 请求过多
	ErrInvalidToken       ErrorCode = 1007 // Token无效
	ErrTokenExpired       ErrorCode = 1008 // Token过期
	ErrInvalidCredentials ErrorCode = 1009 // 用户名或密码错误
	ErrPayloadTooLarge    ErrorCode = 1010 // 上传内容过大
	ErrInvalidAPIKey      ErrorCode = 1011 // API Key无效

	// 2xxx: 业务错误
	ErrAppNotFound               ErrorCode = 2001 // 应用不存在
	ErrAppAlreadyExists          ErrorCode = 2002 // 应用已存在
	ErrOrganisationNotFound      ErrorCode = 2003 // 组织不存在
	ErrOrganisationAlreadyExists ErrorCode = 2004 // 组织已存在
	ErrOrganisationHasApps       ErrorCode = 2005 // 组织下仍有应用
	ErrAlreadyMember             ErrorCode = 2006 // 用户已是组织成员
	ErrUserNotFound              ErrorCode = 2007 // 用户不存在
	ErrUserDisabled              ErrorCode = 2008 // 用户已禁用
	ErrUserAlreadyExists         ErrorCode = 2009 // 用户已存在
	ErrChannelNotFound           ErrorCode = 2010 // 渠道不存在
	ErrChannelAlreadyExists      ErrorCode = 2011 // 渠道已存在
	ErrMediaNotFound             ErrorCode = 2012 // 媒体不存在
	ErrNotOrganisationMember     ErrorCode = 2013 // 非组织成员
	ErrInvalidStatusTransition   ErrorCode = 2014 // 非法的状态流转
	ErrInvalidImage              ErrorCode = 2015 // 图片无效
	ErrArchiveNotFound           ErrorCode = 2016 // 应用包不存在
	ErrAPIKeyNotFound            ErrorCode = 2017 // 未生成 API Key

	// 3xxx: 版本管理错误
	ErrVersionNotFound      ErrorCode = 3001 // 版本不存在
	ErrVersionAlreadyExists ErrorCode = 3002 // 版本已存在
	ErrInvalidVersion       ErrorCode = 3005 // 版本号无效
	ErrAmbiguousDownload    ErrorCode = 3008 // 下载匹配到多个版本

	// 5xxx: 服务器内部错误
	ErrInternalServer ErrorCode = 5001 // 服务器内部错误
	ErrDatabase       ErrorCode = 5002 // 数据库错误（事务失败）
	ErrStorage        ErrorCode = 5005 // 存储读写错误
)

// APIError API错误
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"` // 详细错误信息（可选）
}

// Error 实现error接口
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Is 按错误码比较，使 errors.Is 可以匹配预定义错误
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建API错误
func New(code ErrorCode, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装标准错误
func Wrap(code ErrorCode, message string, err error) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: err.Error(),
	}
}

// WithDetails 基于预定义错误生成带详细信息的副本
func (e *APIError) WithDetails(details string) *APIError {
	return &APIError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// As 从错误链中取出 APIError
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// 预定义的错误
var (
	// 客户端错误
	ErrInvalidParamsMsg      = New(ErrInvalidParams, "参数错误")
	ErrUnauthorizedMsg       = New(ErrUnauthorized, "未授权")
	ErrForbiddenMsg          = New(ErrForbidden, "禁止访问")
	ErrNotFoundMsg           = New(ErrNotFound, "资源不存在")
	ErrConflictMsg           = New(ErrConflict, "资源冲突")
	ErrTooManyRequestsMsg    = New(ErrTooManyRequests, "请求过多")
	ErrInvalidTokenMsg       = New(ErrInvalidToken, "Token无效")
	ErrTokenExpiredMsg       = New(ErrTokenExpired, "Token已过期")
	ErrInvalidCredentialsMsg = New(ErrInvalidCredentials, "用户名或密码错误")
	ErrPayloadTooLargeMsg    = New(ErrPayloadTooLarge, "上传内容过大")
	ErrInvalidAPIKeyMsg      = New(ErrInvalidAPIKey, "API Key无效")

	// 业务错误
	ErrAppNotFoundMsg               = New(ErrAppNotFound, "应用不存在")
	ErrAppAlreadyExistsMsg          = New(ErrAppAlreadyExists, "应用已存在")
	ErrOrganisationNotFoundMsg      = New(ErrOrganisationNotFound, "组织不存在")
	ErrOrganisationAlreadyExistsMsg = New(ErrOrganisationAlreadyExists, "组织已存在")
	ErrOrganisationHasAppsMsg       = New(ErrOrganisationHasApps, "组织下仍有应用")
	ErrAlreadyMemberMsg             = New(ErrAlreadyMember, "用户已是组织成员")
	ErrUserNotFoundMsg              = New(ErrUserNotFound, "用户不存在")
	ErrUserDisabledMsg              = New(ErrUserDisabled, "用户已禁用")
	ErrUserAlreadyExistsMsg         = New(ErrUserAlreadyExists, "用户已存在")
	ErrChannelNotFoundMsg           = New(ErrChannelNotFound, "渠道不存在")
	ErrChannelAlreadyExistsMsg      = New(ErrChannelAlreadyExists, "渠道已存在")
	ErrMediaNotFoundMsg             = New(ErrMediaNotFound, "媒体不存在")
	ErrNotOrganisationMemberMsg     = New(ErrNotOrganisationMember, "非组织成员")
	ErrInvalidStatusTransitionMsg   = New(ErrInvalidStatusTransition, "非法的状态流转")
	ErrInvalidImageMsg              = New(ErrInvalidImage, "图片无效")
	ErrArchiveNotFoundMsg           = New(ErrArchiveNotFound, "应用包不存在")
	ErrAPIKeyNotFoundMsg            = New(ErrAPIKeyNotFound, "未生成 API Key")

	// 版本管理错误
	ErrVersionNotFoundMsg      = New(ErrVersionNotFound, "版本不存在")
	ErrVersionAlreadyExistsMsg = New(ErrVersionAlreadyExists, "版本已存在")
	ErrInvalidVersionMsg       = New(ErrInvalidVersion, "版本号无效")
	ErrAmbiguousDownloadMsg    = New(ErrAmbiguousDownload, "下载匹配到多个版本")

	// 服务器错误
	ErrInternalServerMsg = New(ErrInternalServer, "服务器内部错误")
	ErrDatabaseMsg       = New(ErrDatabase, "数据库错误")
	ErrStorageMsg        = New(ErrStorage, "存储错误")
)

// GetHTTPStatus 获取HTTP状态码
func (e *APIError) GetHTTPStatus() int {
	switch {
	case e.Code >= 1000 && e.Code < 2000:
		// 客户端错误
		switch e.Code {
		case ErrUnauthorized, ErrInvalidToken, ErrTokenExpired, ErrInvalidCredentials, ErrInvalidAPIKey:
			return 401
		case ErrForbidden:
			return 403
		case ErrNotFound:
			return 404
		case ErrConflict:
			return 409
		case ErrPayloadTooLarge:
			return 413
		case ErrTooManyRequests:
			return 429
		default:
			return 400
		}
	case e.Code >= 2000 && e.Code < 4000:
		// 业务错误
		switch e.Code {
		case ErrAppNotFound, ErrOrganisationNotFound, ErrUserNotFound, ErrChannelNotFound,
			ErrMediaNotFound, ErrVersionNotFound, ErrArchiveNotFound, ErrAPIKeyNotFound:
			return 404
		case ErrAppAlreadyExists, ErrOrganisationAlreadyExists, ErrOrganisationHasApps, ErrAlreadyMember,
			ErrUserAlreadyExists, ErrChannelAlreadyExists, ErrVersionAlreadyExists, ErrAmbiguousDownload:
			return 409
		case ErrUserDisabled, ErrNotOrganisationMember:
			return 403
		default:
			return 400
		}
	case e.Code >= 5000:
		// 服务器错误
		return 500
	default:
		return 500
	}
}
