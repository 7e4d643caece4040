// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// 业务错误哨兵。handler 层用 errors.Is 将其映射到 HTTP 状态码：
// ErrNotFound -> 404, ErrConflict -> 409, ErrForbidden -> 403, ErrValidation -> 400，
// 其余错误一律视为 500。
var (
	ErrNotFound   = errors.New("记录不存在")
	ErrConflict   = errors.New("状态冲突")
	ErrForbidden  = errors.New("权限不足")
	ErrValidation = errors.New("请求参数无效")
)
