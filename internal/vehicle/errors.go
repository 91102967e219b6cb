package vehicle

import (
	"errors"
	"fmt"
)

// 领域错误分类：服务层只向外暴露这些类型，
// 传输层据此做一次性的状态码映射（见 http_server.go 的 statusOf）。
var (
	// ErrNotFound 车辆不存在。
	ErrNotFound = errors.New("vehicle not found")

	// ErrAlreadySold 该车辆已存在销售记录（草稿或已成交），
	// 不允许重复发起销售，也不允许对已成交记录再次确认/撤销。
	ErrAlreadySold = errors.New("vehicle already sold")

	// ErrSaleNotInitialized 车辆尚未发起销售，确认/撤销无从谈起。
	ErrSaleNotInitialized = errors.New("sale not initialized")
)

// ValidationError 入参字段校验失败：记录字段名与被违反的约束。
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Constraint)
}

// ConflictError 存储层唯一约束冲突（如 model 重复）。
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// StorageError 不可本地恢复的底层存储错误的统一包装。
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
