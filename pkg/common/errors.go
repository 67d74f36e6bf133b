package common

import "errors"

var (
	// ErrNotFound 未找到错误
	ErrNotFound = errors.New("not found")

	// ErrInvalidState 非法状态转换错误
	ErrInvalidState = errors.New("invalid state")

	// ErrAlreadyFinalized 比赛已结算错误，重复结算时返回，调用方按幂等信号处理
	ErrAlreadyFinalized = errors.New("match already finalized")

	// ErrMalformedPredicate 预测内容无法解析错误，只在投注结算内部使用
	ErrMalformedPredicate = errors.New("malformed predicate")

	// ErrInvalidInput 无效输入错误
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoActiveSeason 当前没有激活的赛季
	ErrNoActiveSeason = errors.New("no active season")

	// ErrSimulationRunning 该比赛已有正在进行的直播模拟
	ErrSimulationRunning = errors.New("live simulation already running")
)

// AppError 应用错误
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError 创建应用错误
func NewAppError(code string, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
