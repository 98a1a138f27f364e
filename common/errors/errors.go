package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrWouldBlock        = errors.New("操作将阻塞")
	ErrConnectionClosed  = errors.New("连接已关闭")
	ErrLoopClosed        = errors.New("事件循环已关闭")
	ErrLoopRunning       = errors.New("事件循环已在运行")
	ErrStalled           = errors.New("没有可能就绪的端点")
	ErrNotSupported      = errors.New("当前平台不支持")
	ErrResourceExhausted = errors.New("资源耗尽")
	ErrEndpointInUse     = errors.New("端点已被注册")
	ErrNotPollable       = errors.New("端点不支持就绪通知")
	ErrNotIdle           = errors.New("唤醒目标不处于空闲状态")
	ErrDoubleWake        = errors.New("唤醒目标已有未处理的唤醒")
	ErrWakeClosed        = errors.New("唤醒目标已关闭")
	ErrNilPlan           = errors.New("延续返回了空计划")
	ErrForeignNext       = errors.New("延续绑定在其他连接上")
)

type ErrorType uint64

const (
	// ErrorTypeEndpoint 表示端点读写失败或数据流意外结束，仅影响所在连接。
	ErrorTypeEndpoint ErrorType = 1 << iota
	// ErrorTypeContract 表示调用方状态机的编程错误，对事件循环是致命的。
	ErrorTypeContract
	// ErrorTypeResource 表示端点无法加入就绪集合，在注册时同步返回。
	ErrorTypeResource
	// ErrorTypeInternal 表示轮询器等内部故障，对事件循环是致命的。
	ErrorTypeInternal
	// ErrorTypeAny 表示任何其他错误。
	ErrorTypeAny
)

var typeNames = map[ErrorType]string{
	ErrorTypeEndpoint: "endpoint",
	ErrorTypeContract: "contract",
	ErrorTypeResource: "resource",
	ErrorTypeInternal: "internal",
	ErrorTypeAny:      "any",
}

func (t ErrorType) String() string {
	var names []string
	for flag := ErrorTypeEndpoint; flag <= ErrorTypeAny; flag <<= 1 {
		if t&flag != 0 {
			names = append(names, typeNames[flag])
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("ErrorType(%d)", uint64(t))
	}
	return strings.Join(names, "|")
}

// Error 表示一个带有错误类型和元信息的错误规范。
type Error struct {
	Err  error
	Type ErrorType
	Meta any
}

var _ error = (*Error)(nil)

// 返回错误的消息字符串。
func (e *Error) Error() string {
	if e.Meta == nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s %v", e.Err.Error(), e.Meta)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) IsType(flags ErrorType) bool {
	return (e.Type & flags) > 0
}

func (e *Error) SetType(flags ErrorType) *Error {
	e.Type = flags
	return e
}

func (e *Error) SetMeta(data any) *Error {
	e.Meta = data
	return e
}

// New 新建一个指定错误和错误类型及元数据的自定义错误。
func New(err error, t ErrorType, meta any) *Error {
	return &Error{
		Err:  err,
		Type: t,
		Meta: meta,
	}
}

func Newf(t ErrorType, meta any, format string, v ...any) *Error {
	return New(fmt.Errorf(format, v...), t, meta)
}

func NewEndpoint(err error, meta any) *Error {
	return New(err, ErrorTypeEndpoint, meta)
}

func NewContract(err error, meta any) *Error {
	return New(err, ErrorTypeContract, meta)
}

func NewResource(err error, meta any) *Error {
	return New(err, ErrorTypeResource, meta)
}

// TypeOf 返回错误链中首个 *Error 的类型，没有则返回 0。
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return 0
}

// IsType 判断错误链中是否存在指定类型的 *Error。
func IsType(err error, flags ErrorType) bool {
	if flags == ErrorTypeAny {
		return err != nil
	}
	return TypeOf(err)&flags > 0
}

// IsContract 判断是否为调用方的契约违规。
func IsContract(err error) bool {
	return IsType(err, ErrorTypeContract)
}

// IsEndpoint 判断是否为端点错误。
func IsEndpoint(err error) bool {
	return IsType(err, ErrorTypeEndpoint)
}

// IsResource 判断是否为资源类错误。
func IsResource(err error) bool {
	return IsType(err, ErrorTypeResource)
}
