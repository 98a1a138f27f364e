package network

import "io"

// Endpoint 表示一个非阻塞的字节流端点，可以是管道、套接字或内存实现。
//
// Read 和 Write 不得阻塞：暂无数据或暂无空间时返回 errors.ErrWouldBlock。
// Read 在对端关闭且数据读尽时返回 io.EOF。
type Endpoint interface {
	io.Reader
	io.Writer
	io.Closer

	// Fd 返回用于就绪通知的描述符，同一轮询器内不得重复。
	Fd() int
}
