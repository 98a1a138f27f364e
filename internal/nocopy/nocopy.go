// Package nocopy 提供嵌入式的禁止拷贝标记，go vet 的 copylocks 检查会报告对其宿主的值拷贝。
package nocopy

// NoCopy 嵌入到首次使用后不得拷贝的结构体中，如事件循环与连接。
type NoCopy struct{}

func (*NoCopy) Lock()   {}
func (*NoCopy) Unlock() {}
