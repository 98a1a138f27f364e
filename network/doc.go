// Package network 定义事件循环所驱动的端点和轮询器抽象。
//
// 包括两种实现：
//  1. 基于 Linux epoll 的轮询器 epoll 与非阻塞描述符端点 unixfd。
//  2. 用于测试的内存端点与确定性轮询器 common/mock。
package network
