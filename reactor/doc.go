// Package reactor 提供单协程、延续传递风格的 I/O 事件循环。
//
// 每个连接的行为由一串小的 I/O 计划（Plan）表达：读、写、空闲或关闭。
// 读写完成后，事件循环调用计划所绑定的延续（Func）取得下一个计划，如此往复，直到计划为关闭。
// 连接之间唯一的交互方式是 Wake：将一个空闲连接唤醒并为其安装新的延续。
//
// 基本用法：
//
//	l, err := reactor.NewLoop()
//	if err != nil {
//	    // 处理错误
//	}
//	defer l.Close()
//
//	var echo reactor.Func
//	echo = func(c *reactor.Conn, arg any) *reactor.Plan {
//	    buf := arg.([]byte)
//	    return reactor.Read(buf, len(buf), c.Next(func(c *reactor.Conn, arg any) *reactor.Plan {
//	        return reactor.Write(buf, len(buf), c.Next(echo, arg))
//	    }, arg))
//	}
//	if _, err = l.Register(ep, echo, make([]byte, 32), nil); err != nil {
//	    // 处理错误
//	}
//	err = l.Run(context.Background())
//
// Loop 不是并发安全的，所有延续都在运行 Run 的协程上执行。
package reactor
