package reactor

import (
	errs "github.com/favbox/gale/common/errors"
)

// Wake 唤醒空闲的目标连接：在调用方当前的处理步骤结束后，事件循环调用 fn(target, arg)，
// 安装其返回的计划并将目标置为活跃。
//
// 目标必须处于空闲状态且没有未处理的唤醒。唤醒非空闲、已关闭或已被唤醒的目标属于契约违规：
// 返回 ErrorTypeContract 类型的错误，事件循环随即终止并从 Run 返回该错误。
func Wake(target *Conn, fn Func, arg any) error {
	if target == nil {
		panic("BUG: 唤醒目标不能为空")
	}
	if fn == nil {
		panic("BUG: 唤醒延续不能为空")
	}

	var cause error
	switch {
	case target.state == StateClosing || target.state == StateClosed:
		cause = errs.ErrWakeClosed
	case target.pending != nil:
		cause = errs.ErrDoubleWake
	case target.state != StateIdle:
		cause = errs.ErrNotIdle
	}
	l := target.loop
	if cause != nil {
		err := errs.NewContract(cause, target.meta())
		l.fail(err)
		return err
	}

	target.pending = &wakeup{fn: fn, arg: arg}
	l.wakes = append(l.wakes, target)
	return nil
}

// 投递已排队的唤醒。投递期间新发起的唤醒留待下一轮。
func (l *Loop) deliverWakes() {
	if len(l.wakes) == 0 {
		return
	}
	batch := l.wakes
	l.wakes = l.spare[:0]
	for _, c := range batch {
		w := c.pending
		c.pending = nil
		if w == nil || c.state != StateIdle || l.err != nil {
			continue
		}
		c.state = StateActive
		l.stats.Wakes++
		l.install(c, w.fn(c, w.arg))
	}
	for i := range batch {
		batch[i] = nil
	}
	l.spare = batch[:0]
}
