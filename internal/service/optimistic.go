package service

// OptimisticCommand 乐观更新的三段式协议：先在本地生效，再等待持久化确认，
// 失败时回滚到之前的状态。任何需要乐观更新的变更都可以复用。
type OptimisticCommand struct {
	Apply   func()
	Persist func() error
	Revert  func()
}

// Run 执行 Apply → Persist，Persist 失败时执行 Revert 并返回原始错误
func (c OptimisticCommand) Run() error {
	if c.Apply != nil {
		c.Apply()
	}
	if err := c.Persist(); err != nil {
		if c.Revert != nil {
			c.Revert()
		}
		return err
	}
	return nil
}
