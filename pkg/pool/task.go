package pool

import (
	"runtime"

	"go.uber.org/zap"
)

type Task interface {
	Execute()
}

type task struct {
	fn  func()
	log *zap.SugaredLogger
}

func (t *task) Execute() {
	defer func() {
		if e := recover(); e != nil {
			buf := make([]byte, 2048)
			n := runtime.Stack(buf, false)
			t.log.Errorf("task panic: %v\n %s", e, buf[:n])
		}
	}()
	t.fn()
}
