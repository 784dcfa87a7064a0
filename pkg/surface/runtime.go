package surface

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/pluqqy/editbridge/pkg/protocol"
)

// args reads positional arguments of a native call
type args struct {
	s    *Surface
	call goja.FunctionCall
}

func (a args) str(i int) string {
	v := a.call.Argument(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

func (a args) num(i int) int {
	return int(a.call.Argument(i).ToInteger())
}

func (a args) boolean(i int) bool {
	return a.call.Argument(i).ToBoolean()
}

// decode parses a JSON text argument into v. It reports false for null.
func (a args) decode(i int, v any) bool {
	text := a.str(i)
	if text == "" {
		return false
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		a.s.throw(fmt.Errorf("argument %d is not valid JSON: %w", i, err))
	}
	return true
}

type native func(a args) any

// install creates the MU object and the test hooks
func (s *Surface) install() {
	mu := s.vm.NewObject()
	for name, impl := range s.verbs() {
		s.bind(mu, name, impl)
	}
	if err := s.vm.Set(protocol.Namespace, mu); err != nil {
		s.logger.Error("failed to install verbs", zap.Error(err))
	}

	for name, impl := range s.hooks() {
		s.bind(s.vm.GlobalObject(), name, impl)
	}

	console := s.vm.NewObject()
	s.bind(console, "log", func(a args) any {
		s.logger.Debug("console", zap.String("message", a.str(0)))
		return nil
	})
	if err := s.vm.Set("console", console); err != nil {
		s.logger.Error("failed to install console", zap.Error(err))
	}
}

func (s *Surface) bind(obj *goja.Object, name string, impl native) {
	fn := func(call goja.FunctionCall) goja.Value {
		if message, ok := s.failures[name]; ok {
			delete(s.failures, name)
			s.throw(errors.New(message))
		}
		result := impl(args{s: s, call: call})
		if result == nil {
			return goja.Undefined()
		}
		return s.vm.ToValue(result)
	}
	if err := obj.Set(name, fn); err != nil {
		s.logger.Error("failed to bind function", zap.String("name", name), zap.Error(err))
	}
}
