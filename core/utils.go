package core

import (
	"reflect"

	"github.com/encodeous/dvroute/state"
)

func AddMetric(a, b int) int {
	if a >= state.INF || b >= state.INF {
		return state.INF
	}
	return a + b
}

func Get[T state.NyModule](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}
