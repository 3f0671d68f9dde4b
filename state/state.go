package state

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
)

type NyModule interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// State access must be done only on the dispatch goroutine
type State struct {
	*Env
	*RouterState
	Modules map[string]NyModule
}

// Env can be read from any Goroutine
type Env struct {
	DispatchChannel chan<- func(s *State) error
	LocalCfg
	Topology *Topology
	Context  context.Context
	Cancel   context.CancelCauseFunc
	Log      *slog.Logger
	// Out receives the routing table printed after every relaxation pass
	Out      io.Writer
	Started  atomic.Bool
	Stopping atomic.Bool
}
