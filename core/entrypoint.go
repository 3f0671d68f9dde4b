package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"path"
	"reflect"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/encodeous/dvroute/perf"
	"github.com/encodeous/dvroute/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

var errShutdownSignal = errors.New("received shutdown signal")

type Options struct {
	// Transport is used instead of binding a UDP socket
	Transport Transport
	// Out receives the routing table after every relaxation pass, defaults to stdout
	Out io.Writer
	// OnStart is called once all modules are initialised, before the main loop starts
	OnStart func(s *state.State)
}

func setupDebugging(s *state.State) *http.Server {
	if s.DebugAddr == "" {
		return nil
	}
	srv := &http.Server{Addr: s.DebugAddr}
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Log.Warn("debug server stopped", "err", err)
		}
	}()
	s.Log.Info("serving metrics", "url", "http://"+s.DebugAddr+"/debug/metrics")
	return srv
}

// Bootstrap reads the configuration and runs the node until it is stopped
func Bootstrap(ncfg state.LocalCfg, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	state.ExpandLocalConfig(&ncfg)
	err := state.NodeConfigValidator(&ncfg)
	if err != nil {
		return err
	}
	return Start(ncfg, level, Options{})
}

func newLogger(ncfg state.LocalCfg, logLevel slog.Level) (*slog.Logger, io.Closer, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			CustomPrefix: strconv.Itoa(int(ncfg.Id)),
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	var closer io.Closer
	if ncfg.LogPath != "" {
		err := os.MkdirAll(path.Dir(ncfg.LogPath), 0700)
		if err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(ncfg.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}))
		closer = f
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// Start runs a router until its context is cancelled. Topology errors are returned before any socket is opened.
func Start(ncfg state.LocalCfg, logLevel slog.Level, opts Options) error {
	logger, logFile, err := newLogger(ncfg, logLevel)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	topo, err := state.LoadTopology(ncfg.TopologyPath)
	if err != nil {
		return err
	}
	err = state.TopologyValidator(&ncfg, topo)
	if err != nil {
		return err
	}
	for _, neigh := range topo.Neighbours {
		if neigh.SelfId != ncfg.Id {
			logger.Warn("topology line names a different router", "expected", ncfg.Id, "got", neigh.SelfId, "neigh", neigh.Id)
		}
	}

	transport := opts.Transport
	if transport == nil {
		bind, err := netip.ParseAddr(ncfg.BindAddr)
		if err != nil {
			return err
		}
		transport, err = ListenUdp(netip.AddrPortFrom(bind, ncfg.Port))
		if err != nil {
			return err
		}
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	dispatch := make(chan func(env *state.State) error, state.DispatchBuffer)

	s := state.State{
		Modules: make(map[string]state.NyModule),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			LocalCfg:        ncfg,
			Topology:        topo,
			Log:             logger,
			Out:             out,
		},
	}

	s.Log.Info("init modules")
	err = initModules(&s, transport)
	if err != nil {
		Stop(&s)
		return err
	}
	s.Log.Info("init modules complete")

	srv := setupDebugging(&s)
	if srv != nil {
		defer srv.Close()
	}

	s.Log.Info("Router has been initialized. To gracefully exit, send SIGINT or Ctrl+C.", "addr", transport.LocalAddr())

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		select {
		case <-c:
			s.Cancel(errShutdownSignal)
		case <-ctx.Done():
			return
		}
	}()

	if opts.OnStart != nil {
		opts.OnStart(&s)
	}

	err = MainLoop(&s, dispatch)
	if err != nil {
		return err
	}
	cause := context.Cause(ctx)
	if errors.Is(cause, errShutdownSignal) || errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}

func initModules(s *state.State, transport Transport) error {
	var modules []state.NyModule
	modules = append(modules, &Link{Transport: transport})
	modules = append(modules, &DvRouter{})

	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return fmt.Errorf("init %T: %w", module, err)
		}
	}
	return nil
}

func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	for {
		select {
		case fun := <-dispatch:
			if fun == nil {
				goto endLoop
			}
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > time.Millisecond*50 {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(dispatch))
			}
		case <-s.Context.Done():
			goto endLoop
		}
	}
endLoop:
	s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
	Stop(s)
	return nil
}

func Stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return // don't stop twice
	}
	s.Cancel(context.Canceled)
	if s.DispatchChannel != nil {
		close(s.DispatchChannel)
	}
	s.Log.Info("cleaning up modules")
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop: ", "module", moduleName, "error", err)
		}
	}
	s.Log.Info("stopped")
}
