package profiling

import (
	"net/http"
	"net/http/pprof"
)

// AddDebugPprofEndpoints serves the runtime profiles next to the metrics.
func AddDebugPprofEndpoints(mux *http.ServeMux) {
	pprofEndpoints := map[string]http.HandlerFunc{
		"/debug/pprof/":             pprof.Index,
		"/debug/pprof/cmdline":      pprof.Cmdline,
		"/debug/pprof/profile":      pprof.Profile,
		"/debug/pprof/symbol":       pprof.Symbol,
		"/debug/pprof/trace":        pprof.Trace,
		"/debug/pprof/allocs":       pprof.Handler("allocs").ServeHTTP,
		"/debug/pprof/heap":         pprof.Handler("heap").ServeHTTP,
		"/debug/pprof/goroutine":    pprof.Handler("goroutine").ServeHTTP,
		"/debug/pprof/threadcreate": pprof.Handler("threadcreate").ServeHTTP,
	}
	for path, handler := range pprofEndpoints {
		mux.Handle(path, handler)
	}
}
