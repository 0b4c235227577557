package metaspace

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"
)

// debugListStats is the JSON shape served per node list.
type debugListStats struct {
	Name           string  `json:"name"`
	Nodes          int     `json:"nodes"`
	ReservedWords  uintptr `json:"reservedWords"`
	CommittedWords uintptr `json:"committedWords"`
	LimiterCap     uintptr `json:"limiterCapWords"`
}

// debugSnapshot is the JSON shape served by /metaspace/stats.
type debugSnapshot struct {
	GranuleWords      uintptr          `json:"granuleWords"`
	ConsistencyChecks bool             `json:"consistencyChecks"`
	Lists             []debugListStats `json:"lists"`
}

func newDebugMux(rep *Reporter) *http.ServeMux {
	mux := http.NewServeMux()

	// Counter snapshot
	mux.HandleFunc("/metaspace/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		snap := debugSnapshot{
			GranuleWords:      CommitGranuleWords(),
			ConsistencyChecks: ConsistencyChecksEnabled(),
		}
		for _, l := range rep.Lists() {
			s := l.Stats()
			snap.Lists = append(snap.Lists, debugListStats{
				Name:           l.Name(),
				Nodes:          len(l.Nodes()),
				ReservedWords:  s.ReservedWords,
				CommittedWords: s.CommittedWords,
				LimiterCap:     l.Limiter().CapWords(),
			})
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(snap)
	})

	// Full text report; ?map=1 includes per-node commit masks
	mux.HandleFunc("/metaspace/report", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		flags := ReportShowSettings | ReportShowNodes
		if r.URL.Query().Get("map") == "1" {
			flags |= ReportShowCommitMap
		}
		rep.PrintReport(w, flags)
	})

	// Commit masks only
	mux.HandleFunc("/metaspace/map", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, l := range rep.Lists() {
			for _, n := range l.Nodes() {
				n.Render(w)
			}
		}
	})

	return mux
}

// StartDebugHTTP starts a lightweight HTTP server exposing diagnostic
// endpoints over the reporter's node lists:
//
//	GET /metaspace/stats   -> JSON counter snapshot
//	GET /metaspace/report  -> text report (query param map=1 adds commit maps)
//	GET /metaspace/map     -> commit mask per node, one line each
//
// It returns a shutdown function compatible with http.Server.Shutdown and
// the bound listen address.
func StartDebugHTTP(rep *Reporter, addr string) (func(ctx context.Context) error, string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", err
	}
	server := &http.Server{Handler: newDebugMux(rep), ReadHeaderTimeout: 3 * time.Second}
	go func() { _ = server.Serve(ln) }()
	return server.Shutdown, ln.Addr().String(), nil
}
