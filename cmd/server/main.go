package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"chronopack.game/internal/persistence/indexdb"
	persistlog "chronopack.game/internal/persistence/log"
	"chronopack.game/internal/sim/catalogs"
	"chronopack.game/internal/sim/dungeon"
	"chronopack.game/internal/sim/tuning"
	"chronopack.game/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		sessionID  = flag.String("session", "session_1", "session id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	sessionDir := filepath.Join(*dataDir, "sessions", *sessionID)
	_ = os.MkdirAll(sessionDir, 0o755)

	// Optional read-model index (does not affect sim determinism).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(sessionDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	starting := make([]catalogs.ItemID, 0, len(tune.StartingItems))
	for _, id := range tune.StartingItems {
		starting = append(starting, catalogs.ItemID(id))
	}

	sess, err := dungeon.New(dungeon.Config{
		ID:            *sessionID,
		TickRateHz:    tune.TickRateHz,
		MaxRounds:     tune.MaxRounds,
		StartingItems: starting,
	}, cats)
	if err != nil {
		logger.Fatalf("session: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(sessionDir)
	defer tickLog.Close()
	sess.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
	sess.SetSessionRecorder(idx)

	go func() {
		if err := sess.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("session stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := sess.Metrics()

		fmt.Fprintf(rw, "# HELP chronopack_session_tick Current session tick.\n")
		fmt.Fprintf(rw, "# TYPE chronopack_session_tick gauge\n")
		fmt.Fprintf(rw, "chronopack_session_tick{session=%q} %d\n", *sessionID, m.Tick)

		fmt.Fprintf(rw, "# HELP chronopack_session_clients Current number of connected clients.\n")
		fmt.Fprintf(rw, "# TYPE chronopack_session_clients gauge\n")
		fmt.Fprintf(rw, "chronopack_session_clients{session=%q} %d\n", *sessionID, m.Clients)

		fmt.Fprintf(rw, "# HELP chronopack_session_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE chronopack_session_queue_depth gauge\n")
		fmt.Fprintf(rw, "chronopack_session_queue_depth{session=%q,queue=%q} %d\n", *sessionID, "inbox", m.Inbox)
		fmt.Fprintf(rw, "chronopack_session_queue_depth{session=%q,queue=%q} %d\n", *sessionID, "join", m.Join)
		fmt.Fprintf(rw, "chronopack_session_queue_depth{session=%q,queue=%q} %d\n", *sessionID, "leave", m.Leave)
	})

	if envBool("CP_ENABLE_ADMIN_HTTP", true) {
		// Local-only admin endpoint (does not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				SessionID string          `json:"session_id"`
				Metrics   dungeon.Metrics `json:"metrics"`
			}{
				SessionID: *sessionID,
				Metrics:   sess.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
	} else {
		logger.Printf("admin endpoints disabled (CP_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("CP_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(sess, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

type multiTickLogger struct {
	a dungeon.TickLogger
	b *indexdb.SQLiteIndex
}

func (m multiTickLogger) WriteTick(entry dungeon.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	_ = m.b.WriteTick(entry)
	return nil
}
