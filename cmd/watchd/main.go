package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"marketwatch/internal/config"
	"marketwatch/internal/fetch"
	"marketwatch/internal/market"
	"marketwatch/internal/observ"
	"marketwatch/internal/poller"
	"marketwatch/internal/provider"
	"marketwatch/internal/provider/sources"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	fields := market.DefaultFields()
	store, err := market.NewStore(fields, cfg.Capacity)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	chains := buildChains(cfg)
	cycle := fetch.New(store, chains, fetch.Config{MaxAttempts: cfg.Fetch.MaxAttempts})

	p, err := poller.New(store, cycle, displayObserver, poller.Config{
		IntervalSeconds: cfg.IntervalSeconds,
	})
	if err != nil {
		log.Fatalf("poller: %v", err)
	}
	p.Start()
	defer p.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newMux(p),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		observ.Log("server_listening", map[string]any{"port": cfg.Server.Port})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildChains wires the fallback chain for each field: fast index
// lookup then history bars for the equity indices, bank page then
// mid-rate spread for the FX legs.
func buildChains(cfg config.Root) []provider.Chain {
	timeout := time.Duration(cfg.Fetch.ProviderTimeoutSeconds) * time.Second

	indexAPI := sources.NewIndexAPI(cfg.Sources.IndexAPI.BaseURL, timeout, map[market.Field]string{
		market.FieldNDX:  "^NDX",
		market.FieldGSPC: "^GSPC",
	})
	indexLast := provider.WithRateLimit(indexAPI.Last(), cfg.Sources.IndexAPI.RatePerMinute, cfg.Sources.IndexAPI.Burst)
	indexHistory := provider.WithRateLimit(indexAPI.History(), cfg.Sources.IndexAPI.RatePerMinute, cfg.Sources.IndexAPI.Burst)

	boc := provider.WithRateLimit(
		sources.NewBOCRates(cfg.Sources.BOC.URL, timeout),
		cfg.Sources.BOC.RatePerMinute, cfg.Sources.BOC.Burst,
	)
	mid := sources.NewMidRate(cfg.Sources.MidRate.URL, cfg.Sources.MidRate.SpreadPct/100, timeout)

	return []provider.Chain{
		provider.NewChain(market.FieldNDX, indexLast, indexHistory),
		provider.NewChain(market.FieldGSPC, indexLast, indexHistory),
		provider.NewChain(market.FieldUSDBuy, boc, mid),
		provider.NewChain(market.FieldUSDSell, boc, mid),
	}
}

// displayObserver is the status display stand-in: one log line per
// cycle with the latest values.
func displayObserver(ev poller.Event) {
	kv := map[string]any{
		"kind":   string(ev.Kind),
		"status": ev.Status,
		"points": len(ev.Snapshot),
	}
	for f, v := range ev.Sample.Values {
		kv[string(f)] = v
	}
	observ.Log("watch_status", kv)
}

func newMux(p *poller.Poller) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/healthz", observ.HealthHandler())
	mux.Handle("/metrics", observ.Handler())

	mux.HandleFunc("/api/latest", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		sample, ok := p.Latest()
		if !ok {
			http.Error(w, "no data yet", http.StatusNotFound)
			return
		}
		writeJSON(w, sample)
	})

	mux.HandleFunc("/api/snapshot", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]any{"samples": p.Snapshot()})
	})

	mux.HandleFunc("/api/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		p.TriggerNow()
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("/api/interval", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Seconds int `json:"seconds"`
		}
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if err := p.SetInterval(body.Seconds); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"running":    p.Running(),
			"interval_s": p.IntervalSeconds(),
			"points":     len(p.Snapshot()),
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
