package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trytobebee/snake_engine/pkg/config"
	"github.com/trytobebee/snake_engine/pkg/game"
	"github.com/trytobebee/snake_engine/pkg/server"
	"github.com/trytobebee/snake_engine/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flag.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "tick interval for websocket clients")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite results database")
	flag.StringVar(&cfg.RecordDir, "record-dir", cfg.RecordDir, "directory for JSONL recordings (empty disables)")
	flag.IntVar(&cfg.Rules.Width, "width", cfg.Rules.Width, "board width")
	flag.IntVar(&cfg.Rules.Height, "height", cfg.Rules.Height, "board height")
	flag.IntVar(&cfg.Rules.InitialLength, "initial-length", cfg.Rules.InitialLength, "initial snake length")
	flag.IntVar(&cfg.Rules.ScorePerFood, "score-per-food", cfg.Rules.ScorePerFood, "points per food")
	seed := flag.Int64("seed", 0, "food placement seed (0 uses the clock)")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	var opts []game.Option
	if *seed != 0 {
		opts = append(opts, game.WithSeed(*seed))
	}
	srv := server.New(cfg, game.NewGame(cfg.Rules, opts...), st)
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.Run(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Println("Shutdown error:", err)
		}
	}()

	fmt.Printf("🐍 Snake engine listening on %s (%dx%d board, tick %v)\n",
		cfg.Addr, cfg.Rules.Width, cfg.Rules.Height, cfg.TickInterval)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}
