package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"holdem-table/holdem"
	"holdem-table/internal/config"
	"holdem-table/internal/gateway"
	"holdem-table/internal/ledger"
	"holdem-table/internal/operator"
	"holdem-table/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Server] Invalid configuration: %v", err)
	}

	tbl, err := holdem.NewTable(cfg.Table)
	if err != nil {
		log.Fatalf("[Server] Failed to create table: %v", err)
	}

	ledgerService, ledgerMode, err := ledger.NewService(cfg.LedgerMode, cfg.LedgerDSN)
	if err != nil {
		log.Fatalf("[Server] Failed to init ledger service: %v", err)
	}
	defer ledgerService.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coord := session.New(tbl, session.WithLedger(ledgerService))
	go coord.Run(ctx)
	defer coord.Close()

	gw := gateway.New(coord)
	ledgerHTTP := ledger.NewHTTPHandler(ledgerService)
	operatorHTTP := operator.NewHTTPHandler(coord, cfg.OperatorTokenHash)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	ledgerHTTP.RegisterRoutes(mux)
	operatorHTTP.RegisterRoutes(mux)

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	if cfg.Console {
		console := operator.NewConsole(coord, os.Stdin, os.Stdout)
		go func() {
			if err := console.Run(ctx); err != nil {
				log.Printf("[Server] Console stopped: %v", err)
			}
			stop()
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Server] Shutdown error: %v", err)
		}
	}()

	log.Printf("[Server] Ledger mode: %s", ledgerMode)
	log.Printf("[Server] Table: seats=%d stack=%d blinds=%d/%d",
		cfg.Table.MaxSeats, cfg.Table.StartingStack, cfg.Table.SmallBlind, cfg.Table.BigBlind)
	log.Printf("[Server] Starting WebSocket server on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("[Server] Failed to start: %v", err)
	}
	log.Printf("[Server] Stopped")
}
