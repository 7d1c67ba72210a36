package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spendlog/internal/auth"
	"spendlog/internal/config"
	"spendlog/internal/expense"
	"spendlog/internal/handlers"
	"spendlog/internal/logger"
	"spendlog/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		println("invalid configuration:", err.Error())
		os.Exit(1)
	}

	zl, err := logger.New(cfg.Debug)
	if err != nil {
		println("failed to build logger:", err.Error())
		os.Exit(1)
	}
	defer zl.Sync() //nolint:errcheck
	log := zl.Sugar()

	if err := run(cfg, log); err != nil {
		log.Fatalw("server exited", "error", err)
	}
}

func run(cfg *config.Config, log *zap.SugaredLogger) error {
	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	// One sweep at startup; there are no in-process background tasks.
	if err := db.CleanExpiredSessions(); err != nil {
		log.Warnw("expired session cleanup failed", "error", err)
	}

	h := handlers.NewHandlers(auth.NewService(db), expense.NewService(db), cfg.TemplateDir, cfg.SecureCookie, log)

	srv := &http.Server{
		Addr:           cfg.Addr(),
		Handler:        h.LogRequests(setupRouter(h, cfg.StaticDir)),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("starting server", "addr", srv.Addr, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Infow("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Infow("server stopped gracefully")
	return nil
}

// setupRouter maps the HTTP surface onto the handlers.
func setupRouter(h *handlers.Handlers, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /register", h.RegisterForm)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)

	mux.Handle("GET /logout", h.RequireAuth(http.HandlerFunc(h.Logout)))
	mux.Handle("GET /dashboard", h.RequireAuth(http.HandlerFunc(h.Dashboard)))
	mux.Handle("GET /add_expense", h.RequireAuth(http.HandlerFunc(h.AddExpenseForm)))
	mux.Handle("POST /add_expense", h.RequireAuth(http.HandlerFunc(h.AddExpense)))
	mux.Handle("GET /update_expense/{id}", h.RequireAuth(http.HandlerFunc(h.UpdateExpenseForm)))
	mux.Handle("POST /update_expense/{id}", h.RequireAuth(http.HandlerFunc(h.UpdateExpense)))
	mux.Handle("GET /view_expenses", h.RequireAuth(http.HandlerFunc(h.ViewExpenses)))
	mux.Handle("POST /delete_expense/{id}", h.RequireAuth(http.HandlerFunc(h.DeleteExpense)))

	return mux
}
