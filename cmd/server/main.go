// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"shelfmark/internal/catalog"
	"shelfmark/internal/circulation"
	"shelfmark/internal/ledger"
	"shelfmark/internal/snapshot"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "shelfmark: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	godotenv.Load()
	log := newLogger()

	booksCSV := getEnv("BOOKS_CSV", "bookdata.csv")
	studentsCSV := getEnv("STUDENTS_CSV", "studentdetails.csv")
	ledgerDB := getEnv("LEDGER_DB", "book_purchases_database.db")
	port := getEnv("PORT", "8080")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := initTracing(ctx, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownTracing(shutdownCtx)
	}()

	// The ledger handle is the one resource whose absence is fatal.
	ldg, err := ledger.Open(ledgerDB)
	if err != nil {
		return fmt.Errorf("acquire ledger store %q: %w", ledgerDB, err)
	}
	defer ldg.Close()

	gateway := snapshot.New(booksCSV, studentsCSV)

	books, err := gateway.LoadBooks()
	if err != nil {
		if !errors.Is(err, snapshot.ErrNotFound) {
			return fmt.Errorf("load books snapshot: %w", err)
		}
		log.Warn().Str("path", booksCSV).Msg("books snapshot missing; starting with an empty catalog")
	}
	students, err := gateway.LoadStudents()
	if err != nil {
		if !errors.Is(err, snapshot.ErrNotFound) {
			return fmt.Errorf("load students snapshot: %w", err)
		}
		log.Warn().Str("path", studentsCSV).Msg("students snapshot missing; no student can validate")
	}

	store := catalog.NewStore(students, books)
	log.Info().
		Int("books", len(books)).
		Int("students", len(students)).
		Msg("catalog loaded")

	catalogSvc := catalog.NewService(store)
	circulationSvc := circulation.NewService(store, ldg, gateway,
		log.With().Str("component", "circulation").Logger())

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "25"), 64)
	if err != nil || rps <= 0 {
		rps = 25
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log.With().Str("component", "http").Logger()))
	r.Use(rateLimit(rate.Limit(rps)))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	catalog.NewHandler(catalogSvc).Routes(r)
	circulation.NewHandler(circulationSvc).Routes(r)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out io.Writer = os.Stderr
	if getEnv("LOG_FORMAT", "console") == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// initTracing wires the OTLP/HTTP span exporter when an endpoint is
// configured; otherwise tracing stays on the default no-op provider.
func initTracing(ctx context.Context, log zerolog.Logger) func(context.Context) error {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return func(context.Context) error { return nil }
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("trace exporter disabled")
		return func(context.Context) error { return nil }
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	log.Info().Msg("trace exporter enabled")
	return tp.Shutdown
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

func rateLimit(limit rate.Limit) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, int(limit)+1)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
