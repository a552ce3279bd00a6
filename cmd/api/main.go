package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nemonet1337/chotatsuGoFramework/internal/config"
	"github.com/nemonet1337/chotatsuGoFramework/pkg/procurement"
	"github.com/nemonet1337/chotatsuGoFramework/pkg/procurement/advisor"
	"github.com/nemonet1337/chotatsuGoFramework/pkg/procurement/metrics"
	"github.com/nemonet1337/chotatsuGoFramework/pkg/procurement/storage"
)

func main() {
	configPath := flag.String("config", "", "YAML設定ファイルのパス（省略時は環境変数のみ）")
	flag.Parse()

	// 設定読み込み
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatal("設定読み込みに失敗しました:", err)
	}

	// ログ設定
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal("ログ初期化に失敗しました:", err)
	}
	defer logger.Sync()

	// ストレージ初期化
	store, err := newStorage(cfg, logger)
	if err != nil {
		logger.Fatal("ストレージ初期化に失敗しました", zap.Error(err))
	}
	defer store.Close()

	// メトリクス発行者
	registry := prometheus.NewRegistry()
	var publisher procurement.EventPublisher
	if cfg.API.EnableMetrics {
		publisher = metrics.NewPublisher(registry)
	}

	// 監査アドバイザー（エンドポイント未設定なら固定講評に縮退）
	var auditAdvisor procurement.Advisor
	if cfg.Workflow.AdvisorEndpoint != "" {
		auditAdvisor = advisor.NewHTTPAdvisor(cfg.Workflow.AdvisorEndpoint, cfg.Workflow.AdvisorTimeout.Std(), logger)
	}

	// ワークフローエンジン初期化
	engineConfig := &procurement.Config{
		DeliveryLeadTime:    cfg.Workflow.DeliveryLeadTime.Std(),
		VerificationLatency: cfg.Workflow.VerificationLatency.Std(),
		InvoiceLatency:      cfg.Workflow.InvoiceLatency.Std(),
		DefaultRequester:    cfg.Workflow.DefaultRequester,
	}

	engine := procurement.NewEngine(store, publisher, auditAdvisor, nil, logger, engineConfig)

	// HTTPハンドラー設定
	handlers := NewHandlers(engine, engine, logger)
	router := setupRouter(handlers, cfg, registry)

	// HTTPサーバー設定
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout.Std(),
		WriteTimeout: cfg.API.WriteTimeout.Std(),
		IdleTimeout:  cfg.API.IdleTimeout.Std(),
	}

	// グレースフルシャットダウン設定
	go func() {
		logger.Info("調達ワークフローAPIサーバーを開始します", zap.Int("port", cfg.API.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー開始に失敗しました", zap.Error(err))
		}
	}()

	// シャットダウンシグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	// グレースフルシャットダウン
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("サーバーシャットダウンに失敗しました", zap.Error(err))
	}

	logger.Info("サーバーが正常に停止しました")
}

// newLogger builds a zap logger from the logging configuration
// ログ設定からzapロガーを構築
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Logging.Format == "console" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newStorage builds the storage backend selected by configuration
// 設定で選択されたストレージバックエンドを構築
func newStorage(cfg *config.Config, logger *zap.Logger) (procurement.Storage, error) {
	switch cfg.Database.Backend {
	case "postgres":
		return storage.NewPostgreSQLStorage(cfg.DSN(), logger)
	default:
		store := storage.NewMemoryStorage(logger)
		if cfg.Workflow.SeedMasterData {
			if err := store.Seed(context.Background()); err != nil {
				return nil, fmt.Errorf("マスターデータ投入に失敗しました: %w", err)
			}
		}
		return store, nil
	}
}

// setupRouter sets up HTTP routes
// HTTPルートを設定
func setupRouter(handlers *Handlers, cfg *config.Config, registry *prometheus.Registry) *mux.Router {
	router := mux.NewRouter()

	// ヘルスチェック
	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	if cfg.API.EnableMetrics {
		router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")
	}

	// API v1ルート
	api := router.PathPrefix("/api/v1").Subrouter()

	// ワークフロー操作
	api.HandleFunc("/requisitions", handlers.SubmitRequisition).Methods("POST")
	api.HandleFunc("/orders", handlers.CreateOrder).Methods("POST")
	api.HandleFunc("/deliveries/{deliveryId}/verify", handlers.VerifyDelivery).Methods("POST")
	api.HandleFunc("/invoices", handlers.ProcessInvoice).Methods("POST")
	api.HandleFunc("/invoices/{invoiceId}/settle", handlers.SettleInvoice).Methods("POST")

	// 帳票照会
	api.HandleFunc("/requisitions", handlers.ListRequisitions).Methods("GET")
	api.HandleFunc("/orders", handlers.ListOrders).Methods("GET")
	api.HandleFunc("/deliveries", handlers.ListDeliveries).Methods("GET")
	api.HandleFunc("/invoices", handlers.ListInvoices).Methods("GET")
	api.HandleFunc("/journal", handlers.ListJournalEntries).Methods("GET")

	// 仕訳監査
	api.HandleFunc("/journal/{entryId}/audit", handlers.AuditJournalEntry).Methods("GET")

	// マスタデータ管理
	api.HandleFunc("/suppliers", handlers.CreateSupplier).Methods("POST")
	api.HandleFunc("/suppliers", handlers.ListSuppliers).Methods("GET")
	api.HandleFunc("/items", handlers.CreateItem).Methods("POST")
	api.HandleFunc("/items", handlers.ListItems).Methods("GET")

	// 集計レポート
	api.HandleFunc("/reports/vendor-debt", handlers.VendorDebtReport).Methods("GET")
	api.HandleFunc("/reports/dashboard", handlers.DashboardStats).Methods("GET")

	// CORS設定（開発用）
	if cfg.API.EnableCORS {
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

				if r.Method == "OPTIONS" {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	// ログ機能
	router.Use(loggingMiddleware(handlers.logger))

	return router
}

// loggingMiddleware logs HTTP requests
// HTTPリクエストをログ出力するミドルウェア
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// リクエスト処理
			next.ServeHTTP(w, r)

			// ログ出力
			logger.Info("HTTPリクエスト",
				zap.String("method", r.Method),
				zap.String("url", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
