package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/airbusgeo/sentinel-fetcher/common"
	"github.com/airbusgeo/sentinel-fetcher/downloader"
	"github.com/airbusgeo/sentinel-fetcher/interface/auth"
	"github.com/airbusgeo/sentinel-fetcher/interface/provider"
	"github.com/airbusgeo/sentinel-fetcher/service"
	"github.com/airbusgeo/sentinel-fetcher/service/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type config struct {
	Products string
	DestDir  string

	Concurrency        int
	MaxAttempts        int
	RestorationTimeout time.Duration
	PollInterval       time.Duration
	RequestsPerSecond  float64
	Extract            bool

	DownloadEndpoint string
	TokenURL         string
	ClientID         string
	Username         string
	Password         string

	Report     string
	StatusAddr string
	Verbose    bool
}

func newAppConfig() (*config, error) {
	config := config{}
	flag.StringVar(&config.Products, "products", "", "file with the product identifiers to download, one per line")
	flag.StringVar(&config.DestDir, "dest", ".", "directory to download the products to")

	flag.IntVar(&config.Concurrency, "concurrency", 4, "number of parallel downloads")
	flag.IntVar(&config.MaxAttempts, "max-attempts", 5, "download attempts per product")
	flag.DurationVar(&config.RestorationTimeout, "restoration-timeout", time.Hour, "how long to wait for an archived product")
	flag.DurationVar(&config.PollInterval, "poll-interval", 30*time.Second, "initial delay between restoration polls")
	flag.Float64Var(&config.RequestsPerSecond, "rps", 0, "requests per second to the download service (0: unlimited)")
	flag.BoolVar(&config.Extract, "extract", false, "unarchive the products once verified")

	flag.StringVar(&config.DownloadEndpoint, "download-endpoint", "https://zipper.creodias.eu", "address of the download service")
	flag.StringVar(&config.TokenURL, "token-url", "https://auth.creodias.eu/auth/realms/DIAS/protocol/openid-connect/token", "address of the authentication service")
	flag.StringVar(&config.ClientID, "client-id", auth.DefaultClientID, "client id of the authentication service")
	flag.StringVar(&config.Username, "download-username", "", "download account username (default: $DOWNLOAD_USERNAME)")
	flag.StringVar(&config.Password, "download-password", "", "download account password (default: $DOWNLOAD_PASSWORD)")

	flag.StringVar(&config.Report, "report", "", "write the batch report to this JSON file (optional)")
	flag.StringVar(&config.StatusAddr, "status-addr", "", "address of the batch status endpoint (optional, e.g. :8080)")
	flag.BoolVar(&config.Verbose, "verbose", false, "enable debug logs")
	flag.Parse()

	if config.Products == "" {
		return nil, fmt.Errorf("missing products config flag")
	}
	return &config, nil
}

var errPartial = errors.New("some tasks failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		if errors.Is(err, errPartial) {
			log.Logger(ctx).Warn("batch done with failures", zap.Error(err))
			os.Exit(2)
		}
		log.Fatal("error", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("godotenv: %w", err)
	}
	config, err := newAppConfig()
	if err != nil {
		return err
	}
	if config.Verbose {
		log.SetDebug()
	}

	ids, err := common.ReadProductListFile(config.Products)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no products in %s", config.Products)
	}
	products := make([]common.Product, len(ids))
	for i, id := range ids {
		products[i] = common.FromID(id)
	}

	creds, err := credentials(config.Username, config.Password, auth.ServiceDownload)
	if err != nil {
		return err
	}
	tokens := auth.NewManager(auth.Config{
		Service:     auth.ServiceDownload,
		TokenURL:    config.TokenURL,
		ClientID:    config.ClientID,
		Credentials: creds,
	})
	// Fail before scheduling anything if the credentials are rejected
	if _, err := tokens.Acquire(ctx, auth.ServiceDownload); err != nil {
		return err
	}

	scheduler := downloader.NewScheduler(provider.NewClient(config.DownloadEndpoint, tokens, config.RequestsPerSecond))
	scheduler.Concurrency = config.Concurrency
	scheduler.MaxAttempts = config.MaxAttempts
	scheduler.RestorationTimeout = config.RestorationTimeout
	scheduler.PollInterval = config.PollInterval
	scheduler.Extract = config.Extract

	if config.StatusAddr != "" {
		shutdown := serveStatus(ctx, config.StatusAddr, scheduler)
		defer shutdown()
	}

	result, batchErr := scheduler.DownloadBatch(ctx, products, config.DestDir)
	if result != nil && config.Report != "" {
		if err := service.ToJSON(result, filepath.Dir(config.Report), filepath.Base(config.Report)); err != nil {
			return service.MergeErrors(true, batchErr, err)
		}
	}
	if batchErr != nil {
		return batchErr
	}
	if result.Failed > 0 {
		return fmt.Errorf("%w: %d/%d", errPartial, result.Failed, len(result.Tasks))
	}
	return nil
}

// serveStatus exposes the progress of the batch while it runs
func serveStatus(ctx context.Context, addr string, scheduler *downloader.Scheduler) func() {
	r := mux.NewRouter()
	r.HandleFunc("/progress", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(scheduler.Progress()); err != nil {
			log.Logger(ctx).Sugar().Warnf("progress: %v", err)
		}
	}).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	s := http.Server{
		Addr:    addr,
		Handler: handlers.CORS()(r),
	}
	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Logger(ctx).Fatal("status.ListenAndServe", zap.Error(err))
		}
	}()
	return func() {
		sctx, cncl := context.WithTimeout(context.Background(), 30*time.Second)
		defer cncl()
		if err := s.Shutdown(sctx); err != nil {
			log.Logger(ctx).Sugar().Warnf("status.Shutdown: %v", err)
		}
	}
}

func credentials(username, password, serviceID string) (auth.Credentials, error) {
	if username != "" && password != "" {
		return auth.NewCredentials(username, password), nil
	}
	return auth.CredentialsFromEnv(serviceID)
}
