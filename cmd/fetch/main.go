package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/airbusgeo/sentinel-fetcher/catalog"
	"github.com/airbusgeo/sentinel-fetcher/catalog/entities"
	"github.com/airbusgeo/sentinel-fetcher/common"
	"github.com/airbusgeo/sentinel-fetcher/downloader"
	"github.com/airbusgeo/sentinel-fetcher/interface/auth"
	catclient "github.com/airbusgeo/sentinel-fetcher/interface/catalog"
	"github.com/airbusgeo/sentinel-fetcher/interface/provider"
	"github.com/airbusgeo/sentinel-fetcher/service"
	"github.com/airbusgeo/sentinel-fetcher/service/geometry"
	"github.com/airbusgeo/sentinel-fetcher/service/log"
	"github.com/araddon/dateparse"
	"github.com/go-spatial/geom"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type config struct {
	Sensors       string
	AOIFile       string
	AOIWkt        string
	BBox          string
	Start         string
	End           string
	ProductType   string
	MaxCloudCover float64
	PageSize      int

	DestDir            string
	Concurrency        int
	MaxAttempts        int
	RestorationTimeout time.Duration
	PollInterval       time.Duration
	RequestsPerSecond  float64
	Extract            bool

	CatalogEndpoint  string
	DownloadEndpoint string
	TokenURL         string
	ClientID         string
	CatalogUsername  string
	CatalogPassword  string
	DownloadUsername string
	DownloadPassword string

	Out     string
	Report  string
	Verbose bool
}

func newAppConfig() (*config, error) {
	config := config{}
	flag.StringVar(&config.Sensors, "sensors", "", "sensors to search, comma-separated (S1, S2, S3)")
	flag.StringVar(&config.AOIFile, "aoi", "", "GeoJSON file of the area of interest")
	flag.StringVar(&config.AOIWkt, "aoi-wkt", "", "WKT polygon of the area of interest")
	flag.StringVar(&config.BBox, "bbox", "", "bounding box of the area of interest (minx,miny,maxx,maxy)")
	flag.StringVar(&config.Start, "start", "", "start of the acquisition interval")
	flag.StringVar(&config.End, "end", "", "end of the acquisition interval")
	flag.StringVar(&config.ProductType, "product-type", "", "product type filter (default: the usual type of each sensor)")
	flag.Float64Var(&config.MaxCloudCover, "max-cloud-cover", -1, "maximum cloud cover in percent (optical sensors only)")
	flag.IntVar(&config.PageSize, "page-size", 0, "number of products per catalog page")

	flag.StringVar(&config.DestDir, "dest", ".", "directory to download the products to")
	flag.IntVar(&config.Concurrency, "concurrency", 4, "number of parallel downloads")
	flag.IntVar(&config.MaxAttempts, "max-attempts", 5, "download attempts per product")
	flag.DurationVar(&config.RestorationTimeout, "restoration-timeout", time.Hour, "how long to wait for an archived product")
	flag.DurationVar(&config.PollInterval, "poll-interval", 30*time.Second, "initial delay between restoration polls")
	flag.Float64Var(&config.RequestsPerSecond, "rps", 0, "requests per second to the download service (0: unlimited)")
	flag.BoolVar(&config.Extract, "extract", false, "unarchive the products once verified")

	flag.StringVar(&config.CatalogEndpoint, "catalog-endpoint", "https://finder.creodias.eu/resto/api", "address of the catalog service")
	flag.StringVar(&config.DownloadEndpoint, "download-endpoint", "https://zipper.creodias.eu", "address of the download service")
	flag.StringVar(&config.TokenURL, "token-url", "https://auth.creodias.eu/auth/realms/DIAS/protocol/openid-connect/token", "address of the authentication service")
	flag.StringVar(&config.ClientID, "client-id", auth.DefaultClientID, "client id of the authentication service")
	flag.StringVar(&config.CatalogUsername, "catalog-username", "", "catalog account username (default: $CATALOG_USERNAME)")
	flag.StringVar(&config.CatalogPassword, "catalog-password", "", "catalog account password (default: $CATALOG_PASSWORD)")
	flag.StringVar(&config.DownloadUsername, "download-username", "", "download account username (default: $DOWNLOAD_USERNAME)")
	flag.StringVar(&config.DownloadPassword, "download-password", "", "download account password (default: $DOWNLOAD_PASSWORD)")

	flag.StringVar(&config.Out, "out", "", "write the product list to this file (optional)")
	flag.StringVar(&config.Report, "report", "", "write the batch report to this JSON file (optional)")
	flag.BoolVar(&config.Verbose, "verbose", false, "enable debug logs")
	flag.Parse()

	if config.Sensors == "" {
		return nil, fmt.Errorf("missing sensors config flag")
	}
	if config.Start == "" || config.End == "" {
		return nil, fmt.Errorf("missing start/end config flags")
	}
	return &config, nil
}

var errPartial = errors.New("partial")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		if errors.Is(err, errPartial) {
			log.Logger(ctx).Warn("done with failures", zap.Error(err))
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

	query, err := newQuery(config)
	if err != nil {
		return err
	}
	catalogCreds, err := credentials(config.CatalogUsername, config.CatalogPassword, auth.ServiceCatalog)
	if err != nil {
		return err
	}
	downloadCreds, err := credentials(config.DownloadUsername, config.DownloadPassword, auth.ServiceDownload)
	if err != nil {
		return err
	}
	tokens := auth.NewManager(
		auth.Config{Service: auth.ServiceCatalog, TokenURL: config.TokenURL, ClientID: config.ClientID, Credentials: catalogCreds},
		auth.Config{Service: auth.ServiceDownload, TokenURL: config.TokenURL, ClientID: config.ClientID, Credentials: downloadCreds},
	)

	// Search
	engine := catalog.NewEngine(catclient.NewClient(config.CatalogEndpoint, tokens))
	iterator, err := engine.Search(ctx, query)
	if err != nil {
		return err
	}
	products, searchErr := iterator.Collect(ctx)
	if searchErr != nil {
		if len(products) == 0 {
			return searchErr
		}
		log.Logger(ctx).Warn("search truncated, downloading the products found", zap.Error(searchErr))
	}
	log.Logger(ctx).Sugar().Infof("%d products found", len(products))
	if config.Out != "" {
		if err := catalog.WriteProductList(config.Out, products); err != nil {
			return err
		}
	}
	if len(products) == 0 {
		return nil
	}

	// Download
	if _, err := tokens.Acquire(ctx, auth.ServiceDownload); err != nil {
		return err
	}
	scheduler := downloader.NewScheduler(provider.NewClient(config.DownloadEndpoint, tokens, config.RequestsPerSecond))
	scheduler.Concurrency = config.Concurrency
	scheduler.MaxAttempts = config.MaxAttempts
	scheduler.RestorationTimeout = config.RestorationTimeout
	scheduler.PollInterval = config.PollInterval
	scheduler.Extract = config.Extract

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
		return fmt.Errorf("%w: %d/%d tasks failed", errPartial, result.Failed, len(result.Tasks))
	}
	if searchErr != nil {
		return fmt.Errorf("%w: %v", errPartial, searchErr)
	}
	return nil
}

func newQuery(config *config) (entities.Query, error) {
	sensors, err := parseSensors(config.Sensors)
	if err != nil {
		return entities.Query{}, err
	}
	query := entities.NewQuery(sensors...)

	if query.AOI, err = loadAOI(config.AOIFile, config.AOIWkt, config.BBox); err != nil {
		return entities.Query{}, err
	}
	if query.StartTime, err = dateparse.ParseAny(config.Start); err != nil {
		return entities.Query{}, fmt.Errorf("start: %w", err)
	}
	if query.EndTime, err = dateparse.ParseAny(config.End); err != nil {
		return entities.Query{}, fmt.Errorf("end: %w", err)
	}
	query.ProductType = config.ProductType
	query.MaxCloudCover = config.MaxCloudCover
	if config.PageSize > 0 {
		query.PageSize = config.PageSize
	}
	return query, nil
}

func parseSensors(list string) ([]common.Sensor, error) {
	var sensors []common.Sensor
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		sensor := common.GetSensorFromString(name)
		if sensor == common.Unknown {
			return nil, fmt.Errorf("unknown sensor: %s", name)
		}
		sensors = append(sensors, sensor)
	}
	if len(sensors) == 0 {
		return nil, fmt.Errorf("missing sensors config flag")
	}
	return sensors, nil
}

func loadAOI(aoiFile, aoiWkt, bbox string) (geom.Polygon, error) {
	defined := 0
	for _, value := range []string{aoiFile, aoiWkt, bbox} {
		if value != "" {
			defined++
		}
	}
	if defined != 1 {
		return nil, fmt.Errorf("exactly one of the aoi, aoi-wkt, bbox config flags must be defined")
	}
	switch {
	case aoiFile != "":
		raw, err := os.ReadFile(aoiFile)
		if err != nil {
			return nil, fmt.Errorf("loadAOI: %w", err)
		}
		return geometry.PolygonFromGeoJSON(raw)
	case aoiWkt != "":
		return geometry.PolygonFromWKT(aoiWkt)
	}
	var minx, miny, maxx, maxy float64
	if _, err := fmt.Sscanf(bbox, "%f,%f,%f,%f", &minx, &miny, &maxx, &maxy); err != nil {
		return nil, fmt.Errorf("malformed bbox, expected minx,miny,maxx,maxy: %w", err)
	}
	return geometry.PolygonFromBBox(minx, miny, maxx, maxy), nil
}

func credentials(username, password, serviceID string) (auth.Credentials, error) {
	if username != "" && password != "" {
		return auth.NewCredentials(username, password), nil
	}
	return auth.CredentialsFromEnv(serviceID)
}
