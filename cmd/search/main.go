package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/airbusgeo/sentinel-fetcher/catalog"
	"github.com/airbusgeo/sentinel-fetcher/catalog/entities"
	"github.com/airbusgeo/sentinel-fetcher/common"
	"github.com/airbusgeo/sentinel-fetcher/interface/auth"
	catclient "github.com/airbusgeo/sentinel-fetcher/interface/catalog"
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
	Params        string

	CatalogEndpoint string
	TokenURL        string
	ClientID        string
	Username        string
	Password        string

	Out        string
	Footprints string
	Verbose    bool
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
	flag.StringVar(&config.Params, "params", "", "additional catalog filters, comma-separated key=value pairs")

	flag.StringVar(&config.CatalogEndpoint, "catalog-endpoint", "https://finder.creodias.eu/resto/api", "address of the catalog service")
	flag.StringVar(&config.TokenURL, "token-url", "https://auth.creodias.eu/auth/realms/DIAS/protocol/openid-connect/token", "address of the authentication service")
	flag.StringVar(&config.ClientID, "client-id", auth.DefaultClientID, "client id of the authentication service")
	flag.StringVar(&config.Username, "catalog-username", "", "catalog account username (default: $CATALOG_USERNAME)")
	flag.StringVar(&config.Password, "catalog-password", "", "catalog account password (default: $CATALOG_PASSWORD)")

	flag.StringVar(&config.Out, "out", "", "write the product list to this file (default: stdout)")
	flag.StringVar(&config.Footprints, "footprints", "", "write the footprints to this GeoJSON file (optional)")
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

var errPartial = errors.New("partial results")

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		if errors.Is(err, errPartial) {
			log.Logger(ctx).Warn("search truncated", zap.Error(err))
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
	creds, err := credentials(config.Username, config.Password, auth.ServiceCatalog)
	if err != nil {
		return err
	}
	tokens := auth.NewManager(auth.Config{
		Service:     auth.ServiceCatalog,
		TokenURL:    config.TokenURL,
		ClientID:    config.ClientID,
		Credentials: creds,
	})

	engine := catalog.NewEngine(catclient.NewClient(config.CatalogEndpoint, tokens))
	iterator, err := engine.Search(ctx, query)
	if err != nil {
		return err
	}
	products, searchErr := iterator.Collect(ctx)
	if searchErr != nil && len(products) == 0 {
		return searchErr
	}
	log.Logger(ctx).Sugar().Infof("%d products found", len(products))

	if config.Out != "" {
		if err := catalog.WriteProductList(config.Out, products); err != nil {
			return err
		}
	} else {
		ids := make([]string, len(products))
		for i, product := range products {
			ids[i] = product.ID
		}
		if err := common.WriteProductList(os.Stdout, ids); err != nil {
			return err
		}
	}
	if config.Footprints != "" {
		if err := catalog.WriteFootprints(config.Footprints, products); err != nil {
			return err
		}
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
	if query.Parameters, err = parseParams(config.Params); err != nil {
		return entities.Query{}, err
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

func parseParams(list string) (map[string]string, error) {
	if list == "" {
		return nil, nil
	}
	params := map[string]string{}
	for _, kv := range strings.Split(list, ",") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed parameter, expected key=value: %s", kv)
		}
		params[parts[0]] = parts[1]
	}
	return params, nil
}

func credentials(username, password, serviceID string) (auth.Credentials, error) {
	if username != "" && password != "" {
		return auth.NewCredentials(username, password), nil
	}
	return auth.CredentialsFromEnv(serviceID)
}
