package common

import (
	"fmt"
	"strings"
	"time"
)

//go:generate go run github.com/dmarkham/enumer -json -type Sensor

// Sensor defines the kind of satellites
type Sensor int

const (
	Unknown   Sensor = iota
	Sentinel1        // MMM_BB_TTTR_LFPP_YYYYMMDDTHHMMSS_YYYMMDDTHHMMSS_OOOOOO_DDDDDD_CCCC.SAFE
	Sentinel2        // MMM_MSIXXX_YYYYMMDDTHHMMSS_Nxxyy_ROOO_Txxxxx_<Product Discriminator>.SAFE
	Sentinel3        // MMM_II_L_TTTTTT_YYYYMMDDTHHMMSS_YYYYMMDDTHHMMSS_[...].SEN3
)

// GetSensorFromString returns the sensor from the user input
func GetSensorFromString(input string) Sensor {
	switch strings.ToLower(input) {
	case "sentinel1", "sentinel-1", "s1":
		return Sentinel1
	case "sentinel2", "sentinel-2", "s2":
		return Sentinel2
	case "sentinel3", "sentinel-3", "s3":
		return Sentinel3
	}
	return GetSensorFromProductID(input)
}

// GetSensorFromProductID returns the sensor from the product identifier prefix
func GetSensorFromProductID(productID string) Sensor {
	if strings.HasPrefix(productID, "S1") {
		return Sentinel1
	}
	if strings.HasPrefix(productID, "S2") {
		return Sentinel2
	}
	if strings.HasPrefix(productID, "S3") {
		return Sentinel3
	}
	return Unknown
}

// GetDateFromProductID parses the acquisition date embedded in the product identifier
func GetDateFromProductID(productID string) (time.Time, error) {
	format, err := Info(productID)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse("20060102", fmt.Sprintf("%s%s%s", format["YEAR"], format["MONTH"], format["DAY"]))
}

// Info parses the product identifier into its naming-convention fields
func Info(productID string) (map[string]string, error) {
	switch GetSensorFromProductID(productID) {
	case Sentinel1:
		if len(productID) < len("MMM_BB_TTTR_LFPP_YYYYMMDDTHHMMSS_YYYYMMDDTHHMMSS_OOOOOO_DDDDDD_CCCC") {
			return nil, fmt.Errorf("invalid Sentinel1 file name: %s", productID)
		}
		return map[string]string{
			"SCENE":            productID,
			"MISSION_ID":       productID[0:3],
			"MISSION_VERSION":  productID[2:3],
			"MODE":             productID[4:6],
			"PRODUCT_TYPE":     productID[7:10],
			"RESOLUTION":       productID[10:11],
			"PROCESSING_LEVEL": productID[12:13],
			"PRODUCT_CLASS":    productID[13:14],
			"POLARISATION":     productID[14:16],
			"DATE":             productID[17:25],
			"YEAR":             productID[17:21],
			"MONTH":            productID[21:23],
			"DAY":              productID[23:25],
			"TIME":             productID[26:32],
			"HOUR":             productID[26:28],
			"MINUTE":           productID[28:30],
			"SECOND":           productID[30:32],
			"ORBIT":            productID[49:55],
			"MISSION":          productID[56:62],
			"UNIQUE_ID":        productID[63:67],
		}, nil
	case Sentinel2:
		if len(productID) < len("MMM_MSIXXX_YYYYMMDDTHHMMSS_Nxxyy_ROOO_Txxxxx_<Product Disc.>") {
			return nil, fmt.Errorf("invalid Sentinel2 file name: %s", productID)
		}
		return map[string]string{
			"SCENE":           productID,
			"MISSION_ID":      productID[0:3],
			"MISSION_VERSION": productID[2:3],
			"PRODUCT_LEVEL":   productID[7:10],
			"DATE":            productID[11:19],
			"YEAR":            productID[11:15],
			"MONTH":           productID[15:17],
			"DAY":             productID[17:19],
			"TIME":            productID[20:26],
			"HOUR":            productID[20:22],
			"MINUTE":          productID[22:24],
			"SECOND":          productID[24:26],
			"PDGS":            productID[28:32],
			"ORBIT":           productID[34:37],
			"TILE":            productID[38:44],
			"LATITUDE_BAND":   productID[39:41],
			"GRID_SQUARE":     productID[41:42],
			"GRANULE_ID":      productID[42:44],
			"PRODUCT_DISC":    productID[45:60],
		}, nil
	case Sentinel3:
		if len(productID) < len("MMM_II_L_TTTTTT_YYYYMMDDTHHMMSS") {
			return nil, fmt.Errorf("invalid Sentinel3 file name: %s", productID)
		}
		return map[string]string{
			"SCENE":            productID,
			"MISSION_ID":       productID[0:3],
			"MISSION_VERSION":  productID[2:3],
			"INSTRUMENT":       productID[4:6],
			"PROCESSING_LEVEL": productID[7:8],
			"PRODUCT_TYPE":     strings.TrimRight(productID[9:15], "_"),
			"DATE":             productID[16:24],
			"YEAR":             productID[16:20],
			"MONTH":            productID[20:22],
			"DAY":              productID[22:24],
			"TIME":             productID[25:31],
			"HOUR":             productID[25:27],
			"MINUTE":           productID[27:29],
			"SECOND":           productID[29:31],
		}, nil
	}
	return nil, fmt.Errorf("Info: sensor not supported")
}
