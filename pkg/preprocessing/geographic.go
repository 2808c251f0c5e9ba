package preprocessing

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const earthRadiusKm = 6378.137

type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Hospitals holds the two sites appointments are planned at.
var Hospitals = map[string]Coordinate{
	"Hengelo": {Latitude: 52.263950, Longitude: 6.77085},
	"Almelo":  {Latitude: 52.337151, Longitude: 6.64080},
}

var zip4 = regexp.MustCompile(`^(\d{4})`)

// Zip4 extracts the numeric part of a Dutch postal code ("7555 DL" -> 7555).
func Zip4(zip string) *int {
	m := zip4.FindStringSubmatch(strings.TrimSpace(zip))
	if m == nil {
		return nil
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &v
}

// Location derives the hospital site from the location description.
func Location(description string) string {
	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "hengelo"):
		return "Hengelo"
	case strings.Contains(desc, "almelo"):
		return "Almelo"
	default:
		return ""
	}
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(a, b Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dlat := lat2 - lat1
	dlon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	return earthRadiusKm * 2 * math.Asin(math.Sqrt(h))
}

// ZipIndex maps 4-digit postal codes to centroid coordinates.
type ZipIndex map[int]Coordinate

// LoadZipIndex reads a GeoNames postal code dump. An empty path yields an
// empty index and every distance stays unknown.
func LoadZipIndex(path string) (ZipIndex, error) {
	if path == "" {
		return ZipIndex{}, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open zip codes: %w", err)
	}
	defer f.Close()
	return ReadZipIndex(f)
}

// ReadZipIndex parses the tab separated GeoNames layout: country, postal
// code, place, three admin name/code pairs, latitude, longitude, accuracy.
// The first row for a postal code wins.
func ReadZipIndex(r io.Reader) (ZipIndex, error) {
	idx := ZipIndex{}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 11 {
			continue
		}
		code := Zip4(fields[1])
		if code == nil {
			continue
		}
		if _, seen := idx[*code]; seen {
			continue
		}
		lat, err := strconv.ParseFloat(fields[9], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: latitude: %w", line, err)
		}
		lon, err := strconv.ParseFloat(fields[10], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: longitude: %w", line, err)
		}
		idx[*code] = Coordinate{Latitude: lat, Longitude: lon}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read zip codes: %w", err)
	}
	return idx, nil
}

// Distance is the km between a patient's postal code and the hospital
// site, or nil when either end is unknown.
func (z ZipIndex) Distance(zip *int, location string) *float64 {
	if zip == nil {
		return nil
	}
	hospital, ok := Hospitals[location]
	if !ok {
		return nil
	}
	home, ok := z[*zip]
	if !ok {
		return nil
	}
	d := Haversine(home, hospital)
	return &d
}
