package geospatial

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var ErrInvalidCoordinates = errors.New("coordinates out of range")

// Site is a located observation to render on a map
type Site struct {
	ID         string
	Latitude   float64
	Longitude  float64
	Properties map[string]any
}

// ValidateCoordinates checks WGS84 latitude and longitude ranges
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// Point converts latitude/longitude to an orb point (x is longitude).
func Point(lat, lon float64) orb.Point {
	return orb.Point{lon, lat}
}

// FeatureCollection builds a GeoJSON point collection. Sites with invalid
// coordinates are skipped. The collection carries a bbox when non-empty.
func FeatureCollection(sites []Site) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	points := make(orb.MultiPoint, 0, len(sites))
	for _, s := range sites {
		if ValidateCoordinates(s.Latitude, s.Longitude) != nil {
			continue
		}
		p := Point(s.Latitude, s.Longitude)
		f := geojson.NewFeature(p)
		f.ID = s.ID
		for k, v := range s.Properties {
			f.Properties[k] = v
		}
		fc.Append(f)
		points = append(points, p)
	}
	if len(points) > 0 {
		fc.BBox = geojson.NewBBox(points.Bound())
	}
	return fc
}

// Center returns the center of the sites' bounding box. ok is false when no
// site has valid coordinates.
func Center(sites []Site) (lat, lon float64, ok bool) {
	points := make(orb.MultiPoint, 0, len(sites))
	for _, s := range sites {
		if ValidateCoordinates(s.Latitude, s.Longitude) == nil {
			points = append(points, Point(s.Latitude, s.Longitude))
		}
	}
	if len(points) == 0 {
		return 0, 0, false
	}
	c := points.Bound().Center()
	return c.Lat(), c.Lon(), true
}
