// Package tiles implements the map background pipeline: provider
// selection, the on-disk tile cache, validated tile fetching with mirror
// fallthrough, and composition of tiles into a display-sized background.
package tiles

import (
	"strconv"
	"strings"
)

// Provider describes a tile source as an ordered list of endpoint
// templates. Templates use {z}, {x} and {y} placeholders; coordinate
// order differences between servers (ArcGIS serves z/y/x) are explicit
// in the template rather than hidden behind a flag.
//
// Endpoints are tried in order until one yields a valid tile, so each
// provider lists its mirrors first and a cross-provider fallback last.
type Provider struct {
	// Name identifies the provider and prefixes cache file names
	Name string

	// Endpoints are URL templates tried in order
	Endpoints []string
}

// URLs expands the provider's endpoint templates for one tile.
func (p Provider) URLs(x, y, zoom int) []string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(zoom),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	)

	urls := make([]string, len(p.Endpoints))
	for i, tmpl := range p.Endpoints {
		urls[i] = r.Replace(tmpl)
	}
	return urls
}

// osmEndpoints are the OpenStreetMap primary server and its mirrors.
var osmEndpoints = []string{
	"https://tile.openstreetmap.org/{z}/{x}/{y}.png",
	"https://a.tile.openstreetmap.org/{z}/{x}/{y}.png",
	"https://b.tile.openstreetmap.org/{z}/{x}/{y}.png",
	"https://c.tile.openstreetmap.org/{z}/{x}/{y}.png",
}

// builtinProviders maps provider names to their endpoint lists.
// Every non-OSM provider falls back to the OSM primary as a last resort.
var builtinProviders = map[string]Provider{
	"osm": {
		Name:      "osm",
		Endpoints: osmEndpoints,
	},
	"carto": {
		Name: "carto",
		Endpoints: []string{
			"https://cartodb-basemaps-a.global.ssl.fastly.net/light_all/{z}/{x}/{y}.png",
			"https://cartodb-basemaps-b.global.ssl.fastly.net/light_all/{z}/{x}/{y}.png",
			"https://cartodb-basemaps-c.global.ssl.fastly.net/light_all/{z}/{x}/{y}.png",
			"https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		},
	},
	"carto_dark": {
		Name: "carto_dark",
		Endpoints: []string{
			"https://cartodb-basemaps-a.global.ssl.fastly.net/dark_all/{z}/{x}/{y}.png",
			"https://cartodb-basemaps-b.global.ssl.fastly.net/dark_all/{z}/{x}/{y}.png",
			"https://cartodb-basemaps-c.global.ssl.fastly.net/dark_all/{z}/{x}/{y}.png",
			"https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		},
	},
	"stamen": {
		Name: "stamen",
		Endpoints: []string{
			"https://stamen-tiles.a.ssl.fastly.net/terrain/{z}/{x}/{y}.png",
			"https://stamen-tiles.b.ssl.fastly.net/terrain/{z}/{x}/{y}.png",
			"https://stamen-tiles-c.a.ssl.fastly.net/terrain/{z}/{x}/{y}.png",
			"https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		},
	},
	"esri": {
		Name: "esri",
		Endpoints: []string{
			// ArcGIS tile servers use z/y/x path order
			"https://server.arcgisonline.com/ArcGIS/rest/services/World_Street_Map/MapServer/tile/{z}/{y}/{x}",
			"https://services.arcgisonline.com/ArcGIS/rest/services/World_Street_Map/MapServer/tile/{z}/{y}/{x}",
			"https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		},
	},
}

// ForName returns the named built-in provider. Unknown names fall back
// to OSM.
func ForName(name string) Provider {
	if p, ok := builtinProviders[name]; ok {
		return p
	}
	return builtinProviders["osm"]
}

// Custom returns a provider for a self-hosted tile server. The server
// is expected to expose the standard /tile/{z}/{x}/{y}.png layout.
// A custom server has no fallback: misconfigurations should surface
// rather than silently pull from public servers.
func Custom(baseURL string) Provider {
	base := strings.TrimRight(baseURL, "/")
	return Provider{
		Name:      "custom",
		Endpoints: []string{base + "/tile/{z}/{x}/{y}.png"},
	}
}
