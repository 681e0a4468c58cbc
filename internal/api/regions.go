package api

import "lol-account-manager/internal/domain"

// Stored region values map to Riot platform hosts; platforms map to the
// regional routing host used by the account endpoint.
var regionPlatform = map[domain.Region]string{
	domain.RegionEUNE: "eun1",
	domain.RegionEUW:  "euw1",
	domain.RegionTR:   "tr1",
	domain.RegionPBE:  "pbe1",
}

var platformRouting = map[string]string{
	"eun1": "europe",
	"euw1": "europe",
	"tr1":  "europe",
	"pbe1": "americas",
}

func PlatformFor(region domain.Region) (string, bool) {
	platform, ok := regionPlatform[region]
	return platform, ok
}

func RoutingFor(platform string) (string, bool) {
	routing, ok := platformRouting[platform]
	return routing, ok
}
