package image

import (
	"errors"
	"slices"
	"sort"
	"strings"

	"github.com/nixforge/nixforge/internal/platform/scaleway"
)

// ErrImageNotFound means no marketplace image satisfies the region and
// instance-type constraints. Selection runs before any billable resource is
// created, so this aborts the run cleanly.
var ErrImageNotFound = errors.New("no compatible base image found")

// distributionMarker filters the catalog down to likely base Ubuntu images.
const distributionMarker = "ubuntu"

// SelectBaseImage picks the local image ID of the newest base Ubuntu release
// compatible with the given region and commercial type.
//
// Candidates must carry the "distribution" category and the Ubuntu name
// marker. They are ranked newest-first by creation date so the latest release
// line wins; within an entry only its current public version is considered.
// A local image qualifies when it supports the commercial type and its zone
// matches the region either exactly or through the legacy short form
// ("fr-par-1" → "par1") still present in older API responses.
func SelectBaseImage(catalog []scaleway.MarketplaceImage, region, commercialType string) (string, error) {
	var candidates []scaleway.MarketplaceImage
	for _, entry := range catalog {
		if !strings.Contains(strings.ToLower(entry.Name), distributionMarker) {
			continue
		}
		if !slices.Contains(entry.Categories, "distribution") {
			continue
		}
		candidates = append(candidates, entry)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreationDate.After(candidates[j].CreationDate)
	})

	zones := []string{region, legacyZoneAlias(region)}

	for _, entry := range candidates {
		for _, version := range entry.Versions {
			if version.ID != entry.CurrentPublicVersion {
				continue
			}
			for _, local := range version.LocalImages {
				if !slices.Contains(local.CompatibleCommercialTypes, commercialType) {
					continue
				}
				if !slices.Contains(zones, local.Zone) {
					continue
				}
				return local.ID, nil
			}
		}
	}

	return "", ErrImageNotFound
}

// legacyZoneAlias derives the short-form zone code older API responses use:
// the last two hyphen-separated segments of the region joined without a
// separator ("fr-par-1" → "par1").
func legacyZoneAlias(region string) string {
	parts := strings.Split(region, "-")
	if len(parts) < 2 {
		return region
	}
	return strings.Join(parts[len(parts)-2:], "")
}
