package image

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixforge/nixforge/internal/platform/scaleway"
)

func catalogEntry(name string, categories []string, created time.Time, localImages ...scaleway.LocalImage) scaleway.MarketplaceImage {
	return scaleway.MarketplaceImage{
		ID:                   "entry-" + name,
		Name:                 name,
		Categories:           categories,
		CreationDate:         created,
		CurrentPublicVersion: "pub-" + name,
		Versions: []scaleway.MarketplaceVersion{
			{ID: "old-" + name, LocalImages: []scaleway.LocalImage{{ID: "stale", Zone: "fr-par-1", CompatibleCommercialTypes: []string{"DEV1-M"}}}},
			{ID: "pub-" + name, LocalImages: localImages},
		},
	}
}

func TestSelectBaseImage_ExcludesNonDistribution(t *testing.T) {
	catalog := []scaleway.MarketplaceImage{
		catalogEntry("Ubuntu Custom Appliance", []string{"instantapp"}, time.Now(),
			scaleway.LocalImage{ID: "li-app", Zone: "fr-par-1", CompatibleCommercialTypes: []string{"DEV1-M"}},
		),
	}

	_, err := SelectBaseImage(catalog, "fr-par-1", "DEV1-M")
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestSelectBaseImage_ExcludesNameMismatch(t *testing.T) {
	catalog := []scaleway.MarketplaceImage{
		catalogEntry("Debian Bookworm", []string{"distribution"}, time.Now(),
			scaleway.LocalImage{ID: "li-deb", Zone: "fr-par-1", CompatibleCommercialTypes: []string{"DEV1-M"}},
		),
	}

	_, err := SelectBaseImage(catalog, "fr-par-1", "DEV1-M")
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestSelectBaseImage_PrefersNewestEntry(t *testing.T) {
	older := catalogEntry("Ubuntu Focal", []string{"distribution"}, time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC),
		scaleway.LocalImage{ID: "li-focal", Zone: "fr-par-1", CompatibleCommercialTypes: []string{"DEV1-M"}},
	)
	newer := catalogEntry("Ubuntu Jammy", []string{"distribution"}, time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC),
		scaleway.LocalImage{ID: "li-jammy", Zone: "fr-par-1", CompatibleCommercialTypes: []string{"DEV1-M"}},
	)

	// Catalog order must not matter; creation date does.
	id, err := SelectBaseImage([]scaleway.MarketplaceImage{older, newer}, "fr-par-1", "DEV1-M")
	require.NoError(t, err)
	assert.Equal(t, "li-jammy", id)
}

func TestSelectBaseImage_FallsBackToOlderEntry(t *testing.T) {
	newer := catalogEntry("Ubuntu Jammy", []string{"distribution"}, time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC),
		scaleway.LocalImage{ID: "li-jammy-arm", Zone: "fr-par-1", CompatibleCommercialTypes: []string{"AMP2-C1"}},
	)
	older := catalogEntry("Ubuntu Focal", []string{"distribution"}, time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC),
		scaleway.LocalImage{ID: "li-focal", Zone: "fr-par-1", CompatibleCommercialTypes: []string{"DEV1-M"}},
	)

	id, err := SelectBaseImage([]scaleway.MarketplaceImage{newer, older}, "fr-par-1", "DEV1-M")
	require.NoError(t, err)
	assert.Equal(t, "li-focal", id)
}

func TestSelectBaseImage_LegacyZoneAlias(t *testing.T) {
	catalog := []scaleway.MarketplaceImage{
		catalogEntry("Ubuntu Jammy", []string{"distribution"}, time.Now(),
			scaleway.LocalImage{ID: "li-legacy", Zone: "par1", CompatibleCommercialTypes: []string{"DEV1-M"}},
		),
	}

	id, err := SelectBaseImage(catalog, "fr-par-1", "DEV1-M")
	require.NoError(t, err)
	assert.Equal(t, "li-legacy", id)
}

func TestSelectBaseImage_WrongZone(t *testing.T) {
	catalog := []scaleway.MarketplaceImage{
		catalogEntry("Ubuntu Jammy", []string{"distribution"}, time.Now(),
			scaleway.LocalImage{ID: "li-ams", Zone: "nl-ams-1", CompatibleCommercialTypes: []string{"DEV1-M"}},
		),
	}

	_, err := SelectBaseImage(catalog, "fr-par-1", "DEV1-M")
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestSelectBaseImage_IncompatibleCommercialType(t *testing.T) {
	catalog := []scaleway.MarketplaceImage{
		catalogEntry("Ubuntu Jammy", []string{"distribution"}, time.Now(),
			scaleway.LocalImage{ID: "li-gp", Zone: "fr-par-1", CompatibleCommercialTypes: []string{"GP1-XL"}},
		),
	}

	_, err := SelectBaseImage(catalog, "fr-par-1", "DEV1-M")
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestSelectBaseImage_OnlyCurrentPublicVersionConsidered(t *testing.T) {
	// The non-public version carries a compatible image with ID "stale";
	// it must not be picked.
	entry := catalogEntry("Ubuntu Jammy", []string{"distribution"}, time.Now(),
		scaleway.LocalImage{ID: "li-current", Zone: "fr-par-1", CompatibleCommercialTypes: []string{"DEV1-M"}},
	)

	id, err := SelectBaseImage([]scaleway.MarketplaceImage{entry}, "fr-par-1", "DEV1-M")
	require.NoError(t, err)
	assert.Equal(t, "li-current", id)
}

func TestSelectBaseImage_EmptyCatalog(t *testing.T) {
	_, err := SelectBaseImage(nil, "fr-par-1", "DEV1-M")
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestSelectBaseImage_CaseInsensitiveNameMarker(t *testing.T) {
	catalog := []scaleway.MarketplaceImage{
		catalogEntry("UBUNTU Noble", []string{"distribution"}, time.Now(),
			scaleway.LocalImage{ID: "li-noble", Zone: "fr-par-1", CompatibleCommercialTypes: []string{"DEV1-M"}},
		),
	}

	id, err := SelectBaseImage(catalog, "fr-par-1", "DEV1-M")
	require.NoError(t, err)
	assert.Equal(t, "li-noble", id)
}

func TestLegacyZoneAlias(t *testing.T) {
	tests := []struct {
		region string
		want   string
	}{
		{"fr-par-1", "par1"},
		{"nl-ams-1", "ams1"},
		{"par1", "par1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, legacyZoneAlias(tt.region), "region %s", tt.region)
	}
}
