package storage

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"housing-scraper/models"
)

type locationsFile struct {
	Locations []locationEntry `yaml:"locations"`
}

type locationEntry struct {
	Region     string `yaml:"region"`
	RegionID   int    `yaml:"region_id"`
	Name       string `yaml:"name"`
	LocationID int    `yaml:"location_id"`
}

// LoadLocations reads the static locations table from a YAML file and
// returns the ordered location list. Entries whose region matches
// capitalRegion are flagged as capital sub-districts, which changes
// how their query template is built.
func LoadLocations(path, capitalRegion string) ([]models.Location, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("locations: read %s: %w", path, err)
	}

	var file locationsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("locations: parse %s: %w", path, err)
	}
	if len(file.Locations) == 0 {
		return nil, fmt.Errorf("locations: %s contains no locations", path)
	}

	out := make([]models.Location, 0, len(file.Locations))
	for i, e := range file.Locations {
		if e.Region == "" || e.Name == "" {
			return nil, fmt.Errorf("locations: entry %d is missing region or name", i)
		}
		out = append(out, models.Location{
			Region:     e.Region,
			RegionID:   e.RegionID,
			Name:       strings.ToUpper(e.Name),
			LocationID: e.LocationID,
			Capital:    e.Region == capitalRegion,
		})
	}
	return out, nil
}
