package gateway

import (
	"io"

	"github.com/diwise/inventory/pkg/inventory"
	yaml "gopkg.in/yaml.v2"
)

type Collections struct {
	Items         string `yaml:"items"`
	Instances     string `yaml:"instances"`
	MaterialTypes string `yaml:"materialTypes"`
	LoanTypes     string `yaml:"loanTypes"`
	Locations     string `yaml:"locations"`
}

type Tenant struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// StorageURL overrides the storage address for this tenant
	StorageURL string `yaml:"storageUrl"`
}

type Config struct {
	StorageURL  string      `yaml:"storageUrl"`
	Collections Collections `yaml:"collections"`
	// Tenants restricts access to the listed tenants. Any tenant is accepted if the list is empty.
	Tenants []Tenant `yaml:"tenants"`
}

func DefaultCollections() Collections {
	return Collections{
		Items:         inventory.ItemsPath,
		Instances:     inventory.InstancesPath,
		MaterialTypes: inventory.MaterialTypesPath,
		LoanTypes:     inventory.LoanTypesPath,
		Locations:     inventory.LocationsPath,
	}
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)
	if err != nil {
		return nil, err
	}

	cfg.Collections = cfg.Collections.withDefaults()

	return cfg, nil
}

func (c Collections) withDefaults() Collections {
	defaults := DefaultCollections()

	orDefault := func(value, def string) string {
		if value == "" {
			return def
		}
		return value
	}

	return Collections{
		Items:         orDefault(c.Items, defaults.Items),
		Instances:     orDefault(c.Instances, defaults.Instances),
		MaterialTypes: orDefault(c.MaterialTypes, defaults.MaterialTypes),
		LoanTypes:     orDefault(c.LoanTypes, defaults.LoanTypes),
		Locations:     orDefault(c.Locations, defaults.Locations),
	}
}
