package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cloudx-io/tokenauction/core"
)

// CatalogFile is the YAML layout of an item catalog:
//
//	items:
//	  - name: gold
//	    supply: 10
//	    token_price: "2.50"
type CatalogFile struct {
	Items []CatalogItem `yaml:"items"`
}

// CatalogItem is one catalog entry. Prices are strings so they parse exactly.
type CatalogItem struct {
	Name       string `yaml:"name"`
	Supply     uint64 `yaml:"supply"`
	TokenPrice string `yaml:"token_price"`
}

// LoadCatalog reads the catalog at path, or returns core.DefaultCatalog when
// path is empty.
func LoadCatalog(path string) ([]core.ItemSpec, error) {
	if path == "" {
		return core.DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return catalog, nil
}

// ParseCatalog decodes YAML catalog bytes into item specs.
func ParseCatalog(data []byte) ([]core.ItemSpec, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(file.Items) == 0 {
		return nil, errors.New("no items defined")
	}

	specs := make([]core.ItemSpec, len(file.Items))
	for i, item := range file.Items {
		if item.Supply == 0 {
			return nil, fmt.Errorf("item %d (%s): supply must be positive", i, item.Name)
		}

		price := decimal.NewFromInt(1)
		if item.TokenPrice != "" {
			parsed, err := decimal.NewFromString(item.TokenPrice)
			if err != nil {
				return nil, fmt.Errorf("item %d (%s): invalid token_price %q: %w", i, item.Name, item.TokenPrice, err)
			}
			if parsed.IsNegative() {
				return nil, fmt.Errorf("item %d (%s): token_price must not be negative", i, item.Name)
			}
			price = parsed
		}

		name := item.Name
		if name == "" {
			name = fmt.Sprintf("item-%d", i)
		}
		specs[i] = core.ItemSpec{Name: name, Supply: item.Supply, TokenPrice: price}
	}

	return specs, nil
}
