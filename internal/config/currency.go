package config

import (
	"fmt"
	"os"

	"marketplace-catalog/internal/currency"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type currencyFile struct {
	Base      string            `yaml:"base"`
	Fallback  string            `yaml:"fallback"`
	Rates     map[string]string `yaml:"rates"`
	Countries map[string]string `yaml:"countries"`
}

// LoadCurrency reads the rate table. Rates are quoted strings so they reach
// decimal without passing through float64.
func LoadCurrency(path string) (*currency.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read currency config: %w", err)
	}

	var file currencyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse currency config: %w", err)
	}

	rates := make(map[currency.Code]decimal.Decimal, len(file.Rates))
	for code, value := range file.Rates {
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", code, err)
		}
		rates[currency.ParseCode(code)] = rate
	}

	countries := make(map[string]currency.Code, len(file.Countries))
	for country, code := range file.Countries {
		countries[country] = currency.ParseCode(code)
	}

	return currency.NewTable(currency.ParseCode(file.Base), currency.ParseCode(file.Fallback), rates, countries)
}
