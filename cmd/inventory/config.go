package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/diwise/inventory/internal/pkg/application/gateway"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
)

type AppConfig struct {
	servicePort      string
	storageURL       string
	configPath       string
	notifierEndpoint string
	debugClient      string
}

func LoadConfiguration(ctx context.Context) AppConfig {
	return AppConfig{
		servicePort:      env.GetVariableOrDefault(ctx, "SERVICE_PORT", "8080"),
		storageURL:       env.GetVariableOrDefault(ctx, "STORAGE_URL", ""),
		configPath:       env.GetVariableOrDefault(ctx, "INVENTORY_CONFIG_PATH", "/opt/diwise/config/inventory.yaml"),
		notifierEndpoint: env.GetVariableOrDefault(ctx, "NOTIFIER_ENDPOINT", ""),
		debugClient:      env.GetVariableOrDefault(ctx, "DEBUG_CLIENT", "false"),
	}
}

// gatewayConfig reads the tenant configuration file, if there is one. The storage
// address from the environment is used unless the file provides one.
func (c AppConfig) gatewayConfig() (*gateway.Config, error) {
	cfg := &gateway.Config{Collections: gateway.DefaultCollections()}

	f, err := os.Open(c.configPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err == nil {
		defer f.Close()

		cfg, err = gateway.LoadConfiguration(f)
		if err != nil {
			return nil, err
		}
	}

	if cfg.StorageURL == "" {
		cfg.StorageURL = c.storageURL
	}

	return cfg, nil
}
