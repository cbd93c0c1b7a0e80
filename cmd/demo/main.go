package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"appkeyid/core"
	"appkeyid/core/authenticators"
	"appkeyid/storage"
	"appkeyid/uploader"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Core core.Config `yaml:",inline"`

	DB DBConfig `yaml:"db"`

	// EncryptionKey, when set, must be 32 bytes; session tokens are then
	// encrypted at rest.
	EncryptionKey string `yaml:"encryption_key"`
}

type DBConfig struct {
	Type       string `yaml:"type"`
	SQLitePath string `yaml:"sqlite_path"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	configPath := getEnv("CONFIG_PATH", "config.yaml")
	appConfig := loadConfig(configPath)

	store := initStore(appConfig)
	client := core.NewClient(&appConfig.Core,
		core.WithSessionStore(store),
		core.WithAuthenticator(authenticators.NewMockAuthenticator()),
	)

	ctx := context.Background()

	switch os.Args[1] {
	case "login":
		requireArgs(3, "login <email>")
		user, err := client.PerformLogin(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		log.Printf("Logged in as %s %s <%s>", user.FirstName, user.LastName, user.Email)

	case "verify":
		requireArgs(3, "verify <email>")
		user, err := client.PerformVerify(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Verify failed: %v", err)
		}
		log.Printf("Verified %s, %d passkey(s) enrolled", user.Email, len(user.Authenticators))

	case "upload":
		requireArgs(4, "upload <asset-id> <file>")
		runUpload(ctx, client, os.Args[2], os.Args[3])

	case "logout":
		client.Logout()
		log.Println("Session cleared")

	default:
		usage()
	}
}

func runUpload(ctx context.Context, client *core.Client, assetID, path string) {
	payload, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}

	coordinator := uploader.NewCoordinator(client, nil, nil, nil, nil)
	done := make(chan struct{})

	asset := &core.UploadAsset{ID: assetID, SourceLocator: path, Payload: payload}
	taskID, err := coordinator.UploadAsset(ctx, asset, true, func(event uploader.Event) {
		switch event.Type {
		case uploader.EventAssetProgress:
			log.Printf("%d/%d bytes (%.0f%%)", event.BytesSent, event.BytesTotal, event.Fraction*100)
		case uploader.EventAssetUploadError:
			log.Printf("Upload failed: %v", event.Err)
			close(done)
		case uploader.EventTransactionEnd:
			log.Printf("Uploaded to %s", event.URLs.Path)
			close(done)
		}
	})
	if err != nil {
		log.Fatalf("Failed to start upload: %v", err)
	}

	log.Printf("Upload started, task %s", taskID)
	<-done
}

func loadConfig(path string) *AppConfig {
	config := &AppConfig{Core: *core.DefaultConfig()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file: fall back to APPKEY_* environment variables.
			envConfig, err := core.LoadConfigFromEnv()
			if err != nil {
				log.Fatalf("Failed to load config from environment: %v", err)
			}
			config.Core = *envConfig
			return config
		}
		log.Fatalf("Failed to read config file %s: %v", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		log.Fatalf("Failed to parse config file: %v", err)
	}
	return config
}

func initStore(config *AppConfig) core.SessionStore {
	switch config.DB.Type {
	case "", "memory":
		return storage.NewMemoryStore()

	case "sqlite":
		var crypto *core.CryptoService
		if config.EncryptionKey != "" {
			var err error
			crypto, err = core.NewCryptoService(config.EncryptionKey)
			if err != nil {
				log.Fatalf("Failed to initialize crypto service: %v", err)
			}
		}
		store, err := storage.NewSQLiteStore(config.DB.SQLitePath, crypto)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite session store: %v", err)
		}
		log.Printf("Using SQLite session store: %s", config.DB.SQLitePath)
		return store

	default:
		log.Fatalf("Unsupported DB type: %s (supported: memory, sqlite)", config.DB.Type)
		return nil
	}
}

func requireArgs(n int, usageLine string) {
	if len(os.Args) < n {
		fmt.Fprintf(os.Stderr, "usage: demo %s\n", usageLine)
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: demo <login|verify|upload|logout> [args]")
	os.Exit(2)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
