package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/pickframe/photos-front/internal"
	"github.com/pickframe/photos-front/internal/config"
	"github.com/pickframe/photos-front/internal/log"
)

var BuildVersion = "dev"

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"server": map[string]any{
			"addr":        ":8080",
			"frontendUrl": "https://photos.yourcompany.com",
		},
		"google": map[string]any{
			"clientId":     map[string]string{"$env": "GOOGLE_CLIENT_ID"},
			"clientSecret": map[string]string{"$env": "GOOGLE_CLIENT_SECRET"},
			"redirectUri":  "https://api.yourcompany.com/auth-callback",
		},
		"session": map[string]any{
			"secret": map[string]string{"$env": "SESSION_SECRET"},
		},
		"storage": map[string]any{
			"kind":                "firestore",
			"gcpProject":          "your-project",
			"firestoreCollection": "photos_tokens",
		},
		"picker": map[string]any{
			"apiKey":       map[string]string{"$env": "GOOGLE_API_KEY"},
			"maxItemCount": 50,
		},
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func main() {
	conf := flag.String("config", "", "path to config file (required)")
	version := flag.Bool("version", false, "print version and exit")
	configInit := flag.String("config-init", "", "generate default config file at specified path")
	flag.Parse()

	if *version {
		fmt.Println(BuildVersion)
		return
	}
	if *configInit != "" {
		if err := generateDefaultConfig(*configInit); err != nil {
			log.LogError("Failed to generate config: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default config at: %s\n", *configInit)
		return
	}
	if *conf == "" {
		fmt.Fprintf(os.Stderr, "Error: -config flag is required\n")
		os.Exit(1)
	}

	// Optional; config env refs resolve against whatever is in the process env
	if err := godotenv.Load(); err == nil {
		log.LogDebug("Loaded environment from .env")
	}

	cfg, err := config.Load(*conf)
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	log.LogInfoWithFields("main", "Starting photos-front", map[string]any{
		"version": BuildVersion,
		"config":  *conf,
	})

	app, err := internal.NewPhotosFront(context.Background(), cfg)
	if err != nil {
		log.LogError("Failed to build application: %v", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		log.LogError("Server exited with error: %v", err)
		os.Exit(1)
	}
}
