// Package config provides configuration management for the Payroll Auditor.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, upload size limit)
//   - Storage: S3/MinIO credentials and bucket settings
//   - Log: Logging level and format
//   - Engine: Default comparison settings (tolerance, name threshold, fuzzy matching)
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
