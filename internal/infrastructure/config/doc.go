// Package config handles loading and validating Gray Logic Z-Wave configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading an optional .env file for secrets
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.ZWave.NetworkFile)
package config
