// Package config handles loading and validating SkyLink Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading an optional .env file beside the YAML file
//   - Overriding with SKYLINK_* environment variables
//   - Validation of required fields
//
// Sensitive values (MQTT password, InfluxDB token) should be supplied through
// the environment or the .env file rather than the YAML file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Monitor.ShotConfidence)
package config
