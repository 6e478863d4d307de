// Package config provides centralized configuration management for RCN Pulse.
// It loads configuration from multiple sources, validates it and carries the
// trading-desk constants (grades, origins, destination port).
//
// # Configuration Sources
//
// Configuration is resolved in the following order, later sources winning:
//
//	1. Default values (Default)
//	2. YAML file: $RCN_CONFIG_FILE, config.yaml or configs/config.yaml
//	3. A .env file in the working directory (never overrides the real env)
//	4. Environment variables with the RCN_ prefix
//
// # Environment Variables
//
//	RCN_SERVER_PORT=8080
//	RCN_LEDGER_FILE=/data/RCN JAN 2020 TO DEC 2024.xlsx
//	RCN_COMTRADE_API_KEY=...        (or COMTRADE_API_KEY)
//	RCN_MARINETRAFFIC_API_KEY=...   (or MARINETRAFFIC_KEY)
//	RCN_FORECAST_DEFAULT_HORIZON=3
//	RCN_CACHE_INVALIDATE_SCHEDULE=0 2 * * *
//	RCN_DASHBOARD_IMPORTS_YEAR=2024
//
// Both adapter keys are optional. A missing key disables that adapter and
// the dashboard renders without its data.
package config
