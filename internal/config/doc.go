// Package config handles configuration loading for slack-mcp-gateway.
//
// # Overview
//
// Configuration is loaded from an optional YAML file with environment
// variable expansion, merged over built-in defaults. The gateway runs with
// no config file at all; flags and environment variables cover the common
// cases.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	slack:
//	  token: "${SLACK_TOKEN}"
//
// Syntax: ${VAR_NAME}
//
// # Environment Overrides
//
// SLACK_TOKEN (or SLACK_BOT_TOKEN) supplies the workspace token when the
// config file does not. PORT overrides server.port.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	session:
//	  ttl: "30m"
//	request:
//	  timeout: "25s"
//	pagination:
//	  time_budget: "15s"
//
// # Configuration Sections
//
// Server and transport:
//
//	transport: "http"   # stdio, http
//	server:
//	  host: "0.0.0.0"
//	  port: 3000
//
// Slack upstream:
//
//	slack:
//	  token: "${SLACK_TOKEN}"
//	  base_url: "https://slack.com/api"
//
// Session cache:
//
//	session:
//	  max_entries: 100
//	  ttl: "30m"
//
// Pagination:
//
//	pagination:
//	  time_budget: "15s"
//	  aggregate_without_query: false
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
