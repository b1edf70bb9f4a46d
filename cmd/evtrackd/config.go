package main

import (
	"evtrack-backend/lib/runlog"
	"evtrack-backend/services/automation"
)

type Config struct {
	Port int `json:"port"`
	// ApiKeys is the static allow-list; requests present one via
	// X-API-Key or a bearer token.
	ApiKeys []string          `json:"api_keys"`
	Evtrack automation.Config `json:"evtrack"`
	Runlog  runlog.Config     `json:"runlog"`
}
