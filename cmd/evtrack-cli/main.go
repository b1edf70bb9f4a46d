package main

import (
	"evtrack-backend/cmd/evtrack-cli/cmd"
	"evtrack-backend/lib/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	cmd.Execute()
}
