package main

import (
	"context"

	"alarmbridge/cmd/alarm-cli/commands"
	"alarmbridge/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "alarm-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
