package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shenikar/incident_reporting_system/internal/client"
	"github.com/shenikar/incident_reporting_system/internal/config"
	"github.com/shenikar/incident_reporting_system/internal/device/agent"
	"github.com/shenikar/incident_reporting_system/internal/device/storage"
	"github.com/shenikar/incident_reporting_system/internal/device/submit"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/shenikar/incident_reporting_system/pkg/logger"
	redisclient "github.com/shenikar/incident_reporting_system/pkg/redis"
	"github.com/sirupsen/logrus"
)

const (
	storagePrefix = "incident_agent:"

	usage = `usage: agent <command> [flags]

commands:
  run       run the device agent (connectivity, offline queue, threat polling)
  report    submit a report now or queue it for later
  respond   mark a threat type as handled, silencing alerts for the cooldown window
  drain     send queued reports once
  status    print device id and queue state
`
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadAgentConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// stdout занят результатами команд
	log := logger.NewWithOutput(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to local Redis: %v", err)
	}
	defer redisClient.Close()

	store := storage.NewRedisStore(redisClient, storagePrefix)
	backend := client.New(cfg.BackendURL, cfg.ClientTimeout, log)
	a := agent.New(cfg, store, backend, log)

	err = runCommand(ctx, a, os.Args[1], os.Args[2:])
	// Начатая после восстановления связи отправка очереди доводится до конца
	a.Wait()
	if err != nil {
		log.WithError(err).Error("Command failed")
		redisClient.Close()
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, a *agent.Agent, command string, args []string) error {
	switch command {
	case "run":
		a.Run(ctx)
		return nil

	case "report":
		fs := flag.NewFlagSet("report", flag.ExitOnError)
		reportType := fs.String("type", "", "incident type: flood, medical, fire, other")
		description := fs.String("description", "", "free-form description")
		lat := fs.Float64("lat", 0, "latitude in degrees")
		lon := fs.Float64("lon", 0, "longitude in degrees")
		_ = fs.Parse(args)

		a.Probe(ctx)
		result := a.Submit(ctx, models.Report{
			Type:        models.ReportType(*reportType),
			Description: *description,
			Latitude:    *lat,
			Longitude:   *lon,
		})
		if err := printJSON(result); err != nil {
			return err
		}
		if result.Status == submit.StatusFailed {
			return fmt.Errorf("report not accepted: %s", result.Reason)
		}
		return nil

	case "respond":
		fs := flag.NewFlagSet("respond", flag.ExitOnError)
		threatType := fs.String("type", "", "threat type the user responded to")
		_ = fs.Parse(args)

		t := models.ReportType(*threatType)
		if !t.Valid() {
			return fmt.Errorf("unknown threat type %q", *threatType)
		}
		return a.Respond(ctx, t)

	case "drain":
		if !a.Probe(ctx) {
			return fmt.Errorf("backend is unreachable")
		}
		a.Wait()
		result, err := a.Drain(ctx)
		if err != nil {
			return err
		}
		return printJSON(result)

	case "status":
		a.Probe(ctx)
		status, err := a.Status(ctx)
		if err != nil {
			return err
		}
		return printJSON(status)
	}

	return fmt.Errorf("unknown command %q\n%s", command, usage)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
