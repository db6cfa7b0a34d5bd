package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/seedtray/growlog/internal/api"
	"github.com/seedtray/growlog/internal/catchup"
	"github.com/seedtray/growlog/internal/models"
	"github.com/seedtray/growlog/internal/project"
	"github.com/seedtray/growlog/internal/store"
	"github.com/seedtray/growlog/internal/weather"
)

var demoUnits = []models.CultivationUnit{
	{ID: "bench-a-lettuce", OwnerID: "demo", Name: "Bench A lettuce", Crop: "lettuce", System: models.SystemHydro, Topology: models.TopologyNFT, Latitude: -36.794, Longitude: 146.977, Status: models.UnitActive},
	{ID: "bench-b-basil", OwnerID: "demo", Name: "Bench B basil", Crop: "basil", System: models.SystemHydro, Topology: models.TopologyDWC, Latitude: -36.794, Longitude: 146.977, Status: models.UnitActive},
	{ID: "bed-1-kale", OwnerID: "demo", Name: "Bed 1 kale", Crop: "kale", System: models.SystemSoil, Latitude: -36.729, Longitude: 146.968, Status: models.UnitActive},
}

type appContext struct {
	store   *store.Store
	weather *weather.Client
}

type cli struct {
	DB         string `help:"Path to the SQLite database." env:"GROWLOG_DB" default:"data/growlog.db"`
	WeatherURL string `help:"Historical weather archive endpoint (default: Open-Meteo)." env:"GROWLOG_WEATHER_URL"`

	Serve   serveCmd   `cmd:"" default:"withargs" help:"Run the HTTP API with the nightly catchup schedule."`
	Catchup catchupCmd `cmd:"" help:"Run one ghost sync pass and exit."`
	Project projectCmd `cmd:"" help:"Print the derived state of a unit and exit."`
	Seed    seedCmd    `cmd:"" help:"Seed demo cultivation units."`
}

type serveCmd struct {
	Port       string `help:"HTTP server port." env:"GROWLOG_PORT" default:"8080"`
	NoSchedule bool   `help:"Disable the nightly catchup schedule (server only, for local dev)."`
}

func (c *serveCmd) Run(app *appContext) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner := catchup.NewRunner(app.store, app.weather)
	server := api.NewServer(app.store, c.Port)
	server.SetCatchupRunner(runner)

	if c.NoSchedule {
		log.Println("catchup schedule disabled (--no-schedule)")
	} else {
		cr, err := runner.Schedule(ctx, catchup.DefaultSchedule)
		if err != nil {
			return err
		}
		defer cr.Stop()
	}

	log.Printf("starting server on :%s", c.Port)
	return server.Run(ctx)
}

type catchupCmd struct{}

func (c *catchupCmd) Run(app *appContext) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stats, err := catchup.NewRunner(app.store, app.weather).RunOnce(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	log.Printf("done: %d units, %d ghost rows committed", stats.UnitsScanned, stats.GhostsCommitted)
	return nil
}

type projectCmd struct {
	UnitID string `arg:"" help:"Unit to project."`
}

func (c *projectCmd) Run(app *appContext) error {
	unit, err := app.store.GetUnit(c.UnitID)
	if err != nil {
		return err
	}
	if unit == nil {
		return fmt.Errorf("unit %q not found", c.UnitID)
	}

	now := time.Now().UTC()
	logs, err := app.store.ListLogs(unit.ID)
	if err != nil {
		return err
	}
	cached, err := app.store.GetWeather(unit.Latitude, unit.Longitude, models.DayUTC(unit.PlantedDate), unit.EndDate(now))
	if err != nil {
		return err
	}

	state, err := project.Project(*unit, logs, cached, now)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

type seedCmd struct {
	PlantedDaysAgo int `help:"How many days ago the demo units were planted." default:"14"`
}

func (c *seedCmd) Run(app *appContext) error {
	planted := models.DayUTC(time.Now().UTC()).AddDate(0, 0, -c.PlantedDaysAgo)
	for _, unit := range demoUnits {
		unit.PlantedDate = planted
		if err := app.store.UpsertUnit(unit); err != nil {
			return fmt.Errorf("upsert unit %s: %w", unit.ID, err)
		}
	}
	log.Printf("seeded %d demo units planted %s", len(demoUnits), models.DateKey(planted))
	return nil
}

func main() {
	var flags cli
	ctx := kong.Parse(&flags,
		kong.Name("growlog"),
		kong.Description("Growth and health intelligence engine for cultivation units."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	db, err := sql.Open("sqlite", flags.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	wc := weather.NewClient()
	if flags.WeatherURL != "" {
		wc = weather.NewClientWithBaseURL(flags.WeatherURL)
	}

	app := &appContext{
		store:   st,
		weather: wc,
	}
	ctx.FatalIfErrorf(ctx.Run(app))
}
