package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-slot-api/internal/dto"
	"github.com/noah-isme/campus-slot-api/internal/models"
	"github.com/noah-isme/campus-slot-api/internal/repository"
	"github.com/noah-isme/campus-slot-api/internal/service"
	"github.com/noah-isme/campus-slot-api/migrations"
	"github.com/noah-isme/campus-slot-api/pkg/config"
	"github.com/noah-isme/campus-slot-api/pkg/database"
	"github.com/noah-isme/campus-slot-api/pkg/logger"
)

type slotQueries interface {
	ListAll(ctx context.Context) ([]models.Slot, error)
	ListAllocatable(ctx context.Context, campusID int64, on *models.Date) (*dto.AllocatableSlots, error)
	ListAllocatableFrom(ctx context.Context, campusID int64, cutoff string, on *models.Date) (*dto.AllocatableSlots, error)
	Availability(ctx context.Context, campusID int64, startTime string, on *models.Date) (*dto.SlotAvailability, error)
}

// runtime is what a command needs once config, logger and database are up.
type runtime struct {
	db     *sqlx.DB
	slots  slotQueries
	logger *zap.Logger
	close  func()
}

type opener func(ctx context.Context) (*runtime, error)

func main() {
	app := newApp(openRuntime, os.Stdout)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "slotctl:", err)
		os.Exit(1)
	}
}

func newApp(open opener, out io.Writer) *cli.App {
	return &cli.App{
		Name:      "slotctl",
		Usage:     "Inspect and migrate the campus slot store.",
		Writer:    out,
		ErrWriter: out,
		Commands: []*cli.Command{
			migrateCommand(open, out),
			listCommand(open, out),
			allocatableCommand(open, out),
			checkCommand(open, out),
		},
	}
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		_ = logr.Sync()
		return nil, err
	}
	svc := service.NewSlotService(repository.NewSlotRepository(db), nil, nil, validator.New(), logr, service.SlotServiceConfig{
		StrictValidation: cfg.Slots.StrictValidation,
		DefaultCutoff:    cfg.Slots.DefaultCutoff,
	})
	return &runtime{
		db:     db,
		slots:  svc,
		logger: logr,
		close: func() {
			_ = db.Close()
			_ = logr.Sync()
		},
	}, nil
}

func migrateCommand(open opener, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations.",
		Action: func(c *cli.Context) error {
			rt, err := open(c.Context)
			if err != nil {
				return err
			}
			defer rt.close()
			if rt.db == nil {
				return fmt.Errorf("migrate requires a database connection")
			}

			applied, err := migrations.Up(c.Context, rt.db, rt.logger)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "schema up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintln(out, "applied", name)
			}
			return nil
		},
	}
}

func listCommand(open opener, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print every valid slot.",
		Action: func(c *cli.Context) error {
			rt, err := open(c.Context)
			if err != nil {
				return err
			}
			defer rt.close()

			slots, err := rt.slots.ListAll(c.Context)
			if err != nil {
				return err
			}
			return printSlots(out, slots)
		},
	}
}

func allocatableCommand(open opener, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "allocatable",
		Usage: "Print the slots of a campus that can be scheduled on a date.",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "campus", Required: true, Usage: "campus id"},
			&cli.StringFlag{Name: "from", Usage: "only slots ending after HH:MM:SS"},
			&cli.StringFlag{Name: "date", Usage: "reference date YYYY-MM-DD, defaults to today"},
		},
		Action: func(c *cli.Context) error {
			on, err := dateFlag(c)
			if err != nil {
				return err
			}
			rt, err := open(c.Context)
			if err != nil {
				return err
			}
			defer rt.close()

			var listing *dto.AllocatableSlots
			if c.IsSet("from") {
				listing, err = rt.slots.ListAllocatableFrom(c.Context, c.Int64("campus"), c.String("from"), on)
			} else {
				listing, err = rt.slots.ListAllocatable(c.Context, c.Int64("campus"), on)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "campus %d on %s: %d allocatable\n", listing.CampusID, listing.ReferenceDate, len(listing.Slots))
			return printSlots(out, listing.Slots)
		},
	}
}

func checkCommand(open opener, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Report whether one slot is allocatable on a date.",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "campus", Required: true, Usage: "campus id"},
			&cli.StringFlag{Name: "start", Required: true, Usage: "slot start time HH:MM:SS"},
			&cli.StringFlag{Name: "date", Usage: "reference date YYYY-MM-DD, defaults to today"},
		},
		Action: func(c *cli.Context) error {
			on, err := dateFlag(c)
			if err != nil {
				return err
			}
			rt, err := open(c.Context)
			if err != nil {
				return err
			}
			defer rt.close()

			result, err := rt.slots.Availability(c.Context, c.Int64("campus"), c.String("start"), on)
			if err != nil {
				return err
			}
			verdict := "allocatable"
			if !result.Allocatable {
				verdict = "not allocatable"
			}
			fmt.Fprintf(out, "campus %d slot %s on %s: %s\n", result.Slot.CampusID, result.Slot.StartTime, result.ReferenceDate, verdict)
			return nil
		},
	}
}

func dateFlag(c *cli.Context) (*models.Date, error) {
	raw := c.String("date")
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
