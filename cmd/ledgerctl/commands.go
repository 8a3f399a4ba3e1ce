package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/drive"
	"github.com/andresuchdata/checkstock/internal/export"
	"github.com/andresuchdata/checkstock/internal/forecast"
	"github.com/andresuchdata/checkstock/internal/pipeline/checkstock"
	"github.com/andresuchdata/checkstock/internal/storage"
)

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "material", Aliases: []string{"m"}, Usage: "Restrict to materials (repeatable)"},
		&cli.StringFlag{Name: "lot", Usage: "Restrict to one lot code"},
		&cli.StringFlag{Name: "from", Usage: "First observed date (yyyy-mm-dd)"},
		&cli.StringFlag{Name: "to", Usage: "Last observed date (yyyy-mm-dd)"},
	}
}

func parseFilter(c *cli.Context) (domain.LedgerFilter, error) {
	filter := domain.LedgerFilter{
		Materials: c.StringSlice("material"),
		Lot:       c.String("lot"),
	}
	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := strings.TrimSpace(c.String(name))
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, fmt.Errorf("--%s: expected yyyy-mm-dd, got %q", name, raw)
		}
		*dst = &t
	}
	return filter, nil
}

// collectWorkbooks expands directories into the workbooks they contain.
func collectWorkbooks(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && storage.IsWorkbook(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", arg, err)
		}
	}
	return files, nil
}

func ingestPaths(c *cli.Context, paths []string) error {
	application, err := appFrom(c)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		log.Info().Msg("no workbooks to ingest")
		return nil
	}

	reports, err := application.Service.IngestFiles(c.Context, paths)
	printReports(c.App.Writer, reports)
	return err
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Ingest check-stock workbooks (files or directories), oldest snapshot first",
		ArgsUsage: "<file|dir>...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("at least one workbook or directory is required")
			}
			files, err := collectWorkbooks(c.Args().Slice())
			if err != nil {
				return err
			}
			return ingestPaths(c, files)
		},
	}
}

func forecastCommand() *cli.Command {
	return &cli.Command{
		Name:  "forecast",
		Usage: "Print reorder recommendations ordered by urgency",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "material", Aliases: []string{"m"}, Usage: "Restrict to materials (repeatable)"},
			&cli.IntFlag{Name: "lead-time-days", Usage: "Supplier lead time in days (default from FORECAST_LEAD_TIME_DAYS)"},
			&cli.IntFlag{Name: "horizon-days", Usage: "Coverage horizon in days (default from FORECAST_HORIZON_DAYS)"},
		},
		Action: func(c *cli.Context) error {
			application, err := appFrom(c)
			if err != nil {
				return err
			}

			req := forecast.Request{
				Materials:    c.StringSlice("material"),
				LeadTimeDays: c.Int("lead-time-days"),
				HorizonDays:  c.Int("horizon-days"),
			}
			if c.IsSet("lead-time-days") && req.LeadTimeDays == 0 {
				return &domain.ForecastParamError{Param: "lead_time_days"}
			}
			if c.IsSet("horizon-days") && req.HorizonDays == 0 {
				return &domain.ForecastParamError{Param: "horizon_days"}
			}

			recs, err := application.Service.Forecast(c.Context, req)
			if err != nil {
				return err
			}
			printForecast(c.App.Writer, recs)
			return nil
		},
	}
}

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Print on-hand totals per material",
		Flags: filterFlags(),
		Action: func(c *cli.Context) error {
			application, err := appFrom(c)
			if err != nil {
				return err
			}
			filter, err := parseFilter(c)
			if err != nil {
				return err
			}

			snaps, err := application.Service.Snapshot(c.Context, filter)
			if err != nil {
				return err
			}
			totals, err := application.Service.Totals(c.Context, filter)
			if err != nil {
				return err
			}
			printSnapshot(c.App.Writer, snaps, totals)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	flags := append(filterFlags(),
		&cli.StringFlag{Name: "format", Value: "xlsx", Usage: "xlsx or pdf"},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default bao-cao-<date>.<format>)"},
		&cli.StringFlag{Name: "title", Usage: "PDF report title"},
	)
	return &cli.Command{
		Name:  "export",
		Usage: "Export ledger records to Excel or PDF",
		Flags: flags,
		Action: func(c *cli.Context) error {
			application, err := appFrom(c)
			if err != nil {
				return err
			}
			filter, err := parseFilter(c)
			if err != nil {
				return err
			}

			var r export.Renderer
			switch strings.ToLower(c.String("format")) {
			case "xlsx", "excel":
				r = export.XLSXRenderer{}
			case "pdf":
				r = export.PDFRenderer{Title: c.String("title")}
			default:
				return fmt.Errorf("unknown format %q (xlsx or pdf)", c.String("format"))
			}

			out := c.String("out")
			if out == "" {
				out = "bao-cao-" + time.Now().Format("20060102") + r.Extension()
			}
			return writeFile(out, func(f *os.File) error {
				return application.Service.Export(c.Context, f, r, filter)
			})
		},
	}
}

func lotCardCommand() *cli.Command {
	return &cli.Command{
		Name:      "lot-card",
		Usage:     "Render the A5 management card of a lot",
		ArgsUsage: "<lot>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default phieu-lo-<lot>.pdf)"},
		},
		Action: func(c *cli.Context) error {
			application, err := appFrom(c)
			if err != nil {
				return err
			}
			lot := c.Args().First()
			if lot == "" {
				return fmt.Errorf("lot code is required")
			}

			out := c.String("out")
			if out == "" {
				out = "phieu-lo-" + strings.ReplaceAll(domain.NormalizeCode(lot), " ", "_") + ".pdf"
			}
			return writeFile(out, func(f *os.File) error {
				return application.Service.LotCard(c.Context, f, lot)
			})
		},
	}
}

func recordCommand() *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Record a manual inbound or outbound movement",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Required: true, Usage: "inbound (nhap) or outbound (xuat)"},
			&cli.StringFlag{Name: "material", Aliases: []string{"m"}, Required: true},
			&cli.StringFlag{Name: "lot"},
			&cli.StringFlag{Name: "location"},
			&cli.Float64Flag{Name: "bags"},
			&cli.Float64Flag{Name: "kg", Usage: "Weight in kg"},
			&cli.StringFlag{Name: "supplier"},
			&cli.StringFlag{Name: "date", Usage: "Movement date (yyyy-mm-dd), default today"},
		},
		Action: func(c *cli.Context) error {
			application, err := appFrom(c)
			if err != nil {
				return err
			}

			kind, ok := domain.ParseEntryKind(c.String("kind"))
			if !ok {
				return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidTransaction, c.String("kind"))
			}
			tx := domain.Transaction{
				Kind:     kind,
				Material: c.String("material"),
				Lot:      c.String("lot"),
				Location: c.String("location"),
				Bags:     c.Float64("bags"),
				WeightKg: c.Float64("kg"),
				Supplier: c.String("supplier"),
			}
			if raw := c.String("date"); raw != "" {
				tx.Date, err = time.Parse("2006-01-02", raw)
				if err != nil {
					return fmt.Errorf("--date: expected yyyy-mm-dd, got %q", raw)
				}
			}

			entry, err := application.Service.RecordTransaction(c.Context, tx)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "recorded %s %s lot=%s kg=%s id=%s\n",
				entry.Kind, entry.Material, entry.Lot, formatKg(entry.WeightKg), entry.ID)
			return nil
		},
	}
}

func drivePullCommand() *cli.Command {
	return &cli.Command{
		Name:  "drive-pull",
		Usage: "Download workbooks from a Google Drive folder and ingest them",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "folder-id", Usage: "Drive folder ID", EnvVars: []string{"DRIVE_FOLDER_ID"}},
			&cli.StringFlag{Name: "download-dir", Usage: "Local download directory", EnvVars: []string{"DRIVE_DOWNLOAD_DIR"}},
			&cli.IntFlag{Name: "concurrency", Value: 4, Usage: "Parallel downloads"},
			&cli.BoolFlag{Name: "download-only", Usage: "Skip ingestion"},
		},
		Action: func(c *cli.Context) error {
			application, err := appFrom(c)
			if err != nil {
				return err
			}
			cfg := application.Config.Drive

			folderID := c.String("folder-id")
			if folderID == "" {
				folderID = cfg.FolderID
			}
			if folderID == "" {
				return fmt.Errorf("folder-id is required")
			}
			downloadDir := c.String("download-dir")
			if downloadDir == "" {
				downloadDir = cfg.DownloadDir
			}

			driveSvc, err := drive.NewServiceFromFile(c.Context, cfg.CredentialsFile)
			if err != nil {
				return err
			}

			log.Info().Str("folder", folderID).Str("dir", downloadDir).Msg("downloading workbooks from Drive")
			files, err := drive.NewDownloader(driveSvc).DownloadFolder(c.Context, drive.DownloadOptions{
				FolderID:    folderID,
				DownloadDir: downloadDir,
				Concurrency: c.Int("concurrency"),
			})
			if err != nil {
				return fmt.Errorf("failed to download files from Drive: %w", err)
			}
			if c.Bool("download-only") {
				for _, f := range files {
					fmt.Fprintln(c.App.Writer, f)
				}
				return nil
			}
			return ingestPaths(c, files)
		},
	}
}

func storagePullCommand() *cli.Command {
	return &cli.Command{
		Name:  "storage-pull",
		Usage: "Download workbooks from S3-compatible storage and ingest them",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "prefix", Usage: "Object prefix (default STORAGE_PREFIX)"},
			&cli.StringFlag{Name: "key", Usage: "Single object key, relative to the prefix"},
			&cli.StringFlag{Name: "dest", Value: "./data/tmp/storage", Usage: "Local download directory"},
			&cli.BoolFlag{Name: "download-only", Usage: "Skip ingestion"},
		},
		Action: func(c *cli.Context) error {
			application, err := appFrom(c)
			if err != nil {
				return err
			}
			if application.Storage == nil {
				return errors.New("object storage is not configured (set STORAGE_BUCKET)")
			}

			prefix := c.String("prefix")
			if prefix == "" {
				prefix = application.Config.Storage.Prefix
			}

			downloader, err := storage.NewDownloader(application.Storage, c.String("dest"))
			if err != nil {
				return err
			}
			files, err := downloader.Download(c.Context, prefix, c.String("key"))
			if err != nil {
				return err
			}
			if c.Bool("download-only") {
				for _, f := range files {
					fmt.Fprintln(c.App.Writer, f)
				}
				return nil
			}
			return ingestPaths(c, files)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the ledger and ingest tracking tables",
		Action: func(c *cli.Context) error {
			application, err := appFrom(c)
			if err != nil {
				return err
			}
			if application.DB == nil {
				return errors.New("migrate needs the postgres backend")
			}
			if err := application.DB.EnsureSchema(c.Context); err != nil {
				return err
			}
			log.Info().Msg("schema is up to date")
			return nil
		},
	}
}

func writeFile(path string, render func(f *os.File) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info().Str("file", path).Msg("written")
	return nil
}

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Show ingest run statistics, or the sheets of one run",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "id", Usage: "Ingest run ID"},
			&cli.DurationFlag{Name: "since", Value: 7 * 24 * time.Hour, Usage: "Statistics window"},
		},
		Action: func(c *cli.Context) error {
			application, err := appFrom(c)
			if err != nil {
				return err
			}
			if application.Runs == nil {
				return errors.New("run tracking needs the postgres backend")
			}

			if id := c.Int64("id"); id > 0 {
				run, err := application.Runs.GetRun(c.Context, id)
				if err != nil {
					return fmt.Errorf("failed to load run %d: %w", id, err)
				}
				jobs, err := application.Runs.GetSheetJobsByRunID(c.Context, id)
				if err != nil {
					return err
				}
				printRun(c.App.Writer, run, jobs)
				return nil
			}

			since := time.Now().Add(-c.Duration("since"))
			stats, err := application.Runs.GetPipelineStats(c.Context, checkstock.PipelineName, since)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "since %s: %d sheets, %d entries, %d failed runs, last at %s\n",
				since.Format(time.DateTime), stats.SheetsProcessed, stats.EntriesProcessed,
				stats.ErrorCount, stats.LastProcessedAt.Format(time.DateTime))
			return nil
		},
	}
}
