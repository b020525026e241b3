package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/techcodes/backend/internal/config"
	"github.com/techcodes/backend/internal/db"
	"github.com/techcodes/backend/internal/models"
	"github.com/techcodes/backend/internal/service"
	"github.com/techcodes/backend/internal/sheet"
)

const defaultStatePath = "codegen.db"

// app carries the persistent flags shared by every subcommand.
type app struct {
	statePath string
	envFile   string
	verbose   bool
	now       func() time.Time
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "codegen",
		Short: "Generate technician codes and dispatch messages from a ticket sheet",
		Long: `codegen reads a field-service form export (.xlsx or .csv), assigns every
ticket a deterministic technician code and renders the dispatch message and
chat link for it.

The working set lives in a local SQLite file (--state) so sent flags survive
between invocations.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.statePath, "state", "", "SQLite state file (default: SQLITE_PATH or "+defaultStatePath+")")
	root.PersistentFlags().StringVar(&a.envFile, "env", ".env", "Optional env file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.processCmd(),
		a.listCmd(),
		a.messageCmd(),
		a.markSentCmd(),
		a.exportCmd(),
		a.statusCmd(),
	)
	return root
}

func (a *app) open(ctx context.Context, cmd *cobra.Command) (*service.DispatchService, error) {
	cfg, err := config.LoadFile(a.envFile)
	if err != nil {
		return nil, err
	}
	level := zerolog.WarnLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).
		Level(level).With().Timestamp().Logger()

	path := a.statePath
	if path == "" {
		path = cfg.SQLitePath
	}
	if path == "" {
		path = defaultStatePath
	}
	store, err := db.NewSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", path, err)
	}
	logger.Debug().Str("state", path).Msg("state opened")

	pipeline, err := service.NewPipeline(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &service.DispatchService{
		Store:    store,
		Pipeline: pipeline,
		Logger:   logger,
		Now:      a.now,
	}, nil
}

// withService opens the state for the duration of fn.
func (a *app) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.DispatchService) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := a.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.Store.Close()
	return fn(ctx, svc)
}

func (a *app) processCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Import a ticket sheet and derive codes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.DispatchService) error {
				summary, err := svc.Import(ctx, filepath.Base(args[0]), data)
				if err != nil {
					return describeImportError(err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Procesados %d tickets (%d enviados)\n", summary.Records, summary.Sent)
				for _, c := range models.Categories {
					fmt.Fprintf(out, "  %-10s %d\n", c.Label(), summary.Categories[c.Label()])
				}
				if summary.TimestampSource == models.TimestampSourceClock {
					fmt.Fprintln(out, "Sin columna Start time: se usó la hora de procesamiento")
				}
				if summary.Reused {
					fmt.Fprintln(out, "Archivo ya procesado: se conservaron códigos y marcas de envío")
				}
				if output != "" {
					return writeExport(ctx, svc, output)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Also write the consolidated export (.xlsx or .csv)")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending tickets in sequencing order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.DispatchService) error {
				recs, err := svc.List(ctx, all)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "FILA\tCODIGO\tTIPO\tTECNICO\tRADIO\tENVIADO")
				for _, r := range recs {
					sent := "no"
					if r.Sent {
						sent = "si"
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.Row, r.Code, r.Category.Label(), r.Technician, r.Radio, sent)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include tickets already marked as sent")
	return cmd
}

func (a *app) messageCmd() *cobra.Command {
	var token string
	var linkOnly bool
	cmd := &cobra.Command{
		Use:   "message <code|row>",
		Short: "Render the dispatch message and link for one ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.DispatchService) error {
				d, err := svc.Message(ctx, args[0], token)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !linkOnly {
					fmt.Fprintln(out, d.Message)
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, d.Link)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Token to render in place of the placeholder")
	cmd.Flags().BoolVar(&linkOnly, "link", false, "Print only the link")
	return cmd
}

func (a *app) markSentCmd() *cobra.Command {
	var unsent bool
	cmd := &cobra.Command{
		Use:   "mark-sent <code|row>",
		Short: "Mark a ticket as sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.DispatchService) error {
				rec, err := svc.MarkSent(ctx, args[0], !unsent)
				if err != nil {
					return err
				}
				state := "enviado"
				if !rec.Sent {
					state = "pendiente"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (fila %d): %s\n", rec.Code, rec.Row, state)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unsent, "unsent", false, "Clear the sent flag instead")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the consolidated sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.DispatchService) error {
				if err := writeExport(ctx, svc, output); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exportado a %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "mensajes_generados.xlsx", "Output file (.xlsx or .csv)")
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current working set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.DispatchService) error {
				b, err := svc.Batch(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Archivo:    %s\n", b.SourceName)
				fmt.Fprintf(out, "Procesado:  %s\n", b.ProcessedAt.Format(time.RFC3339))
				fmt.Fprintf(out, "Hora desde: %s\n", b.TimestampSource)
				fmt.Fprintf(out, "Tickets:    %d (%d enviados)\n", len(b.Records), b.SentCount())
				return nil
			})
		},
	}
}

func writeExport(ctx context.Context, svc *service.DispatchService, path string) error {
	format, err := sheet.FormatFromName(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := svc.Export(ctx, format, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// describeImportError expands per-row timestamp failures into one line each.
func describeImportError(err error) error {
	rows := service.TimestampErrors(err)
	if len(rows) == 0 {
		return err
	}
	msg := fmt.Sprintf("%d filas con Start time inválido:", len(rows))
	for _, r := range rows {
		msg += fmt.Sprintf("\n  fila %d: %q", r.Row, r.Value)
	}
	return errors.New(msg)
}
