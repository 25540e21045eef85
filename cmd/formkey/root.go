package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/a3tai/formkey/internal/config"
	"github.com/a3tai/formkey/internal/mcp"
	"github.com/a3tai/formkey/internal/service"
)

// errDrift makes `drift` exit non-zero when the document changed
var errDrift = errors.New("document drifted from inventory")

// app carries the state shared by all commands of one invocation
type app struct {
	v       *viper.Viper
	out     io.Writer
	jsonOut bool
	cfg     *config.Config
	svc     *service.Service
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:   "formkey",
		Short: "Stable field identities and value write-back for large PDF forms",
		Long: `formkey builds an inventory of every fillable field of a multi-section PDF
form, keyed by content fingerprints and human-readable paths, keeps section
assignments consistent with the form's page ranges, and writes a value store
back into the document.

Every path is resolved inside the workspace directory (--dir).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd.Name() == "serve")
		},
	}

	config.BindFlags(root.PersistentFlags(), a.v)
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Print results as JSON")

	root.AddCommand(
		a.buildCmd(),
		a.reconcileCmd(),
		a.validateCmd(),
		a.driftCmd(),
		a.fillCmd(),
		a.entriesCmd(),
		a.rangesCmd(),
		a.serveCmd(),
		a.versionCmd(),
	)
	return root
}

func (a *app) setup(serving bool) error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	setupLogging(cfg, serving)
	if version != "dev" {
		cfg.Version = version
	}
	if cfg.IsDebug() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	svc, err := service.NewService(cfg.ServiceOptions(log.Default()))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	a.cfg, a.svc = cfg, svc
	return nil
}

// emit prints v as JSON with --json, otherwise through render
func (a *app) emit(v any, render func() string) error {
	if a.jsonOut {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := io.WriteString(a.out, render())
	return err
}

func (a *app) buildCmd() *cobra.Command {
	var req service.BuildRequest
	cmd := &cobra.Command{
		Use:   "build <source>",
		Short: "Build the field inventory from a PDF or widget extraction file",
		Long: `Build extracts every widget of <source> (a .pdf, or a JSON widget extraction),
groups widgets into logical fields, resolves each field's section, subsection
and entry from the structural index, and saves the inventory artifact.

Examples:
  formkey build sf86.pdf --index sf86-index.yaml
  formkey build widgets.json --reconcile --output inventory.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Source = args[0]
			res, err := a.svc.BuildInventory(req)
			if err != nil {
				return err
			}
			return a.emit(res, func() string { return renderBuild(res) })
		},
	}
	cmd.Flags().StringVar(&req.Output, "output", "", "Inventory path (defaults to --inventory)")
	cmd.Flags().StringVar(&req.Version, "doc-version", "", "Document version tag (defaults to name@hash)")
	cmd.Flags().BoolVar(&req.Reconcile, "reconcile", false, "Reconcile sections before saving")
	return cmd
}

func (a *app) reconcileCmd() *cobra.Command {
	var req service.ReconcileRequest
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Correct section assignments against the page-range table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.Reconcile(req)
			if err != nil {
				return err
			}
			return a.emit(res, func() string { return renderReconcile(res) })
		},
	}
	cmd.Flags().BoolVar(&req.DryRun, "dry-run", false, "Report corrections without saving")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "List fields whose page lies outside their section's page range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.Validate(service.ValidateRequest{})
			if err != nil {
				return err
			}
			return a.emit(res, func() string { return renderValidate(res) })
		},
	}
}

func (a *app) driftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drift <source>",
		Short: "Compare the inventory with a fresh extraction; exits 1 on drift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.DetectDrift(service.DriftRequest{Source: args[0]})
			if err != nil {
				return err
			}
			if err := a.emit(res, func() string { return renderDrift(res) }); err != nil {
				return err
			}
			if res.Report.Drifted() {
				return errDrift
			}
			return nil
		},
	}
}

func (a *app) fillCmd() *cobra.Command {
	var req service.FillRequest
	cmd := &cobra.Command{
		Use:   "fill <pdf> <values>",
		Short: "Write a value store into a copy of the PDF",
		Long: `Fill applies every value of <values> (a JSON object keyed by uiPath or by
fingerprint) to the matching field of <pdf> and writes the result to
--output, <pdf>.filled.pdf by default. Per-field failures are reported and
do not stop the run.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.PDF, req.Values = args[0], args[1]
			res, err := a.svc.Fill(req)
			if err != nil {
				return err
			}
			return a.emit(res, func() string { return renderFill(res) })
		},
	}
	cmd.Flags().StringVar(&req.Output, "output", "", "Output PDF")
	cmd.Flags().StringVar(&req.KeyMode, "key-mode", "", "Value-store key mode: uiPath or fingerprint")
	return cmd
}

func (a *app) entriesCmd() *cobra.Command {
	var req service.EntriesRequest
	cmd := &cobra.Command{
		Use:   "entries <list|show|add|remove|toggle> [section] [entry]",
		Short: "Inspect or change the active entries of multi-entry sections",
		Long: `Entries runs one entry-manager action. With --state the entry state is read
before and saved after the action, so consecutive calls build on each other.
With --values, removing an entry also clears its fields in the value store.

Examples:
  formkey entries list
  formkey entries add 13 --state entries.json
  formkey entries remove 13 2 --state entries.json --values values.json`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Action = args[0]
			if len(args) > 1 {
				req.Section = args[1]
			}
			if len(args) > 2 {
				n, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("invalid entry number %q", args[2])
				}
				req.Entry = n
			}
			if req.Action != service.EntriesList && req.Section == "" {
				return fmt.Errorf("entries %s requires a section", req.Action)
			}
			res, err := a.svc.Entries(req)
			if err != nil {
				return err
			}
			return a.emit(res, func() string { return renderEntries(res) })
		},
	}
	cmd.Flags().StringVar(&req.StateFile, "state", "", "JSON file holding entry state between calls")
	cmd.Flags().StringVar(&req.Values, "values", "", "Value store to clear removed entries in")
	cmd.Flags().StringVar(&req.KeyMode, "key-mode", "", "Value-store key mode: uiPath or fingerprint")
	return cmd
}

func (a *app) rangesCmd() *cobra.Command {
	var req service.RangesRequest
	cmd := &cobra.Command{
		Use:   "ranges <pdf>",
		Short: "Propose a page-range table from the section headings of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.PDF = args[0]
			res, err := a.svc.ProposeRanges(req)
			if err != nil {
				return err
			}
			return a.emit(res, func() string { return renderRanges(res) })
		},
	}
	cmd.Flags().StringVar(&req.Output, "output", "", "Write the proposed table here (YAML)")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the form tools over MCP (stdio, or HTTP/SSE with --mode=server)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := mcp.NewServer(a.cfg, a.svc)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if a.cfg.IsServerMode() {
				return runServerMode(ctx, cancel, server)
			}
			return server.Run(ctx)
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(a.out)
		},
	}
}
