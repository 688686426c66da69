package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/jemviewer/plotrec/core/archive"
	coreerrors "github.com/jemviewer/plotrec/core/errors"
	"github.com/jemviewer/plotrec/core/recorderconfig"
	"github.com/jemviewer/plotrec/core/viewer"
)

// version is stamped at release time via ldflags; default stays dev for local builds.
var version = "0.0.0-dev"

type Globals struct {
	Verbose bool   `help:"Enable debug logging." short:"v"`
	Config  string `help:"Recorder config path." default:".plotrec/config.yaml"`
}

type CLI struct {
	Globals

	Inspect InspectCmd `cmd:"" help:"Print a container's descriptor and blob inventory."`
	Code    CodeCmd    `cmd:"" help:"Print the replay code cells of a container."`
	Show    ShowCmd    `cmd:"" help:"Open a container in JEMViewer3."`
	Version VersionCmd `cmd:"" help:"Print the plotrec version."`
}

type InspectCmd struct {
	Path string `arg:"" help:"Container file (.jem3)."`
	JSON bool   `help:"Force JSON output even on a terminal."`
}

func (c *InspectCmd) Run(globals *Globals) error {
	result, err := archive.Inspect(c.Path)
	if err != nil {
		return err
	}
	if c.JSON || !isatty.IsTerminal(os.Stdout.Fd()) {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode inspect result: %w", err)
		}
		fmt.Println(string(encoded))
		return nil
	}

	fmt.Printf("version: %s\ncreated: %s\ncells: %d\n\n",
		result.Descriptor.Version, result.Descriptor.Created, len(result.Descriptor.Cells))

	table := tablewriter.NewTable(os.Stdout)
	table.Header("Key", "Bytes")
	for _, blob := range result.Blobs {
		if err := table.Append([]string{blob.Key, strconv.FormatInt(blob.Size, 10)}); err != nil {
			return fmt.Errorf("render blob table: %w", err)
		}
	}
	return table.Render()
}

type CodeCmd struct {
	Path string `arg:"" help:"Container file (.jem3)."`
}

func (c *CodeCmd) Run(globals *Globals) error {
	result, err := archive.Inspect(c.Path)
	if err != nil {
		return err
	}
	for i, cell := range result.Descriptor.Cells {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("# %s\n%s\n", cell.Description, cell.Code)
	}
	return nil
}

type ShowCmd struct {
	Path string `arg:"" help:"Container file (.jem3)."`
}

func (c *ShowCmd) Run(globals *Globals) error {
	configuration, err := recorderconfig.Load(globals.Config, true)
	if err != nil {
		return err
	}
	return viewer.Launch(c.Path, viewer.Options{
		AppPath: configuration.Viewer.AppPath,
		Logger:  newLogger(globals.Verbose),
	})
}

type VersionCmd struct{}

func (c *VersionCmd) Run(globals *Globals) error {
	fmt.Println("plotrec", version)
	return nil
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	configuration := zap.NewProductionConfig()
	configuration.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	logger, err := configuration.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	var c CLI
	ctx := kong.Parse(&c,
		kong.Name("plotrec"),
		kong.Description("plotrec: inspect and open recorded plotting containers (.jem3)"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
	)
	if err := ctx.Run(&c.Globals); err != nil {
		fmt.Fprintf(os.Stderr, "plotrec: %v\n", err)
		if hint := coreerrors.HintOf(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
