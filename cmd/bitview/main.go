// Bitview reads a layout from a .bits, YAML or JSON file and prints a value through it.
//
//	bitview show --layout net.bits --type Header --set Lo=0xa 0xb0
//	bitview types --layout layouts.yaml
package main

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/gostdlib/base/context"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/bearlytools/binfield"
	"github.com/bearlytools/binfield/config"
	"github.com/bearlytools/binfield/internal/idl"
)

var log = logrus.WithField("prefix", "bitview")

// source is anything that can build Types by name.
type source interface {
	Type(name string) (*binfield.Type, error)
	Types() ([]*binfield.Type, error)
}

func main() {
	customFormatter := new(prefixed.TextFormatter)
	customFormatter.TimestampFormat = "2006-01-02 15:04:05"
	customFormatter.FullTimestamp = true
	logrus.SetFormatter(customFormatter)

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		exit(err)
	}
}

func newApp(out io.Writer) *cli.App {
	var (
		configPath string
		logLevel   string
		layoutPath string
		cfg        = config.Default()
	)

	layoutFlag := &cli.StringFlag{
		Name:        "layout",
		Aliases:     []string{"l"},
		Usage:       "Path to a .bits, .yaml or .json layout file",
		Required:    true,
		Destination: &layoutPath,
	}

	app := &cli.App{
		Name:      "bitview",
		Usage:     "Inspect and edit integers through named bit field layouts",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "Path to a YAML or JSON config with logging and display defaults",
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Logging verbosity (trace, debug, info, warn, error), overrides the config",
				Destination: &logLevel,
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			lvl, err := cfg.LogLevel()
			if err != nil {
				return err
			}
			logrus.SetLevel(lvl)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print a value and each of its fields",
				ArgsUsage: "<value>",
				Flags: []cli.Flag{
					layoutFlag,
					&cli.StringFlag{
						Name:     "type",
						Aliases:  []string{"t"},
						Usage:    "Name of the layout to use",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "base",
						Usage: "Base of <value>, 0 honors 0x, 0o and 0b prefixes (default from config)",
						Value: -1,
					},
					&cli.StringSliceFlag{
						Name:  "set",
						Usage: "Write field=value before printing, may be repeated, field may be a dotted path",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the value as a JSON record",
					},
				},
				Action: func(c *cli.Context) error {
					base := c.Int("base")
					if base < 0 {
						base = cfg.Display.Base
					}
					return show(c.Context, out, showArgs{
						layout: layoutPath,
						typ:    c.String("type"),
						value:  c.Args().First(),
						base:   base,
						sets:   c.StringSlice("set"),
						json:   c.Bool("json"),
					})
				},
			},
			{
				Name:  "types",
				Usage: "List the layouts in a file",
				Flags: []cli.Flag{layoutFlag},
				Action: func(c *cli.Context) error {
					return listTypes(c.Context, out, layoutPath)
				},
			},
		},
	}
	return app
}

type showArgs struct {
	layout string
	typ    string
	value  string
	base   int
	sets   []string
	json   bool
}

func show(ctx context.Context, out io.Writer, args showArgs) error {
	src, err := load(ctx, args.layout)
	if err != nil {
		return err
	}
	typ, err := src.Type(args.typ)
	if err != nil {
		return err
	}

	v := typ.Zero()
	if args.value != "" {
		v, err = typ.Parse(args.value, args.base)
		if err != nil {
			return err
		}
	}

	for _, s := range args.sets {
		path, raw, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("--set %q: want field=value", s)
		}
		x, ok := new(big.Int).SetString(strings.TrimSpace(raw), 0)
		if !ok {
			return fmt.Errorf("--set %q: %q is not an integer", s, raw)
		}
		if err := v.SetPath(strings.TrimSpace(path), x); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"field": path, "value": x}).Debug("set field")
	}

	if args.json {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	}
	fmt.Fprintln(out, v.String())
	return nil
}

func listTypes(ctx context.Context, out io.Writer, path string) error {
	src, err := load(ctx, path)
	if err != nil {
		return err
	}
	types, err := src.Types()
	if err != nil {
		return err
	}
	for _, t := range types {
		fmt.Fprintln(out, t.String())
	}
	return nil
}

// load reads layouts from a .bits file or a YAML/JSON config.
func load(ctx context.Context, path string) (source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("problem reading layout file %s: %w", path, err)
	}

	log.WithField("path", path).Debug("loading layouts")
	if filepath.Ext(path) == ".bits" {
		f, err := idl.ParseFile(ctx, path)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func exit(i ...any) {
	fmt.Fprintln(os.Stderr, i...)
	os.Exit(1)
}
