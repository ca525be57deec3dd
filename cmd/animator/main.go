package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/flanksource/animator"
	"github.com/flanksource/animator/shutdown"
	"github.com/flanksource/animator/storyboard"
)

// Build information (set by goreleaser)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := shutdown.WithSignals(context.Background())
	err := newRootCommand().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is the state shared by every command
type app struct {
	configFile string
	opts       animator.Options
	console    *animator.Console
}

func newRootCommand() *cobra.Command {
	a := &app{opts: animator.DefaultOptions()}

	rootCmd := &cobra.Command{
		Use:   "animator",
		Short: "Render animated videos from Excalidraw diagrams and scene timelines",
		Long: `Animator turns Excalidraw diagrams into MP4 videos that draw the diagram
element by element, and renders declarative scene timelines to video.

Frames are rendered to SVG, rasterized to PNG and encoded with ffmpeg. The
browser backend records excalidraw-animate in Chromium instead.`,
		Example: `  animator render diagram.excalidraw
  animator render diagram.excalidraw intro 12 --fps 24
  animator record diagram.excalidraw --headless
  animator scene two-tool-model
  animator storyboard diagram.excalidraw -o board.pdf`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := animator.LoadConfig(a.configFile, &a.opts, cmd.Flags()); err != nil {
				return err
			}
			a.opts.UseFlags()
			a.console = animator.NewConsole(a.opts.NoColor)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML config file (default $"+animator.EnvConfig+")")
	animator.BindFlags(rootCmd.PersistentFlags(), &a.opts)

	rootCmd.AddCommand(
		newRenderCommand(a, false),
		newRenderCommand(a, true),
		newSceneCommand(a),
		newFitCommand(a),
		newStoryboardCommand(a),
		newCacheCommand(a),
		newVersionCommand(),
	)
	return rootCmd
}

func (a *app) pipeline() *animator.Pipeline {
	return animator.NewPipeline(a.console)
}

// positional applies the optional [name] [duration-seconds] arguments
func (a *app) positional(args []string) error {
	a.opts.Input = args[0]
	if len(args) > 1 {
		a.opts.Name = args[1]
	}
	if len(args) > 2 {
		seconds, err := strconv.ParseFloat(args[2], 64)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("invalid duration %q: expected a positive number of seconds", args[2])
		}
		a.opts.Duration = time.Duration(seconds * float64(time.Second))
	}
	return nil
}

func newRenderCommand(a *app, record bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <file.excalidraw> [name] [duration-seconds]",
		Short: "Render an Excalidraw diagram to MP4",
		Long: `Render an Excalidraw diagram to MP4.

The frames backend fits the diagram to the canvas and draws every element in
turn. --backend browser records excalidraw-animate instead.`,
		Example: `  animator render diagram.excalidraw
  animator render diagram.excalidraw intro 12
  animator render diagram.excalidraw --backend browser --headless`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.positional(args); err != nil {
				return err
			}
			if record {
				a.opts.Backend = animator.BackendBrowser
			}
			p := a.pipeline()
			defer p.Close()
			result, err := p.RenderDiagram(cmd.Context(), a.opts)
			if err != nil {
				return err
			}
			a.summary(result)
			return nil
		},
	}
	if record {
		cmd.Use = "record <file.excalidraw> [name] [duration-seconds]"
		cmd.Short = "Record an Excalidraw diagram with excalidraw-animate in Chromium"
		cmd.Long = `Record an Excalidraw diagram by loading it into excalidraw-animate in
Chromium and capturing screenshots. Same as render --backend browser.`
		cmd.Example = `  animator record diagram.excalidraw
  animator record diagram.excalidraw demo 20 --headless`
	}
	return cmd
}

func (a *app) summary(result *animator.Result) {
	if result.Cached {
		return
	}
	a.console.Field("Elapsed", result.Elapsed.Round(time.Millisecond))
}

func newSceneCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scene <name|timeline.yaml> [name]",
		Short: "Render a built-in scene or a timeline file to MP4",
		Example: `  animator scene two-tool-model
  animator scene my-timeline.yaml intro
  animator scene list`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := animator.LoadScene(args[0])
			if err != nil {
				return err
			}
			if len(args) > 1 {
				a.opts.Name = args[1]
			}
			p := a.pipeline()
			defer p.Close()
			result, err := p.RenderScene(cmd.Context(), tl, a.opts)
			if err != nil {
				return err
			}
			a.summary(result)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the built-in scenes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), sceneTable())
			return nil
		},
	})
	return cmd
}

func newFitCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "fit <file.excalidraw>",
		Short: "Scale and centre a diagram to the canvas and save it",
		Example: `  animator fit diagram.excalidraw
  animator fit diagram.excalidraw --width 1920 --height 1080 -o fitted.excalidraw`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.opts.Input = args[0]
			path, t, err := animator.FitFile(a.opts, output)
			if err != nil {
				return err
			}
			a.console.Field("Transform", t)
			a.console.Success("Fitted diagram saved: %s", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <name>-fitted.excalidraw)")
	return cmd
}

func newStoryboardCommand(a *app) *cobra.Command {
	var output string
	var frames, columns int
	cmd := &cobra.Command{
		Use:   "storyboard <file.excalidraw|scene>",
		Short: "Render key frames into a PDF storyboard",
		Example: `  animator storyboard diagram.excalidraw -o board.pdf
  animator storyboard two-tool-model --frames 9 --columns 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.opts.Input = args[0]
			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".pdf"
			}
			p := a.pipeline()
			defer p.Close()
			return p.Storyboard(cmd.Context(), a.opts, storyboard.Options{Frames: frames, Columns: columns}, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PDF (default <input>.pdf)")
	cmd.Flags().IntVar(&frames, "frames", storyboard.DefaultFrames, "Number of key frames")
	cmd.Flags().IntVar(&columns, "columns", storyboard.DefaultColumns, "Thumbnails per row (1, 2, 3, 4 or 6)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), getVersionInfo())
		},
	}
}

func getVersionInfo() string {
	return fmt.Sprintf("animator %s (commit: %s, built: %s, go: %s)",
		version, commit, date, runtime.Version())
}
