package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/FocusShot/internal/codec"
	"github.com/bryanchriswhite/FocusShot/internal/imaging"
	"github.com/bryanchriswhite/FocusShot/internal/shot"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Take a screenshot",
	Long: `Capture the primary display, a region of it, or a window. The image is
written to the save directory from settings and recorded in the history.`,
}

var captureFullCmd = &cobra.Command{
	Use:     "full",
	Aliases: []string{"fullscreen", "screen"},
	Short:   "Capture a whole display",
	Example: `  # Capture the primary display
  focusshot capture full

  # Capture a named display as TIFF
  focusshot capture full --display HDMI-1 --format tiff`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapture(cmd, shot.CaptureRequest{Mode: shot.ModeFullScreen})
	},
}

var captureRegionCmd = &cobra.Command{
	Use:   "region X Y WIDTH HEIGHT",
	Short: "Capture a rectangle of a display",
	Long: `Capture a rectangle of a display. A rectangle running past the display
edge is clipped; an origin outside the display is an error. Negative numbers
are read as coordinates, not flags.`,
	Example: `  focusshot capture region 0 0 800 600
  focusshot capture region --display HDMI-1 100 100 640 480`,
	// Flags are parsed in RunE so that "-5" reaches region validation
	// instead of failing as an unknown shorthand flag.
	DisableFlagParsing: true,
	RunE:               runCaptureRegion,
}

var captureWindowCmd = &cobra.Command{
	Use:   "window [WINDOW_ID]",
	Short: "Capture a window (default: the active window)",
	Long: `Capture a window by ID, or the active window. Backends without window
support capture the primary display instead and say so.`,
	Example: `  # Capture the active window
  focusshot capture window

  # Capture a window listed by 'focusshot windows'
  focusshot capture window 0x3a00007`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id uint32
		if len(args) == 1 {
			v, err := strconv.ParseUint(args[0], 0, 32)
			if err != nil {
				return fmt.Errorf("invalid window id: %s", args[0])
			}
			id = uint32(v)
		}
		return runCapture(cmd, shot.CaptureRequest{Mode: shot.ModeWindow, WindowID: id})
	},
}

var captureActionCmd = &cobra.Command{
	Use:   "action ACTION",
	Short: "Run the capture bound to a hotkey action",
	Example: `  focusshot capture action capture_fullscreen
  focusshot capture action capture_window`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: shot.Actions,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService(true)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := svc.Dispatch(args[0])
		if err != nil {
			return err
		}
		return printResult(cmd, res)
	},
}

var captureFlags struct {
	format  string
	output  string
	display string
	resize  string
	tags    []string
	json    bool
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.AddCommand(captureFullCmd)
	captureCmd.AddCommand(captureRegionCmd)
	captureCmd.AddCommand(captureWindowCmd)
	captureCmd.AddCommand(captureActionCmd)

	pf := captureCmd.PersistentFlags()
	pf.StringVar(&captureFlags.format, "format", "", "image format (png, jpg, bmp, tiff); default from settings")
	pf.StringVarP(&captureFlags.output, "output", "o", "", "file name in the save directory, or an absolute path")
	pf.StringVar(&captureFlags.display, "display", "", "display ID or name (default: primary)")
	pf.StringVar(&captureFlags.resize, "resize", "", "scale the result to WIDTHxHEIGHT")
	pf.StringSliceVar(&captureFlags.tags, "tag", nil, "tag to record in the history (repeatable)")
	pf.BoolVar(&captureFlags.json, "json", false, "print the full result as JSON")
}

func runCaptureRegion(cmd *cobra.Command, args []string) error {
	coords, rest := splitRegionArgs(cmd, args)
	if err := cmd.ParseFlags(rest); err != nil {
		return err
	}
	if help, _ := cmd.Flags().GetBool("help"); help {
		return cmd.Help()
	}
	initLogging(cmd)

	if len(coords) != 4 {
		return fmt.Errorf("region needs X Y WIDTH HEIGHT, got %d value(s)", len(coords))
	}
	var n [4]int
	for i, a := range coords {
		v, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("invalid number: %s", a)
		}
		n[i] = v
	}
	return runCapture(cmd, shot.CaptureRequest{
		Mode:   shot.ModeRegion,
		Region: &imaging.Rect{X: n[0], Y: n[1], Width: n[2], Height: n[3]},
	})
}

// splitRegionArgs separates positional values from flags. Integers such as
// "-5" are positional; a flag that takes a value keeps the token after it.
func splitRegionArgs(cmd *cobra.Command, args []string) (coords, rest []string) {
	cmd.InheritedFlags() // merges persistent flags into cmd.Flags()
	flags := cmd.Flags()

	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			return append(coords, args[i+1:]...), rest
		}
		if _, err := strconv.Atoi(a); err == nil || !strings.HasPrefix(a, "-") {
			coords = append(coords, a)
			continue
		}

		rest = append(rest, a)
		if strings.Contains(a, "=") || i+1 >= len(args) {
			continue
		}
		var f *pflag.Flag
		if name, ok := strings.CutPrefix(a, "--"); ok {
			f = flags.Lookup(name)
		} else if len(a) == 2 {
			f = flags.ShorthandLookup(a[1:])
		}
		if f != nil && f.NoOptDefVal == "" {
			i++
			rest = append(rest, args[i])
		}
	}
	return coords, rest
}

func runCapture(cmd *cobra.Command, req shot.CaptureRequest) error {
	req.TargetPath = captureFlags.output
	req.DisplayID = captureFlags.display
	req.Tags = captureFlags.tags

	if captureFlags.format != "" {
		f, err := codec.ParseFormat(captureFlags.format)
		if err != nil {
			return err
		}
		req.Format = f
	}
	if captureFlags.resize != "" {
		size, err := parseSize(captureFlags.resize)
		if err != nil {
			return err
		}
		req.Resize = &size
	}

	svc, cleanup, err := newService(true)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := svc.Capture(req)
	if err != nil {
		return err
	}
	return printResult(cmd, res)
}

func printResult(cmd *cobra.Command, res shot.Result) error {
	if captureFlags.json {
		return printStructured(cmd.OutOrStdout(), "json", res)
	}
	if res.WindowFallback {
		fmt.Fprintf(cmd.ErrOrStderr(), "Note: %s backend cannot capture windows; captured the primary display\n", res.Backend)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Path)
	return nil
}

// parseSize parses "WIDTHxHEIGHT".
func parseSize(s string) (shot.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return shot.Size{}, fmt.Errorf("invalid size: %s (use WIDTHxHEIGHT)", s)
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil {
		return shot.Size{}, fmt.Errorf("invalid size: %s (use WIDTHxHEIGHT)", s)
	}
	return shot.Size{Width: width, Height: height}, nil
}
