package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var artifactsCmd = &cobra.Command{
	Use:     "artifacts",
	Aliases: []string{"files"},
	Short:   "Work with saved images",
	Long: `List, export, resize and convert saved images. NAME is a file name in
the save directory or an absolute path.`,
}

var artifactsListCmd = &cobra.Command{
	Use:   "list [DIR]",
	Short: "List images, newest first (default: the save directory)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService(false)
		if err != nil {
			return err
		}
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		}
		names, err := svc.ListArtifacts(dir)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var artifactsCatCmd = &cobra.Command{
	Use:   "cat NAME",
	Short: "Write an image's bytes to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService(false)
		if err != nil {
			return err
		}
		data, err := svc.LoadArtifact(args[0])
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var artifactsSaveCmd = &cobra.Command{
	Use:   "save NAME [FILE]",
	Short: "Store bytes from FILE (or stdin) as NAME, replacing it",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if len(args) == 2 {
			data, err = os.ReadFile(args[1])
		} else {
			data, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		svc, _, err := newService(false)
		if err != nil {
			return err
		}
		path, err := svc.SaveImageBytes(args[0], data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var artifactsResizeCmd = &cobra.Command{
	Use:     "resize NAME WIDTHxHEIGHT",
	Short:   "Write a resized copy as <name>_<w>x<h>.<ext>",
	Example: `  focusshot artifacts resize screenshot_1728136920.png 640x480`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := parseSize(args[1])
		if err != nil {
			return err
		}
		svc, _, err := newService(false)
		if err != nil {
			return err
		}
		name, err := svc.ResizeArtifact(args[0], size.Width, size.Height)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

var artifactsConvertCmd = &cobra.Command{
	Use:     "convert NAME FORMAT",
	Short:   "Write a copy in another format (png, jpg, bmp, tiff)",
	Example: `  focusshot artifacts convert screenshot_1728136920.png bmp`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService(false)
		if err != nil {
			return err
		}
		name, err := svc.ConvertArtifactFormat(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(artifactsCmd)
	artifactsCmd.AddCommand(artifactsListCmd)
	artifactsCmd.AddCommand(artifactsCatCmd)
	artifactsCmd.AddCommand(artifactsSaveCmd)
	artifactsCmd.AddCommand(artifactsResizeCmd)
	artifactsCmd.AddCommand(artifactsConvertCmd)
}
