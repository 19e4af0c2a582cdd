package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mandelscope/internal/config"
	"github.com/san-kum/mandelscope/internal/export"
	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/palette"
	"github.com/san-kum/mandelscope/internal/preset"
)

var (
	legacy bool
	force  bool
)

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list built-in views and saved presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tCENTER\tZOOM\tITER\tJULIA")

	for _, name := range config.ListPresets() {
		v, _ := config.GetPreset(name)
		writeViewRow(w, name, "built-in", v)
	}

	files, err := preset.List(cfg.PresetDir)
	if err != nil {
		return err
	}
	for _, name := range files {
		v, _, err := preset.LoadFile(preset.Path(cfg.PresetDir, name))
		if err != nil {
			logger.Warn("skipping unreadable preset", "name", name, "err", err)
			continue
		}
		writeViewRow(w, name, cfg.PresetDir, v)
	}
	return w.Flush()
}

func writeViewRow(w *tabwriter.Writer, name, source string, v fractal.View) {
	seed := "-"
	if v.Julia {
		seed = fmt.Sprintf("%.4g%+.4gi", v.JuliaX, v.JuliaY)
	}
	fmt.Fprintf(w, "%s\t%s\t%.6g%+.6gi\t%.3g\t%d\t%s\n",
		name, source, v.CenterX, v.CenterY, v.Zoom, v.MaxIterations, seed)
}

func presetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "save, inspect and convert .mandel presets",
	}

	saveCmd := &cobra.Command{
		Use:   "save [name]",
		Short: "save a view into the preset directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  savePreset,
	}
	addViewFlags(saveCmd.Flags())
	saveCmd.Flags().BoolVar(&legacy, "legacy", false, "write the length-prefixed magic older readers expect")

	showCmd := &cobra.Command{
		Use:   "show [file]",
		Short: "print a preset as yaml",
		Args:  cobra.ExactArgs(1),
		RunE:  showPreset,
	}

	convertCmd := &cobra.Command{
		Use:   "convert [in] [out]",
		Short: "rewrite a preset in the current layout",
		Args:  cobra.ExactArgs(2),
		RunE:  convertPreset,
	}
	convertCmd.Flags().BoolVar(&legacy, "legacy", false, "write the length-prefixed magic older readers expect")

	cmd.AddCommand(saveCmd, showCmd, convertCmd)
	return cmd
}

func encodeOptions() []preset.Option {
	if legacy {
		return []preset.Option{preset.WithLegacyPrefix()}
	}
	return nil
}

func savePreset(cmd *cobra.Command, args []string) error {
	v, sc, err := resolveView(cmd.Flags())
	if err != nil {
		return err
	}
	name := export.TimestampedName("render", "", time.Now())
	if len(args) == 1 {
		name = args[0]
	}
	path := preset.Path(cfg.PresetDir, name)
	if err := preset.SaveFile(path, v, sc, encodeOptions()...); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// presetDoc is the yaml form printed by preset show.
type presetDoc struct {
	View   fractal.View        `yaml:"view"`
	Scheme config.SchemeConfig `yaml:"scheme"`
}

func showPreset(cmd *cobra.Command, args []string) error {
	v, sc, err := loadPresetArg(args[0])
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(presetDoc{View: v, Scheme: config.FromScheme(sc)}); err != nil {
		return err
	}
	return enc.Close()
}

func convertPreset(cmd *cobra.Command, args []string) error {
	v, sc, err := loadPresetArg(args[0])
	if err != nil {
		return err
	}
	if err := preset.SaveFile(args[1], v, sc, encodeOptions()...); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], args[1])
	return nil
}

// loadPresetArg accepts a path or the name of a preset in the preset dir.
func loadPresetArg(arg string) (fractal.View, palette.Scheme, error) {
	if _, err := os.Stat(arg); err != nil && filepath.Ext(arg) == "" {
		return preset.LoadFile(preset.Path(cfg.PresetDir, arg))
	}
	return preset.LoadFile(arg)
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "manage the config file",
	}
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the current configuration as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := "mandelscope.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
