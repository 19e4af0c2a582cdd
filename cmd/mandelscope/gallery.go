package main

import (
	"fmt"
	"image/png"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/mandelscope/internal/storage"
	"github.com/san-kum/mandelscope/internal/viz"
)

func galleryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "saved renders with thumbnails",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list gallery entries, newest first",
		Args:  cobra.NoArgs,
		RunE:  listGallery,
	}
	saveCmd := &cobra.Command{
		Use:   "save [name]",
		Short: "render a view and add it to the gallery",
		Args:  cobra.ExactArgs(1),
		RunE:  saveGallery,
	}
	addViewFlags(saveCmd.Flags())
	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "print an entry and its thumbnail",
		Args:  cobra.ExactArgs(1),
		RunE:  showGallery,
	}
	rmCmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "delete a gallery entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return gallery().Delete(args[0])
		},
	}

	cmd.AddCommand(listCmd, saveCmd, showCmd, rmCmd)
	return cmd
}

func gallery() *storage.Store {
	return storage.New(cfg.DataDir)
}

func listGallery(cmd *cobra.Command, args []string) error {
	entries, err := gallery().List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no renders saved")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tSCHEME\tRES\tRENDER")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%dms\n",
			e.ID,
			e.Name,
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Scheme,
			e.Resolution,
			e.RenderMillis,
		)
	}
	return w.Flush()
}

func saveGallery(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	buf, err := s.Render(0)
	if err != nil {
		return err
	}

	st := gallery()
	if err := st.Init(); err != nil {
		return err
	}
	v, sc := s.State()
	id, err := st.Save(args[0], v, sc, buf, s.LastRender())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func showGallery(cmd *cobra.Command, args []string) error {
	st := gallery()
	e, err := st.Load(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, viz.Header.Render(e.Name))
	fmt.Fprintln(out, viz.Field("id", e.ID, 10))
	fmt.Fprintln(out, viz.Field("saved", e.Timestamp.Format("2006-01-02 15:04:05"), 10))
	fmt.Fprintln(out, viz.Field("center", fmt.Sprintf("%.10g%+.10gi", e.View.CenterX, e.View.CenterY), 10))
	fmt.Fprintln(out, viz.Field("zoom", fmt.Sprintf("%g", e.View.Zoom), 10))
	fmt.Fprintln(out, viz.Field("iter", fmt.Sprintf("%d", e.View.MaxIterations), 10))
	fmt.Fprintln(out, viz.Field("scheme", e.Scheme, 10))
	fmt.Fprintln(out, viz.Field("render", fmt.Sprintf("%dms at %dpx", e.RenderMillis, e.Resolution), 10))

	path, err := st.ThumbnailPath(e.ID)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("thumbnail missing", "id", e.ID, "err", err)
		return nil
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		logger.Warn("thumbnail unreadable", "id", e.ID, "err", err)
		return nil
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, viz.Preview(img))
	return nil
}
