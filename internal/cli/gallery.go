package cli

import (
	"github.com/spf13/cobra"

	"bedrockctl/internal/gallery"
)

func newGalleryCmd(app *App) *cobra.Command {
	var (
		addr      string
		dir       string
		allowCORS bool
	)
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Serve generated images over HTTP",
		Example: "  bedrockctl gallery\n" +
			"  bedrockctl gallery --addr :9090 --dir ~/images",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.Cfg.GalleryAddr
			}
			if dir == "" {
				dir = app.Cfg.ImagesDir
			}
			srv := &gallery.Server{Dir: dir, Log: app.Log}
			if allowCORS {
				srv.AllowOrigins = []string{"*"}
			}
			return srv.ListenAndServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default :8081)")
	cmd.Flags().StringVar(&dir, "dir", "", "Image directory to serve (default images_dir)")
	cmd.Flags().BoolVar(&allowCORS, "cors", false, "Allow cross-origin browser requests")
	return cmd
}
