package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/LJTian/BlogCrosspost/internal/cache"
	"github.com/LJTian/BlogCrosspost/internal/collector"
	"github.com/LJTian/BlogCrosspost/internal/crosspost"
	"github.com/LJTian/BlogCrosspost/internal/render"
	"github.com/spf13/cobra"
)

// renderFlags 与短代码属性一一对应，只有显式传入的才覆盖默认值
var renderFlags = []struct {
	name  string
	usage string
}{
	{"url", "source site url"},
	{"image-size", "featured image size (full, medium, thumbnail ...)"},
	{"characters", "excerpt length in characters"},
	{"readmoretext", "read more link text"},
	{"number", "number of posts to render (-1 for all)"},
	{"class", "css class of each post container"},
}

// paramName 命令行参数名到短代码属性名
var paramName = map[string]string{
	"image-size": "imagesize",
}

type rootOptions struct {
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "crosspost",
		Short: "Render recent WordPress posts of a remote site as HTML",
		Long: `crosspost fetches the latest posts of a remote WordPress site through its REST API
and renders them as HTML fragments, the same way the [blogcrosspost] shortcode does.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", collector.DefaultTimeout, "remote request timeout")

	root.AddCommand(newRenderCmd(opts))
	root.AddCommand(newExpandCmd(opts))
	root.AddCommand(newDiscoverCmd(opts))
	return root
}

func newService(opts *rootOptions) *crosspost.Service {
	client := collector.NewHTTPClient(opts.timeout)
	loader := cache.NewLoader(cache.NewMemoryStore(), collector.NewPostsFetcher(client))
	return crosspost.NewService(loader, render.NewRenderer(collector.NewMediaClient(client)), nil)
}

func newRenderCmd(opts *rootOptions) *cobra.Command {
	values := make(map[string]*string, len(renderFlags))

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the latest posts of a site",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := make(map[string]string)
			for _, f := range renderFlags {
				if !cmd.Flags().Changed(f.name) {
					continue
				}
				name := f.name
				if p, ok := paramName[name]; ok {
					name = p
				}
				params[name] = *values[f.name]
			}
			out := newService(opts).Render(cmd.Context(), params)
			_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	for _, f := range renderFlags {
		values[f.name] = cmd.Flags().String(f.name, "", f.usage)
	}
	return cmd
}

func newExpandCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "expand FILE|-",
		Short: "Replace [blogcrosspost] shortcodes in a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				content []byte
				err     error
			)
			if args[0] == "-" {
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				content, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			out := newService(opts).Expand(cmd.Context(), string(content))
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discover URL",
		Short: "Find the REST API root advertised by a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := crosspost.NormalizeSourceURL(args[0])
			if err != nil {
				return err
			}
			d := &collector.Discoverer{Timeout: opts.timeout}
			root, err := d.Discover(u)
			if err != nil {
				return fmt.Errorf("discovering %s: %w", u, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), root)
			return nil
		},
	}
}
