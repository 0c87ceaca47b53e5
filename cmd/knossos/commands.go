package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-knossos/knossos"
)

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "knossos",
		Short:         "Inspect and read Knossos block stores",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return g.writeMetrics()
		},
	}
	g.register(root.PersistentFlags())

	root.AddCommand(
		newInfoCommand(g),
		newCheckCommand(g),
		newReadCommand(g),
	)
	return root
}

// openStore builds the logger and options from g and opens the store.
func openStore(g *globalFlags, path string) (*knossos.File, *zap.Logger, error) {
	logger, err := g.logger()
	if err != nil {
		return nil, nil, errors.Wrap(err, "creating logger")
	}
	opts, err := g.options(logger)
	if err != nil {
		return nil, nil, err
	}
	f, err := knossos.Open(path, opts...)
	if err != nil {
		return nil, nil, err
	}
	return f, logger, nil
}

func newInfoCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info <store>",
		Short: "List the datasets of a store with their geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, logger, err := openStore(g, args[0])
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			keys, err := f.Keys()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Store %q (codec %s)\n", f.Path(), f.Codec())
			for _, key := range keys {
				ds, err := f.Get(key)
				if err != nil {
					fmt.Fprintf(out, "  %s: %v\n", key, err)
					continue
				}
				fmt.Fprintf(out, "  %s:\n", key)
				fmt.Fprintf(out, "    Shape: %v\n", ds.Shape())
				fmt.Fprintf(out, "    Grid:  %v blocks of %v\n", ds.Grid(), ds.BlockShape())
				fmt.Fprintf(out, "    Dtype: %s\n", ds.Dtype())
				fmt.Fprintf(out, "    Size:  %s\n", humanize.IBytes(uint64(ds.NumElements()*ds.Dtype().Size())))
			}
			return nil
		},
	}
}

func newCheckCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <store> <key>",
		Short: "Report block files missing from a dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, logger, err := openStore(g, args[0])
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ds, err := f.Get(args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			total, missing := 0, 0
			err = ds.WalkBlocks(func(c knossos.Coord, path string, err error) error {
				total++
				if err != nil {
					missing++
					fmt.Fprintf(out, "missing %v: %s\n", c, path)
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s blocks checked, %s missing\n", humanize.Comma(int64(total)), humanize.Comma(int64(missing)))
			if missing > 0 {
				return errors.Errorf("%d of %d blocks missing", missing, total)
			}
			return nil
		},
	}
}

func newReadCommand(g *globalFlags) *cobra.Command {
	var (
		roiExpr string
		output  string
	)
	cmd := &cobra.Command{
		Use:   "read <store> <key>",
		Short: "Write the raw uint8 voxels of a region, z-major",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, logger, err := openStore(g, args[0])
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ds, err := f.Get(args[1])
			if err != nil {
				return err
			}
			roi, err := knossos.ParseROI(roiExpr, ds.Shape())
			if err != nil {
				return err
			}
			data, err := ds.ReadContext(cmd.Context(), roi)
			if err != nil {
				return err
			}

			if err := writeOutput(cmd.OutOrStdout(), output, data); err != nil {
				return err
			}
			logger.Info("region written",
				zap.Stringer("roi", roi),
				zap.Ints("shape", shapeOf(roi)),
				zap.String("size", humanize.IBytes(uint64(len(data)))))
			return nil
		},
	}
	cmd.Flags().StringVar(&roiExpr, "roi", "", `region as "z0:z1,y0:y1,x0:x1"; omitted terms select the whole axis`)
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}

// writeOutput writes data to path, or to stdout when path is "-" or empty.
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return errors.Wrap(err, "writing output")
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating output")
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return errors.Wrap(err, "writing output")
	}
	return errors.Wrap(file.Close(), "closing output")
}

func shapeOf(roi knossos.ROI) []int {
	s := roi.Shape()
	return s[:]
}
