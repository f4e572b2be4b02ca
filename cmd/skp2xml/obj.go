package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Faultbox/skp2xml/internal/logger"
	"github.com/Faultbox/skp2xml/pkg/objexport"
)

func (a *app) objCmd() *cobra.Command {
	var polygons bool
	cmd := &cobra.Command{
		Use:   "obj <document.xml> [output.obj]",
		Short: "Convert an SkpToXML document to Wavefront OBJ and MTL",
		Long: `Convert an SkpToXML document to Wavefront OBJ. Groups and component
instances are flattened into world coordinates. The material library is
written next to the OBJ file with the .mtl extension.

Loop faces hold triangulated vertices in documents written by skp2xml.
Use --polygon-loops for documents whose loops are boundary polygons.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runObj(args, !polygons)
		},
	}
	cmd.Flags().BoolVar(&polygons, "polygon-loops", false, "read Loop faces as boundary polygons")
	return cmd
}

func (a *app) runObj(args []string, meshLoops bool) error {
	src := args[0]
	dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".obj"
	if len(args) > 1 {
		dst = args[1]
	}

	model, err := a.exporter().ReadBack(src)
	if err != nil {
		return err
	}
	enc := objexport.NewEncoder(logger.Log)
	enc.MeshLoops = meshLoops
	stats, err := enc.WriteFiles(model, dst)
	if err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	fmt.Fprintf(a.stdout, "%s -> %s: %d triangles, %d lines, %d materials\n",
		src, dst, stats.Triangles, stats.Lines, stats.Materials)
	return nil
}
