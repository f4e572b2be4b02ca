package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Faultbox/skp2xml/pkg/skpxml"
)

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <document.xml>",
		Short: "Display a summary of an SkpToXML document",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runInfo,
	}
}

func (a *app) runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]

	f, err := skpxml.Open(path)
	if err != nil {
		return err
	}
	header := f.Header()
	_ = f.Close(false)

	model, err := a.exporter().ReadBack(path)
	if err != nil {
		return err
	}
	c := model.Counts()

	out := a.stdout
	fmt.Fprintln(out, "SkpToXML Document")
	fmt.Fprintln(out, "=================")
	fmt.Fprintf(out, "File: %s\n", path)
	fmt.Fprintf(out, "Schema version: %d\n", header.XMLVersion)
	if header.SourceVersion != nil {
		fmt.Fprintf(out, "Source version: %s\n", header.SourceVersion)
	}
	if header.Units != "" {
		fmt.Fprintf(out, "Units: %s\n", header.Units)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Contents:")
	fmt.Fprintf(out, "  Layers: %d\n", c.Layers)
	fmt.Fprintf(out, "  Materials: %d\n", c.Materials)
	fmt.Fprintf(out, "  Definitions: %d\n", c.Definitions)
	fmt.Fprintf(out, "  Instances: %d\n", c.Instances)
	fmt.Fprintf(out, "  Groups: %d\n", c.Groups)
	fmt.Fprintf(out, "  Faces: %d (%d triangles)\n", c.Faces, c.Triangles)
	fmt.Fprintf(out, "  Edges: %d\n", c.Edges)
	fmt.Fprintf(out, "  Curves: %d\n", c.Curves)
	return nil
}
