package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pitabwire/designer/internal/definition"
	"github.com/pitabwire/designer/internal/render"
	"github.com/pitabwire/designer/model"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a layout file (.json, .yaml or .yml)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateFile(cmd.OutOrStdout(), args[0])
		},
	}
}

func validateFile(w io.Writer, path string) error {
	def, err := definition.NewLoader().LoadFile(path)
	if err != nil {
		printEnvelope(w, err)
		return err
	}

	fmt.Fprintf(w, "%s: ok (%d components, checksum %s)\n",
		def.Name, len(def.Config.IDs()), def.Checksum[:12])
	return nil
}

func newRenderCmd() *cobra.Command {
	var (
		mode     string
		viewMode string
		values   map[string]string
	)

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render a layout file and print the node tree as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := model.RenderContext{Mode: mode, ViewMode: viewMode}
			if len(values) > 0 {
				rc.Values = make(map[string]any, len(values))
				for k, v := range values {
					rc.Values[k] = v
				}
			}
			return renderFile(cmd.OutOrStdout(), args[0], rc)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", model.ModePreview, "render mode: canvas or preview")
	cmd.Flags().StringVar(&viewMode, "view-mode", model.ViewDesktop, "viewport: desktop, tablet or mobile")
	cmd.Flags().StringToStringVar(&values, "value", nil, "condition value as name=value (repeatable)")
	return cmd
}

func renderFile(w io.Writer, path string, rc model.RenderContext) error {
	if rc.Mode != model.ModeCanvas && rc.Mode != model.ModePreview {
		return fmt.Errorf("unknown mode %q", rc.Mode)
	}

	def, err := definition.NewLoader().LoadFile(path)
	if err != nil {
		printEnvelope(w, err)
		return err
	}

	out := render.NewRenderer(nil).Render(def.Config, rc)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printEnvelope(w io.Writer, err error) {
	var env *model.ErrorEnvelope
	if !errors.As(err, &env) {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", env.Code, env.Message)
	for _, d := range env.Details {
		fmt.Fprintf(w, "  %s: %s\n", d.Field, d.Message)
	}
}
