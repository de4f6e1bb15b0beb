package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/openfinreg/corep-assistant/internal/model"
)

var templatesCmd = &cobra.Command{
	Use:   "templates [id]",
	Short: "List available report templates, or show one template's fields",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := model.LoadTemplates()
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if len(args) == 0 {
			return enc.Encode(map[string]any{"templates": registry.IDs()})
		}

		schema := registry.Get(args[0])
		if schema == nil {
			return eris.Errorf("unknown template %q", args[0])
		}
		return enc.Encode(map[string]any{
			"template_id": schema.ID,
			"name":        schema.Name,
			"description": schema.Description,
			"fields":      schema.Fields,
		})
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}
