package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelfvision/shelfscan/internal/registry"
)

func newRegisterCmd() *cobra.Command {
	var record registry.ProductRecord
	var registryPath string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Add or update a product in the registry",
		Example: `  # Register a product with its expected EAN-13 barcode
  shelfscan register --name "AG AllerCut c 15ml" \
    --reference input/reference/ag_allercut_c_15.jpeg \
    --barcode 4987107673756`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.New()
			if _, err := os.Stat(registryPath); err == nil {
				loaded, err := registry.Load(registryPath)
				if err != nil {
					return fmt.Errorf("failed to load registry: %w", err)
				}
				reg = loaded
			}

			if err := reg.Register(record); err != nil {
				return err
			}
			return registry.SaveYAML(reg, registryPath)
		},
	}

	cmd.Flags().StringVar(&record.Name, "name", "", "Product name (unique key)")
	cmd.Flags().StringVar(&record.ReferenceImagePath, "reference", "", "Reference image path")
	cmd.Flags().StringVar(&record.Barcode, "barcode", "", "Expected EAN-13 barcode (optional)")
	cmd.Flags().StringVar(&registryPath, "registry", "products.yaml", "Registry file to update")

	return cmd
}
