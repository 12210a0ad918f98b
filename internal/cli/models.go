package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models each configured provider can run",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	for _, name := range a.reg.Names() {
		prov, err := a.reg.Get(name)
		if err != nil {
			fmt.Printf("%s: unavailable (%v)\n", name, err)
			continue
		}
		fmt.Printf("%s:\n", name)
		for _, m := range prov.ListModels() {
			marker := " "
			if m == defaultModelFor(a, name) {
				marker = "*"
			}
			fmt.Printf("  %s %s ($%.2f/image)\n", marker, m, prov.CostPerImage(m))
		}
	}
	return nil
}

func defaultModelFor(a *app, providerName string) string {
	switch providerName {
	case "openai":
		return a.cfg.Providers.OpenAI.Model
	case "gemini":
		return a.cfg.Providers.Gemini.Model
	default:
		return ""
	}
}
