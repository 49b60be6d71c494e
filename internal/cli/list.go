package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ananth-NQI/personbot/internal/services"
)

var listJSON bool

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persons in the order the bot numbers them",
		Run:   runList,
	}
	cmd.Flags().BoolVar(&listJSON, "json", false, "Print JSON instead of the numbered list")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	persons, err := s.GetAllPersons()
	if err != nil {
		exitErr("list", err)
	}

	if listJSON {
		out, err := json.MarshalIndent(persons, "", "  ")
		if err != nil {
			exitErr("encode", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), services.FormatPersons(persons))
}
