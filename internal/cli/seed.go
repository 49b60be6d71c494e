package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Ananth-NQI/personbot/internal/models"
)

var (
	seedName     string
	seedStartAge int
	seedCount    int
)

func init() {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert generated persons",
		Long:  "Insert --count persons named --name with ages counting up from --start-age.",
		Run:   runSeed,
	}
	cmd.Flags().StringVar(&seedName, "name", "lies", "Name for every generated person")
	cmd.Flags().IntVar(&seedStartAge, "start-age", 16, "Age of the first generated person")
	cmd.Flags().IntVarP(&seedCount, "count", "n", 100, "Number of persons to insert")

	RootCmd.AddCommand(cmd)
}

func seedPersons(name string, startAge, count int) []*models.Person {
	persons := make([]*models.Person, 0, count)
	for i := 0; i < count; i++ {
		persons = append(persons, &models.Person{
			Name: name,
			Age:  strconv.Itoa(startAge + i),
		})
	}
	return persons
}

func runSeed(cmd *cobra.Command, args []string) {
	if seedCount <= 0 {
		exitErr("seed", fmt.Errorf("--count must be positive"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.ImportPersons(seedPersons(seedName, seedStartAge, seedCount))
	if err != nil {
		exitErr("seed", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d persons\n", imported)
}
