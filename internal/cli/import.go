package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Ananth-NQI/personbot/internal/models"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import persons from YAML",
		Long:  "Import persons from a multi-document YAML file (or stdin). Each document holds name and age.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	in := io.Reader(os.Stdin)
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		in = f
	}

	persons, err := decodePersons(in)
	if err != nil {
		exitErr("parse yaml", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.ImportPersons(persons)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d persons\n", imported)
}

// decodePersons reads every YAML document in r. Empty documents are skipped;
// a document without a name is an error.
func decodePersons(r io.Reader) ([]*models.Person, error) {
	dec := yaml.NewDecoder(r)

	var persons []*models.Person
	for doc := 1; ; doc++ {
		var data *models.PersonImport
		err := dec.Decode(&data)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		if data == nil {
			continue
		}
		if strings.TrimSpace(data.Name) == "" {
			return nil, fmt.Errorf("document %d: name is required", doc)
		}
		persons = append(persons, data.ToPerson())
	}
	return persons, nil
}
