package normalize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AliasTable maps each logical field to an ordered list of candidate column
// names. The first candidate present in a row wins; later candidates are
// ignored even when also present.
type AliasTable struct {
	CPF       []string `yaml:"cpf"`
	Name      []string `yaml:"name"`
	Email     []string `yaml:"email"`
	BirthDate []string `yaml:"birth_date"`
	Phone     []string `yaml:"phone"`
}

// DefaultAliasTable covers the column names seen in production uploads,
// Portuguese variants included.
func DefaultAliasTable() AliasTable {
	return AliasTable{
		CPF:       []string{"cpf", "documento"},
		Name:      []string{"name", "nome"},
		Email:     []string{"email"},
		BirthDate: []string{"birth_date"},
		Phone:     []string{"phone_number", "phone", "telefone", "celular"},
	}
}

// LoadAliasTable reads a YAML alias file and merges it over the defaults.
// Fields left empty in the file keep their default candidates. An empty path
// returns the defaults unchanged.
func LoadAliasTable(path string) (AliasTable, error) {
	table := DefaultAliasTable()
	if path == "" {
		return table, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return AliasTable{}, fmt.Errorf("read alias table: %w", err)
	}

	var override AliasTable
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return AliasTable{}, fmt.Errorf("parse alias table: %w", err)
	}

	if len(override.CPF) > 0 {
		table.CPF = override.CPF
	}
	if len(override.Name) > 0 {
		table.Name = override.Name
	}
	if len(override.Email) > 0 {
		table.Email = override.Email
	}
	if len(override.BirthDate) > 0 {
		table.BirthDate = override.BirthDate
	}
	if len(override.Phone) > 0 {
		table.Phone = override.Phone
	}
	return table, nil
}
