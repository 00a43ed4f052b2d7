package params

import (
	"fmt"

	"github.com/joho/godotenv"
)

// ApplyEnvFile exports the variables of a .env file into the process
// environment. Variables that are already set keep their value, so the
// shell and the CI secret store win over files checked into a project.
func ApplyEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("env file %s: %w", path, err)
	}
	return nil
}
