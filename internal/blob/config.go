package blob

import "fmt"

// Config holds Azure Blob Storage connection parameters.
type Config struct {
	Container        string `yaml:"container"`
	ConnectionString string `yaml:"connection_string"`
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Container == "" {
		return fmt.Errorf("blob container required")
	}
	if c.ConnectionString == "" {
		return fmt.Errorf("blob connection string required")
	}
	return nil
}
