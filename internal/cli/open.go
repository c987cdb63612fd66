package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/engine"
	"github.com/mnemo-oss/mnemo/internal/telemetry"
)

// openEngine initializes the engine for the selected project.
// The caller must Close it.
func openEngine() (*engine.Engine, error) {
	project := projectPath
	if project == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		project = wd
	}
	project, _ = filepath.Abs(project)

	cfg, err := config.Load(project)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	logger := telemetry.NewLogger(cfg.Verbose)
	eng := engine.New(cfg, logger)
	if err := eng.Init(home, project); err != nil {
		return nil, err
	}
	return eng, nil
}
