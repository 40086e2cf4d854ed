package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/enermsg/edikit/internal/config"
	"github.com/enermsg/edikit/pkg/convert"
	"github.com/enermsg/edikit/pkg/mapping"
	"github.com/enermsg/edikit/pkg/mig"
	"github.com/enermsg/edikit/pkg/pid"
	"github.com/enermsg/edikit/pkg/validate"
)

// pipeline bundles everything a command needs, built once from configuration.
type pipeline struct {
	cfg         *config.Config
	schema      *mig.Schema
	engine      *mapping.Engine
	registry    *pid.Registry
	validator   *validate.Validator
	coordinator *convert.Coordinator
}

func loadPipeline(s *settings) (*pipeline, error) {
	cfg, err := config.Load(s.ConfigPath)
	if err != nil {
		return nil, err
	}

	schema, err := mig.LoadXML(cfg.Schemas.MIG)
	if err != nil {
		return nil, err
	}
	defs, err := mapping.LoadDir(cfg.Mappings.Dir)
	if err != nil {
		return nil, err
	}
	engine, err := mapping.NewEngine(schema, defs,
		mapping.WithTransactionGroup(cfg.Mappings.TransactionGroup))
	if err != nil {
		return nil, err
	}

	p := &pipeline{cfg: cfg, schema: schema, engine: engine}

	var coordOpts []convert.Option
	if cfg.Schemas.PIDDir != "" {
		registry, err := loadRegistry(cfg.Schemas.PIDDir)
		if err != nil {
			return nil, err
		}
		p.registry = registry
		coordOpts = append(coordOpts, convert.WithRegistry(registry))

		var valOpts []validate.Option
		if cfg.Schemas.AHBDir != "" {
			ahbs, err := loadAHBs(cfg.Schemas.AHBDir)
			if err != nil {
				return nil, err
			}
			valOpts = append(valOpts, validate.WithAHB(ahbs...))
		}
		p.validator = validate.New(registry, valOpts...)
	}
	p.coordinator = convert.New(schema, engine, coordOpts...)
	return p, nil
}

func loadRegistry(dir string) (*pid.Registry, error) {
	schemas, err := forEachJSON(dir, mig.LoadPIDSchema)
	if err != nil {
		return nil, err
	}
	return pid.NewRegistry(schemas...), nil
}

func loadAHBs(dir string) ([]*validate.AHB, error) {
	return forEachJSON(dir, validate.LoadAHB)
}

func forEachJSON[T any](dir string, load func(string) (T, error)) ([]T, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var out []T
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		v, err := load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
