package pipeline

import (
	"fmt"
	"slices"

	"crashgraph/internal/config"
	"crashgraph/internal/logging"
	"crashgraph/internal/spec"
	"crashgraph/internal/transform"
	"crashgraph/sink"
	"crashgraph/sink/stdout"
	"crashgraph/source"
)

// Overrides are command-line values that win over pipeline.yml and the
// driver configs. Empty fields leave the file value alone.
type Overrides struct {
	Input           string
	Output          string
	Mode            string
	Dedup           string
	DuplicatePerson string
}

// Default is the pipeline used without a pipeline.yml: csv file in, csv
// directory out.
func Default() spec.File {
	var f spec.File
	f.SchemaVersion = config.SupportedSchema
	f.Source.Kind = "csv"
	f.Sinks = []string{"csv"}
	return f
}

func Compile(path string, ov Overrides) (*Runner, error) {
	r := NewRunner()
	if err := LoadYAML(path, ov, r); err != nil {
		return nil, err
	}
	return r, nil
}

func LoadYAML(path string, ov Overrides, r *Runner) error {
	cfg, err := config.LoadPipelineSpec(path)
	if err != nil {
		return err
	}
	return Build(cfg, ov, r)
}

// Build configures r from a parsed pipeline. On error every adapter that
// was already created is closed.
func Build(cfg spec.File, ov Overrides, r *Runner) (err error) {
	defer func() {
		if err != nil {
			_ = r.Close()
		}
	}()

	/*──────── source ───────*/
	src, err := source.NewAdapter(cfg.Source.Kind)
	if err != nil {
		return err
	}
	sc, err := config.LoadSourceConfig(cfg.Source.Config)
	if err != nil {
		return err
	}
	if ov.Input != "" {
		sc.Path = ov.Input
	}
	if err = src.Configure(sc); err != nil {
		return err
	}
	r.SetSource(src)

	/*──────── transform ───────*/
	opts, err := transformOptions(cfg.Transform, ov)
	if err != nil {
		return err
	}
	r.SetTransformer(transform.New(opts))

	/*──────── sinks ───────*/
	sinks := cfg.Sinks
	if ov.Output != "" && !slices.Contains(sinks, "csv") {
		sinks = append(slices.Clone(sinks), "csv")
	}
	if len(sinks) == 0 {
		return fmt.Errorf("pipeline: no sinks configured")
	}
	for _, name := range sinks {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			return err
		}

		switch name {
		case "csv":
			var c any
			if c, err = csvConfig(cfg, ov); err == nil {
				err = sDrv.Configure(c)
			}
		case "neo4j":
			var c any
			if c, err = config.LoadNeo4jConfig(cfg.SinkConfigs.Neo4j); err == nil {
				err = sDrv.Configure(c)
			}
		case "kafka":
			var c any
			if c, err = config.LoadKafkaConfig(cfg.SinkConfigs.Kafka); err == nil {
				err = sDrv.Configure(c)
			}
		case "stdout":
			err = sDrv.Configure(stdout.Config{
				Preview:      cfg.Debug.Preview,
				PrintCounter: cfg.Debug.PrintCounter,
			})
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			_ = sDrv.Close()
			return fmt.Errorf("sink %s: %w", name, err)
		}
		r.AddSink(name, sDrv)
	}
	logging.L().Debug("pipeline compiled", "source", cfg.Source.Kind, "sinks", r.Sinks(),
		"mode", opts.Mode, "dedup", opts.Dedup)
	return nil
}

func csvConfig(cfg spec.File, ov Overrides) (any, error) {
	c, err := config.LoadCSVSinkConfig(cfg.SinkConfigs.CSV)
	if err != nil {
		return nil, err
	}
	if ov.Output != "" {
		c.Dir = ov.Output
	}
	return c, nil
}

func transformOptions(ts spec.TransformSpec, ov Overrides) (transform.Options, error) {
	var (
		opts transform.Options
		err  error
	)
	if opts.Mode, err = transform.ParseMode(pick(ov.Mode, ts.Mode)); err != nil {
		return opts, err
	}
	if opts.Dedup, err = transform.ParseDedupStrategy(pick(ov.Dedup, ts.Dedup)); err != nil {
		return opts, err
	}
	if opts.DuplicatePerson, err = transform.ParseDuplicatePersonPolicy(pick(ov.DuplicatePerson, ts.DuplicatePerson)); err != nil {
		return opts, err
	}
	return opts, nil
}

func pick(flag, file string) string {
	if flag != "" {
		return flag
	}
	return file
}
