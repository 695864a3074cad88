// Package config loads the application configuration.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then DOCRAG_* environment variables.
//
//	cfg, err := config.Load("docrag.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.ApplyEnv(); err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// A minimal file pointing at a Qdrant server:
//
//	store:
//	  backend: qdrant
//	  qdrant_url: http://localhost:6333
//	search:
//	  score_threshold: 0.7
//	  infer_filters: true
//	timeouts:
//	  embed: 30s
//	  store: 30s
//	  generate: 2m
//
// The converter methods (IndexerConfig, SearcherConfig, ...) hand each
// component its slice of the configuration.
package config
