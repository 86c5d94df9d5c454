package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/Brownie44l1/waste-classifier/internal/classifier"
	"github.com/Brownie44l1/waste-classifier/internal/config"
	"github.com/Brownie44l1/waste-classifier/internal/hub"
	"github.com/Brownie44l1/waste-classifier/internal/model"
	"github.com/Brownie44l1/waste-classifier/internal/preprocess"
)

const (
	preprocessorConfigFile = "preprocessor_config.json"
	modelConfigFile        = "config.json"
)

func modelLoadError(err error) error {
	return &classifier.Error{Kind: classifier.ModelLoad, Err: err}
}

// loadClassifier resolves the model files through the cache, opens the ONNX
// session and wires both into a Classifier. The returned func releases the
// session.
func loadClassifier(ctx context.Context, cfg *config.Config, log *zap.Logger) (*classifier.Classifier, func(), error) {
	fetcher := hub.NewFetcher(hub.Options{
		Endpoint:    cfg.Hub.Endpoint,
		Token:       cfg.Hub.Token,
		CacheDir:    cfg.Cache.Dir,
		Offline:     cfg.Model.Offline,
		Timeout:     cfg.Hub.Timeout(),
		LockTimeout: cfg.Cache.LockTimeout(),
	}, log.Named("hub"))

	ref := hub.Ref{Repo: cfg.Model.Repo, Revision: cfg.Model.Revision}
	log.Info("Resolving model", zap.Stringer("ref", ref), zap.String("cache_dir", cfg.Cache.Dir))

	snapshot, err := fetcher.Fetch(ctx, ref,
		hub.File{Name: cfg.Model.File},
		hub.File{Name: preprocessorConfigFile, Optional: true},
		hub.File{Name: modelConfigFile, Optional: true},
	)
	if err != nil {
		return nil, nil, modelLoadError(err)
	}

	procCfg := preprocess.DefaultConfig()
	if p, ok := snapshot.Path(preprocessorConfigFile); ok {
		if procCfg, err = preprocess.LoadConfig(p); err != nil {
			return nil, nil, modelLoadError(err)
		}
	} else {
		log.Warn("No preprocessor config, using defaults")
	}
	processor := preprocess.NewProcessor(procCfg)

	if p, ok := snapshot.Path(modelConfigFile); ok {
		labels, err := model.ReadLabels(p)
		switch {
		case err != nil:
			log.Warn("Could not read model labels", zap.Error(err))
		case !classifier.MatchesLabels(labels):
			log.Warn("Model labels differ from the waste label set",
				zap.Strings("model_labels", labels),
				zap.Strings("labels", classifier.Labels[:]))
		}
	}

	modelPath, _ := snapshot.Path(cfg.Model.File)
	log.Info("Loading model", zap.String("path", modelPath))

	session, err := model.Load(modelPath, model.Metadata{
		InputName:   cfg.Model.InputName,
		OutputName:  cfg.Model.OutputName,
		InputShape:  processor.InputShape(),
		OutputShape: []int64{1, int64(len(classifier.Labels))},
	}, model.Options{LibraryPath: cfg.Runtime.LibraryPath})
	if err != nil {
		return nil, nil, modelLoadError(err)
	}

	c := classifier.New(session, processor,
		classifier.WithTopK(cfg.Classify.TopK),
		classifier.WithLogger(log.Named("classifier")))

	return c, session.Close, nil
}
