package main

import (
	"github.com/konnyaku/konnyaku/internal/backend"
	"github.com/konnyaku/konnyaku/internal/logger"
	"github.com/konnyaku/konnyaku/internal/modelstore"
	"github.com/konnyaku/konnyaku/internal/translate"
)

// newService wires the store, backend loader, and translation service from
// the resolved flag/config values.
func newService(log logger.Logger) (*translate.Service, error) {
	dir := modelsDir
	if dir == "" {
		d, err := modelstore.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	store := modelstore.New(modelstore.DefaultDescriptor(), dir, log)
	loader := backend.NewLoader(backend.Options{
		LibPath:     libPath,
		ContextSize: uint32(maxContext),
	}, log)
	return translate.New(translate.Config{
		Store:        store,
		Loader:       loader,
		MaxNewTokens: int(maxNewTokens),
		Log:          log,
	}), nil
}
