// Package service holds ambient services that ride alongside an application.
package service

import (
	"encoding/json"
	"log/slog"

	"github.com/jask/tealens/internal/lifecycle"
	"github.com/jask/tealens/internal/store"
)

// StateLogger logs every committed state as JSON at debug level.
func StateLogger[S any](log *slog.Logger) lifecycle.Service[S] {
	if log == nil {
		log = slog.Default()
	}
	return lifecycle.NewService("state-logger", func(st *store.Store[S], _ lifecycle.Launch) (lifecycle.Teardown, error) {
		off := st.On(func(s S) {
			b, err := json.Marshal(s)
			if err != nil {
				log.Warn("marshal state", slog.Any("err", err))
				return
			}
			log.Debug("state", slog.String("json", string(b)))
		})
		return lifecycle.Teardown(off), nil
	})
}
