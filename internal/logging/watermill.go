// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package logging

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// NewWatermillLogger returns a watermill logger that writes through the
// global zerolog logger tagged with component. Watermill trace output is
// folded into debug.
func NewWatermillLogger(component string) watermill.LoggerAdapter {
	return NewWatermillLoggerWithLogger(WithComponent(component))
}

// NewWatermillLoggerWithLogger is NewWatermillLogger over an explicit logger.
//
//nolint:gocritic // zerolog.Logger is a value type
func NewWatermillLoggerWithLogger(l zerolog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLoggerWithLevelMapping(
		slog.New(NewSlogHandlerWithLogger(l)),
		map[slog.Level]slog.Level{watermill.LevelTrace: slog.LevelDebug},
	)
}
