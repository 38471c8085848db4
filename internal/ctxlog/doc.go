// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog provides a context-aware logger that can be used to log messages.
// It uses the slog package for structured logging and supports different log levels.
//
// The log level is set from an environment variable derived from the executable
// name, e.g. FLEETRUN_LOG_LEVEL. The default is a pretty console handler that
// formats the log messages in a human-readable way.
package ctxlog
