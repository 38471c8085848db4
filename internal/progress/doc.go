// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress defines device lifecycle events emitted during a batch
// run and the reporter interfaces that deliver them to consumers such as the
// TUI or the console logger.
package progress
