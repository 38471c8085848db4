// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui renders live per-device progress for a batch run as a
// full-screen terminal UI. Every device in the inventory gets one row that
// moves through pending, running and a final success or failed state as
// progress events arrive from the batch.
package tui
