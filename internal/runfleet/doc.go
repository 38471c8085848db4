// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runfleet executes a command list across a device inventory with
// bounded concurrency. The Batch type admits devices through a semaphore,
// the DeviceRunner drives each device through its session, and every device
// produces exactly one Result and one transcript file regardless of outcome.
package runfleet
