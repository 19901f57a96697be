// Package store records completed uploads in a metadata database.
//
// Both implementations satisfy coordinator.Recorder. Records are keyed by upload
// ID and writes are idempotent: recording the same upload twice keeps the first
// record.
package store

import (
	"github.com/input-output-hk/catalyst-forge-libs/directupload/coordinator"
)

var (
	_ coordinator.Recorder = (*Postgres)(nil)
	_ coordinator.Recorder = (*DynamoDB)(nil)
)
