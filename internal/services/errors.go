package services

import "errors"

var (
	// ErrStoreRequired is returned when an object store is not provided.
	ErrStoreRequired = errors.New("object store required")

	// ErrDiscoveryRequired is returned when pair discovery is not provided.
	ErrDiscoveryRequired = errors.New("pair discovery required")

	// ErrCuratorRequired is returned when a curator is not provided.
	ErrCuratorRequired = errors.New("curator required")

	// ErrManifestWriterRequired is returned when a manifest writer is not provided.
	ErrManifestWriterRequired = errors.New("manifest writer required")
)
