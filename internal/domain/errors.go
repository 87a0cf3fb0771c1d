// Package domain contains the placement data model and its sentinel errors.
package domain

import "errors"

// Common domain errors
var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when creating a resource whose ID is taken.
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidArgument is returned when an invalid argument is provided.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCapacityExceeded is returned when an allocation would drive a host's
	// remaining capacity below zero.
	ErrCapacityExceeded = errors.New("host capacity exceeded")

	// ErrUnknownHost is returned when a host ID is not part of the ledger.
	ErrUnknownHost = errors.New("unknown host")

	// ErrAlreadyPlaced is returned when allocating a VM that already has a host.
	ErrAlreadyPlaced = errors.New("vm already placed")

	// ErrNotPlaced is returned when releasing a VM that has no host.
	ErrNotPlaced = errors.New("vm not placed")

	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")
)
