// Package all wires the built-in storage backends into the storage factory.
//
// It exists for side effects only: a blank import runs each backend's init,
// which registers its factory with the storage package. Currently that is
// "postgres" (dataprocessor/internal/storage/postgres).
package all

import (
	_ "dataprocessor/internal/storage/postgres"
)
