// Package nativefactory builds the native SDK implementation the session
// talks to.
package nativefactory

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/srg/lvx/native"
)

// ErrUnavailable is returned when no native SDK implementation has been
// installed. Linking the vendor library is a build and packaging concern that
// lives outside this module; a platform adapter (or a simulator) installs
// itself via SetFactory.
var ErrUnavailable = errors.New("native lidar sdk is not linked into this build")

// Factory creates native.API instances for session construction.
// This is a variable so that it can be overridden in tests and by platform
// adapters.
var Factory = func(logger *logrus.Logger) (native.API, error) {
	return nil, ErrUnavailable
}

// NewAPI creates the native SDK implementation using the installed factory.
func NewAPI(logger *logrus.Logger) (native.API, error) {
	return Factory(logger)
}

// SetFactory installs fn as the factory and returns the previous one so
// callers can restore it.
func SetFactory(fn func(*logrus.Logger) (native.API, error)) func(*logrus.Logger) (native.API, error) {
	prev := Factory
	Factory = fn
	return prev
}
