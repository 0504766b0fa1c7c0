//go:build kiwi

package app

import (
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine/kiwigo"
)

// EngineName reports which engine the binary was built with.
const EngineName = "kiwi"

// DefaultLoader returns the native Kiwi loader.
func DefaultLoader() engine.Loader {
	return kiwigo.Loader{}
}
