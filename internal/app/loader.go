//go:build !kiwi

package app

import (
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine/memengine"
)

// EngineName reports which engine the binary was built with.
const EngineName = "memengine"

// DefaultLoader returns the lexicon engine. Build with -tags kiwi for the
// native one.
func DefaultLoader() engine.Loader {
	return memengine.Loader{}
}
