package main

import (
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/daniacca/cellchem/internal/achem"
)

// NewLogger configures commonlog for level, writing to stderr, and returns
// the logger shared by the server and its environments.
func NewLogger(level string) *achem.CommonLogger {
	commonlog.Configure(achem.LogVerbosity(level), nil)
	return achem.NewCommonLogger("cellchem.server")
}
