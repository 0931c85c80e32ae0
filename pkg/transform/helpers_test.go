package transform

import (
	"github.com/Gobusters/ectologger"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func intPtr(i int) *int         { return &i }
func int64Ptr(i int64) *int64   { return &i }
func boolPtr(b bool) *bool      { return &b }
