package cmd

import (
	"os"
	"testing"

	"boscoin.io/pollwatch/lib/common/test"
)

func TestMain(m *testing.M) {
	setLogging(test.LogLevel(), test.LogHandler())
	os.Exit(m.Run())
}
