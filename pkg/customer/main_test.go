package customer

import (
	"os"
	"testing"

	"github.com/YuukiRose/PEDeploy-sub001/pkg/logging"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "pedeploy-test-logs")
	if err != nil {
		os.Exit(1)
	}
	if err := logging.Init(logging.Config{BaseDir: dir, Level: logging.LevelDebug}); err != nil {
		os.Exit(1)
	}
	code := m.Run()
	logging.CloseLogger()
	os.RemoveAll(dir)
	os.Exit(code)
}
