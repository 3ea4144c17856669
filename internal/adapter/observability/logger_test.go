package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fairyhunter13/trendpulse/internal/config"
)

func TestSetupLogger_DevAndProd(t *testing.T) {
	lg := SetupLogger(config.Config{AppEnv: "dev", OTELServiceName: "svc"})
	if lg == nil {
		t.Fatalf("nil logger")
	}
	lg2 := SetupLogger(config.Config{AppEnv: "prod", OTELServiceName: "svc"})
	if lg2 == nil {
		t.Fatalf("nil logger prod")
	}
}

func TestNewLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	lg := newLogger(&buf, config.Config{AppEnv: "prod", OTELServiceName: "trendpulse-api"})
	lg.Debug("hidden")
	lg.Info("scan finished")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if rec["service"] != "trendpulse-api" || rec["env"] != "prod" || rec["msg"] != "scan finished" {
		t.Fatalf("unexpected record: %v", rec)
	}
}
