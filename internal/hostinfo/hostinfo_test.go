package hostinfo

import (
	"context"
	"testing"

	"github.com/quillform/quill/internal/config"
	"github.com/quillform/quill/internal/home"
	"github.com/quillform/quill/internal/providers"
	"github.com/quillform/quill/internal/svcctx"
	"github.com/quillform/quill/internal/tools"
)

type staticConfig struct{ cfg *config.Config }

func (s staticConfig) Get() *config.Config { return s.cfg }

func TestHostInfoTool(t *testing.T) {
	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}

	reg := tools.NewRegistry()
	reg.MustRegister(Tool())

	registry := providers.NewRegistryFromConfig(providers.RegistryConfig{
		Providers: map[string]providers.ProviderConfig{
			"claude": {Type: "cli", Enabled: true},
		},
	})

	services := &svcctx.Services{
		Config:    staticConfig{cfg: config.DefaultConfig()},
		Home:      h,
		Tools:     reg,
		Providers: registry,
	}
	exec := svcctx.WrapExecutor(reg, services)

	res := exec.Execute(context.Background(), "host_info", nil)
	if !res.Success {
		t.Fatalf("Execute() error = %v", res.Error)
	}
	data, ok := res.Data.(map[string]any)
	if !ok {
		t.Fatalf("Data = %T, want map", res.Data)
	}

	if data["backend_configured"] != false {
		t.Errorf("backend_configured = %v, want false", data["backend_configured"])
	}
	if data["home"] != h.Path() {
		t.Errorf("home = %v, want %s", data["home"], h.Path())
	}
	if data["default_provider"] != "claude" {
		t.Errorf("default_provider = %v, want claude", data["default_provider"])
	}
	names, _ := data["providers"].([]string)
	if len(names) != 1 || names[0] != "claude" {
		t.Errorf("providers = %v, want [claude]", data["providers"])
	}
	toolNames, _ := data["tools"].([]string)
	if len(toolNames) != 1 || toolNames[0] != "host_info" {
		t.Errorf("tools = %v, want [host_info]", data["tools"])
	}
	if v, _ := data["version"].(string); v == "" {
		t.Error("version missing")
	}
}

func TestHostInfoToolBare(t *testing.T) {
	reg := tools.NewRegistry()
	reg.MustRegister(Tool())
	exec := svcctx.WrapExecutor(reg, &svcctx.Services{})

	res := exec.Execute(context.Background(), "host_info", nil)
	if !res.Success {
		t.Fatalf("Execute() error = %v", res.Error)
	}
	data := res.Data.(map[string]any)
	if data["backend_configured"] != false {
		t.Errorf("backend_configured = %v, want false", data["backend_configured"])
	}
	if _, ok := data["home"]; ok {
		t.Error("home reported with no services wired")
	}
	if _, ok := data["default_provider"]; ok {
		t.Error("default_provider reported with no config wired")
	}
}
