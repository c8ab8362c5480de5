package cli

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dyntopo/pkg/errors"
	"github.com/matzehuels/dyntopo/pkg/pipeline"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dyntopo.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
mode    = "subdivide+collapse"
detail  = 0.02
ratio   = 0.3
passes  = 3
formats = ["obj", "svg"]

edge_limit  = 1.5
view_normal = [0, 0, -1]

[brush]
center = [0, 0.5, 1]
radius = 0.25

[cache]
backend = "redis"
redis   = { addr = "localhost:6379", db = 2 }
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Mode != "subdivide+collapse" || cfg.Detail != 0.02 || cfg.Ratio != 0.3 || cfg.Passes != 3 {
		t.Errorf("loadConfig() = %+v", cfg)
	}
	if cfg.Cache.Backend != backendRedis || cfg.Cache.Redis.Addr != "localhost:6379" || cfg.Cache.Redis.DB != 2 {
		t.Errorf("loadConfig().Cache = %+v", cfg.Cache)
	}

	opts := cfg.options()
	if opts.DetailSize != 0.02 || opts.DetailRatio != 0.3 || opts.Passes != 3 {
		t.Errorf("options() = %+v", opts)
	}
	if !slices.Equal(opts.Formats, []string{"obj", "svg"}) {
		t.Errorf("options().Formats = %v, want [obj svg]", opts.Formats)
	}
	if opts.Brush == nil || opts.Brush.Center != [3]float64{0, 0.5, 1} || opts.Brush.Radius != 0.25 {
		t.Errorf("options().Brush = %v", opts.Brush)
	}
	if opts.EdgeLimitMultiplier != 1.5 {
		t.Errorf("options().EdgeLimitMultiplier = %g, want 1.5", opts.EdgeLimitMultiplier)
	}
	if opts.ViewNormal == nil || *opts.ViewNormal != [3]float64{0, 0, -1} {
		t.Errorf("options().ViewNormal = %v, want [0 0 -1]", opts.ViewNormal)
	}
}

func TestLoadConfigDefaultFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() without file error: %v", err)
	}
	if cfg.Mode != "" || cfg.Brush != nil {
		t.Errorf("loadConfig() without file = %+v, want zero config", cfg)
	}

	if err := os.WriteFile(defaultConfigFile, []byte("passes = 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Passes != 7 {
		t.Errorf("loadConfig().Passes = %d, want 7", cfg.Passes)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.Code
	}{
		{"syntax", "mode = ", errors.ErrCodeInvalidConfig},
		{"unknown key", "detial = 0.1\n", errors.ErrCodeInvalidConfig},
		{"wrong type", "passes = \"three\"\n", errors.ErrCodeInvalidConfig},
		{"unknown backend", "[cache]\nbackend = \"memcached\"\n", errors.ErrCodeInvalidConfig},
		{"redis without addr", "[cache]\nbackend = \"redis\"\n", errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.content))
			if !errors.Is(err, tt.code) {
				t.Errorf("loadConfig() error = %v, want code %s", err, tt.code)
			}
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, errors.ErrCodeFileNotFound) {
			t.Errorf("loadConfig() error = %v, want code %s", err, errors.ErrCodeFileNotFound)
		}
	})
}

func TestRemeshFlagsOverrideConfig(t *testing.T) {
	var flags remeshFlags
	cmd := &cobra.Command{Use: "test"}
	flags.register(cmd)
	if err := cmd.ParseFlags([]string{"--mode", "subdivide", "-d", "0.5", "--brush", "1,2,3,0.5", "-f", "OBJ, dot", "--edge-limit", "2", "--view-normal", "0,1,0"}); err != nil {
		t.Fatalf("ParseFlags() error: %v", err)
	}

	opts := pipeline.Options{Mode: "collapse", DetailSize: 0.1, DetailRatio: 0.3, Passes: 4}
	if err := flags.apply(cmd, &opts); err != nil {
		t.Fatalf("apply() error: %v", err)
	}

	if opts.Mode != "subdivide" {
		t.Errorf("Mode = %q, want subdivide", opts.Mode)
	}
	if opts.DetailSize != 0.5 {
		t.Errorf("DetailSize = %g, want 0.5", opts.DetailSize)
	}
	if opts.DetailRatio != 0.3 || opts.Passes != 4 {
		t.Errorf("unset flags changed config values: ratio %g, passes %d", opts.DetailRatio, opts.Passes)
	}
	if opts.Brush == nil || opts.Brush.Center != [3]float64{1, 2, 3} || opts.Brush.Radius != 0.5 {
		t.Errorf("Brush = %v, want sphere(1,2,3;0.5)", opts.Brush)
	}
	if !slices.Equal(opts.Formats, []string{"obj", "dot"}) {
		t.Errorf("Formats = %v, want [obj dot]", opts.Formats)
	}
	if opts.EdgeLimitMultiplier != 2 {
		t.Errorf("EdgeLimitMultiplier = %g, want 2", opts.EdgeLimitMultiplier)
	}
	if opts.ViewNormal == nil || *opts.ViewNormal != [3]float64{0, 1, 0} {
		t.Errorf("ViewNormal = %v, want [0 1 0]", opts.ViewNormal)
	}
}

func TestParseBrush(t *testing.T) {
	tests := []struct {
		in      string
		want    *pipeline.Brush
		wantErr bool
	}{
		{"", nil, false},
		{"0,0,0,1", &pipeline.Brush{Radius: 1}, false},
		{" 1.5, -2, 3e-1, 0.25 ", &pipeline.Brush{Center: [3]float64{1.5, -2, 0.3}, Radius: 0.25}, false},
		{"1,2,3", nil, true},
		{"a,b,c,d", nil, true},
	}
	for _, tt := range tests {
		got, err := parseBrush(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseBrush(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("parseBrush(%q) error code = %s, want %s", tt.in, errors.GetCode(err), errors.ErrCodeInvalidConfig)
			}
			continue
		}
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("parseBrush(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseViewNormal(t *testing.T) {
	tests := []struct {
		in      string
		want    *[3]float64
		wantErr bool
	}{
		{"", nil, false},
		{"0,0,1", &[3]float64{0, 0, 1}, false},
		{" -1, 0.5 ,2e-1 ", &[3]float64{-1, 0.5, 0.2}, false},
		{"0,0,1,0", nil, true},
		{"x,y,z", nil, true},
	}
	for _, tt := range tests {
		got, err := parseViewNormal(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseViewNormal(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("parseViewNormal(%q) error code = %s, want %s", tt.in, errors.GetCode(err), errors.ErrCodeInvalidConfig)
			}
			continue
		}
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("parseViewNormal(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"obj"}},
		{"svg", []string{"svg"}},
		{"obj,svg,dot", []string{"obj", "svg", "dot"}},
		{"OBJ, ,json", []string{"obj", "json"}},
	}
	for _, tt := range tests {
		if got := parseFormats(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
