package service

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/formulagrid/internal/formula"
	"github.com/specialistvlad/formulagrid/internal/hcl"
	"github.com/specialistvlad/formulagrid/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tunnelPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
  <dict>
    <key>Label</key>
    <string>homebrew.mxcl.openfortivpn-tunnel</string>
    <key>WorkingDirectory</key>
    <string>/tmp</string>
    <key>ProgramArguments</key>
    <array>
      <string>/usr/local/Cellar/openfortivpn-tunnel/1.17.1.20210919/bin/openfortivpn</string>
    </array>
    <key>StandardOutPath</key>
    <string>/var/log/openfortivpn/out.log</string>
    <key>StandardErrorPath</key>
    <string>/var/log/openfortivpn/err.log</string>
    <key>RunAtLoad</key>
    <true/>
  </dict>
</plist>
`

func loadTunnel(t *testing.T) *formula.Formula {
	t.Helper()
	set, err := hcl.NewLoader().Load(context.Background(), filepath.Join("..", "hcl", "testdata", "openfortivpn-tunnel.hcl"))
	require.NoError(t, err)
	f, ok := set.Get("openfortivpn-tunnel")
	require.True(t, ok)
	return f
}

func TestRender_Tunnel(t *testing.T) {
	// --- Arrange ---
	f := loadTunnel(t)
	bindings := layout.New("/usr/local").Bindings(f.Name, f.Version)

	// --- Act ---
	d, err := Render(f, bindings)
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, EncodePlist(&out, d))

	// --- Assert ---
	assert.Equal(t, tunnelPlist, out.String())
}

func TestRender_IsPure(t *testing.T) {
	f := loadTunnel(t)
	bindings := layout.New("/opt/homebrew").Bindings(f.Name, f.Version)

	first, err := Render(f, bindings)
	require.NoError(t, err)
	second, err := Render(f, bindings)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var a, b bytes.Buffer
	require.NoError(t, EncodePlist(&a, first))
	require.NoError(t, EncodePlist(&b, second))
	assert.Equal(t, a.Bytes(), b.Bytes())

	assert.Equal(t, "/tmp", f.Service.WorkingDir)
	assert.Equal(t, []string{"${bin}/openfortivpn"}, f.Service.ProgramArguments, "the template is not modified")
}

func TestRender_Errors(t *testing.T) {
	bindings := layout.New("/usr/local").Bindings("demo", "1.0")

	testCases := []struct {
		name    string
		service *formula.ServiceTemplate
		reason  string
	}{
		{"no service template", nil, "formula declares no service"},
		{"unknown placeholder", &formula.ServiceTemplate{ProgramArguments: []string{"${sbin}/demo", "${home}"}}, "cannot expand program_arguments[1]"},
		{"unterminated placeholder", &formula.ServiceTemplate{ProgramArguments: []string{"demo"}, StdoutPath: "${log_dir/out.log"}, "cannot expand stdout_path"},
		{"no program", &formula.ServiceTemplate{WorkingDir: "/tmp"}, "program_arguments is empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &formula.Formula{Name: "demo", Version: "1.0", Service: tc.service}

			d, err := Render(f, bindings)

			assert.Nil(t, d)
			var tmplErr *TemplateError
			require.ErrorAs(t, err, &tmplErr)
			assert.Equal(t, "demo", tmplErr.Name)
			assert.Equal(t, tc.reason, tmplErr.Reason)
		})
	}
}

func TestEncode_OptionalFieldsAndEscaping(t *testing.T) {
	// --- Arrange ---
	f := &formula.Formula{
		Name:    "demo",
		Version: "1.0",
		Service: &formula.ServiceTemplate{
			ProgramArguments: []string{"${bin}/demo", "--match=a&b<c>"},
			StdoutPath:       "${log_dir}/out.log",
			KeepAlive:        true,
			Manual:           "${bin}/demo --foreground",
		},
	}
	d, err := Render(f, layout.New("/usr/local").Bindings(f.Name, f.Version))
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/Cellar/demo/1.0/bin/demo --foreground", d.Manual)

	// --- Act ---
	var plist, yml bytes.Buffer
	require.NoError(t, EncodePlist(&plist, d))
	require.NoError(t, EncodeYAML(&yml, d))

	// --- Assert ---
	assert.NotContains(t, plist.String(), "WorkingDirectory")
	assert.NotContains(t, plist.String(), "StandardErrorPath")
	assert.Contains(t, plist.String(), "<string>--match=a&amp;b&lt;c&gt;</string>")
	assert.Contains(t, plist.String(), "<key>StandardOutPath</key>\n    <string>/usr/local/var/log/demo/out.log</string>")
	assert.Contains(t, plist.String(), "<key>RunAtLoad</key>\n    <false/>\n    <key>KeepAlive</key>\n    <true/>")

	assert.Contains(t, yml.String(), "label: homebrew.mxcl.demo\n")
	assert.Contains(t, yml.String(), "  - /usr/local/Cellar/demo/1.0/bin/demo\n")
	assert.Contains(t, yml.String(), "stdout_path: /usr/local/var/log/demo/out.log\n")
	assert.Contains(t, yml.String(), "run_at_load: false\n")
	assert.Contains(t, yml.String(), "keep_alive: true\n")
	assert.NotContains(t, yml.String(), "working_directory")
	assert.NotContains(t, yml.String(), "foreground")
	assert.NotContains(t, plist.String(), "foreground")
}
