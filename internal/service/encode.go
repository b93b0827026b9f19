package service

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const plistHeader = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
  <dict>
`

const plistFooter = `  </dict>
</plist>
`

// EncodePlist writes d as a launchd property list. Keys are written in a
// fixed order and empty optional paths are omitted.
func EncodePlist(w io.Writer, d *Descriptor) error {
	bw := bufio.NewWriter(w)
	p := plistWriter{w: bw}

	p.raw(plistHeader)
	p.key("Label")
	p.str(d.Label)
	if d.WorkingDirectory != "" {
		p.key("WorkingDirectory")
		p.str(d.WorkingDirectory)
	}
	p.key("ProgramArguments")
	p.raw("    <array>\n")
	for _, arg := range d.ProgramArguments {
		p.raw("      <string>" + escape(arg) + "</string>\n")
	}
	p.raw("    </array>\n")
	if d.StandardOutPath != "" {
		p.key("StandardOutPath")
		p.str(d.StandardOutPath)
	}
	if d.StandardErrorPath != "" {
		p.key("StandardErrorPath")
		p.str(d.StandardErrorPath)
	}
	p.key("RunAtLoad")
	p.boolean(d.RunAtLoad)
	if d.KeepAlive {
		p.key("KeepAlive")
		p.boolean(true)
	}
	p.raw(plistFooter)

	if p.err != nil {
		return fmt.Errorf("failed to write property list: %w", p.err)
	}
	return bw.Flush()
}

// EncodeYAML writes d as a YAML document.
func EncodeYAML(w io.Writer, d *Descriptor) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode service as YAML: %w", err)
	}
	return enc.Close()
}

// plistWriter remembers the first write error so the encoder reads linearly.
type plistWriter struct {
	w   *bufio.Writer
	err error
}

func (p *plistWriter) raw(s string) {
	if p.err == nil {
		_, p.err = p.w.WriteString(s)
	}
}

func (p *plistWriter) key(k string) {
	p.raw("    <key>" + escape(k) + "</key>\n")
}

func (p *plistWriter) str(s string) {
	p.raw("    <string>" + escape(s) + "</string>\n")
}

func (p *plistWriter) boolean(b bool) {
	if b {
		p.raw("    <true/>\n")
	} else {
		p.raw("    <false/>\n")
	}
}

func escape(s string) string {
	var sb strings.Builder
	// strings.Builder never returns a write error.
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
