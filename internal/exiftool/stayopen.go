package exiftool

import (
	"fmt"
	"strings"

	goexiftool "github.com/barasher/go-exiftool"

	"metafix/internal/fixer"
)

// stayOpenProber keeps one tool process alive for all format probes.
type stayOpenProber struct {
	et *goexiftool.Exiftool
}

func newStayOpenProber(binary string) (*stayOpenProber, error) {
	et, err := goexiftool.NewExiftool(goexiftool.SetExiftoolBinaryPath(binary))
	if err != nil {
		return nil, err
	}
	return &stayOpenProber{et: et}, nil
}

func (p *stayOpenProber) Probe(path string) (fixer.ProbeResult, error) {
	infos := p.et.ExtractMetadata(path)
	if len(infos) == 0 {
		return fixer.ProbeResult{}, fmt.Errorf("no metadata returned for %s", path)
	}
	info := infos[0]
	if info.Err != nil {
		return fixer.ProbeResult{Diagnostic: info.Err.Error()}, nil
	}

	var res fixer.ProbeResult
	if ext, err := info.GetString("FileTypeExtension"); err == nil {
		res.Extension = ext
	}
	var diags []string
	for _, key := range []string{"Error", "Warning"} {
		if v, err := info.GetString(key); err == nil && v != "" {
			diags = append(diags, v)
		}
	}
	res.Diagnostic = strings.Join(diags, "; ")
	return res, nil
}

func (p *stayOpenProber) Close() error {
	return p.et.Close()
}
